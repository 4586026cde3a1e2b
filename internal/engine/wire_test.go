package engine

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestComplexJSON(t *testing.T) {
	data, err := json.Marshal(Vector{Complex(complex(0.5, 0.25)), Complex(-1i)})
	require.NoError(t, err)
	assert.JSONEq(t, `["0.5+0.25j", "0-1j"]`, string(data))

	var v Vector
	require.NoError(t, json.Unmarshal([]byte(`["1 + 2im", 3, "-0.5j"]`), &v))
	assert.Equal(t, []complex128{complex(1, 2), 3, complex(0, -0.5)}, v.Complex128s())

	assert.Error(t, json.Unmarshal([]byte(`["x"]`), &v))
	assert.Error(t, json.Unmarshal([]byte(`[true]`), &v))
}

func TestMatrixConversion(t *testing.T) {
	m := mat.NewCDense(2, 2, []complex128{1, -1i, 1i, 0})
	wire := MatrixOf(m)
	r, c := wire.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)

	back, err := wire.CDense()
	require.NoError(t, err)
	assert.True(t, mat.CEqual(m, back))

	_, err = Matrix{{1, 2}, {3}}.CDense()
	assert.ErrorContains(t, err, "row 1")
	_, err = Matrix{}.CDense()
	assert.Error(t, err)

	ms, err := Matrices(MatricesOf([]*mat.CDense{m, m}))
	require.NoError(t, err)
	assert.Len(t, ms, 2)

	assert.Nil(t, VectorOf(nil))
	assert.Nil(t, Vectors(nil))
	assert.Nil(t, MatricesOf(nil))
}

func TestIntervalJSON(t *testing.T) {
	data, err := json.Marshal([]Interval{{-0.2, 0.2}, Unbounded, {math.Inf(-1), 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `[[-0.2, 0.2], [null, null], [null, 1]]`, string(data))

	var ivs []Interval
	require.NoError(t, json.Unmarshal(data, &ivs))
	require.Len(t, ivs, 3)
	assert.Equal(t, Interval{-0.2, 0.2}, ivs[0])
	assert.Equal(t, Unbounded, ivs[1])
	assert.True(t, math.IsInf(ivs[2][0], -1))
	assert.Equal(t, 1.0, ivs[2][1])
}

func TestVariantString(t *testing.T) {
	v := Variant{Builder: "GRAPE_Copt", EntryPoint: "QFIM_autoGRAPE_Copt"}
	assert.Equal(t, "GRAPE_Copt/QFIM_autoGRAPE_Copt", v.String())
	assert.False(t, v.IsZero())
	assert.True(t, Variant{}.IsZero())
}
