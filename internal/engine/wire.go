package engine

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/GoSim-25-26J-441/estimation-core/internal/results"
)

// Complex is a complex128 that travels as a canonical literal such as
// "0.5+0.25j". Plain JSON numbers are accepted on input.
type Complex complex128

func (c Complex) MarshalJSON() ([]byte, error) {
	return json.Marshal(results.FormatComplex(complex128(c)))
}

func (c *Complex) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := results.ParseComplex(s)
		if err != nil {
			return err
		}
		*c = Complex(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("complex value: %w", err)
	}
	*c = Complex(complex(f, 0))
	return nil
}

// Vector is a wire vector of complex amplitudes.
type Vector []Complex

// VectorOf converts amplitudes to wire form.
func VectorOf(v []complex128) Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = Complex(x)
	}
	return out
}

// Complex128s converts back from wire form.
func (v Vector) Complex128s() []complex128 {
	if v == nil {
		return nil
	}
	out := make([]complex128, len(v))
	for i, x := range v {
		out[i] = complex128(x)
	}
	return out
}

// VectorsOf converts a list of vectors.
func VectorsOf(vs [][]complex128) []Vector {
	if vs == nil {
		return nil
	}
	out := make([]Vector, len(vs))
	for i, v := range vs {
		out[i] = VectorOf(v)
	}
	return out
}

// Vectors converts a list of wire vectors back.
func Vectors(vs []Vector) [][]complex128 {
	if vs == nil {
		return nil
	}
	out := make([][]complex128, len(vs))
	for i, v := range vs {
		out[i] = v.Complex128s()
	}
	return out
}

// Matrix is a row-major wire matrix.
type Matrix []Vector

// MatrixOf converts m to wire form.
func MatrixOf(m *mat.CDense) Matrix {
	r, c := m.Dims()
	out := make(Matrix, r)
	for i := range out {
		row := make(Vector, c)
		for j := range row {
			row[j] = Complex(m.At(i, j))
		}
		out[i] = row
	}
	return out
}

// MatricesOf converts a list of matrices.
func MatricesOf(ms []*mat.CDense) []Matrix {
	if ms == nil {
		return nil
	}
	out := make([]Matrix, len(ms))
	for i, m := range ms {
		out[i] = MatrixOf(m)
	}
	return out
}

// Dims returns the row count and the length of the first row.
func (m Matrix) Dims() (int, int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m), len(m[0])
}

// CDense converts m back, failing on ragged rows.
func (m Matrix) CDense() (*mat.CDense, error) {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, fmt.Errorf("empty matrix")
	}
	out := mat.NewCDense(r, c, nil)
	for i, row := range m {
		if len(row) != c {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), c)
		}
		for j, v := range row {
			out.Set(i, j, complex128(v))
		}
	}
	return out, nil
}

// Matrices converts a list of wire matrices back.
func Matrices(ms []Matrix) ([]*mat.CDense, error) {
	out := make([]*mat.CDense, len(ms))
	for i, m := range ms {
		d, err := m.CDense()
		if err != nil {
			return nil, fmt.Errorf("matrix %d: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}

// Interval is a [min, max] pair. Infinite ends travel as null.
type Interval [2]float64

// Unbounded is the interval (-Inf, +Inf).
var Unbounded = Interval{math.Inf(-1), math.Inf(1)}

func (iv Interval) MarshalJSON() ([]byte, error) {
	ends := [2]*float64{}
	for k, v := range iv {
		if !math.IsInf(v, 0) {
			ends[k] = &v
		}
	}
	return json.Marshal(ends)
}

func (iv *Interval) UnmarshalJSON(data []byte) error {
	var ends [2]*float64
	if err := json.Unmarshal(data, &ends); err != nil {
		return fmt.Errorf("interval: %w", err)
	}
	*iv = Unbounded
	for k, p := range ends {
		if p != nil {
			iv[k] = *p
		}
	}
	return nil
}
