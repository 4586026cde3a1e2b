package quantum

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateCandidates(t *testing.T) {
	sc, err := NewStateCandidates(2, [][]complex128{{1, 1}, {1, 0}})
	require.NoError(t, err)
	assert.Equal(t, 2, sc.Len())
	assert.InDelta(t, 1, VecNorm(sc.Best()), 1e-12)

	require.NoError(t, sc.Replace([]complex128{0, 2i}))
	assert.Equal(t, complex128(1i), sc.Best()[1])
	assert.Equal(t, complex128(1), sc.Vectors()[1][0])
}

func TestStateCandidatesEmpty(t *testing.T) {
	sc, err := NewStateCandidates(3, nil)
	require.NoError(t, err)
	assert.Nil(t, sc.Best())
	require.NoError(t, sc.Replace([]complex128{1, 0, 0}))
	assert.Equal(t, 1, sc.Len())
}

func TestStateCandidatesValidation(t *testing.T) {
	_, err := NewStateCandidates(2, [][]complex128{{1, 0, 0}})
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = NewStateCandidates(2, [][]complex128{{0, 0}})
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = NewStateCandidates(0, nil)
	assert.True(t, errors.Is(err, ErrValidation))

	sc, _ := NewStateCandidates(2, nil)
	assert.Error(t, sc.Replace([]complex128{1}))
}
