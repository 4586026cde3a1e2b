package quantum

import "fmt"

// StateCandidates holds the pure-state guesses handed to state
// optimization. The engine overwrites them with improved states; the
// first vector is always the current best.
type StateCandidates struct {
	dim     int
	vectors [][]complex128
}

// NewStateCandidates validates and normalizes the guesses. An empty list
// is allowed and leaves initialization to the engine.
func NewStateCandidates(dim int, vectors [][]complex128) (*StateCandidates, error) {
	if dim <= 0 {
		return nil, Invalid("state candidates", "dimension must be positive, got %d", dim)
	}
	sc := &StateCandidates{dim: dim}
	for i, v := range vectors {
		if err := sc.add(v); err != nil {
			return nil, Invalid(fmt.Sprintf("state candidates[%d]", i), "%v", err)
		}
	}
	return sc, nil
}

func (s *StateCandidates) add(v []complex128) error {
	if len(v) != s.dim {
		return fmt.Errorf("expected %d amplitudes, got %d", s.dim, len(v))
	}
	psi, err := Normalize(v)
	if err != nil {
		return err
	}
	s.vectors = append(s.vectors, psi)
	return nil
}

func (s *StateCandidates) Dim() int { return s.dim }

func (s *StateCandidates) Len() int { return len(s.vectors) }

// Vectors returns copies of all candidates.
func (s *StateCandidates) Vectors() [][]complex128 {
	out := make([][]complex128, len(s.vectors))
	for i, v := range s.vectors {
		out[i] = append([]complex128(nil), v...)
	}
	return out
}

// Best returns the current best candidate, or nil when there is none.
func (s *StateCandidates) Best() []complex128 {
	if len(s.vectors) == 0 {
		return nil
	}
	return append([]complex128(nil), s.vectors[0]...)
}

// Replace overwrites the best candidate with an improved state.
func (s *StateCandidates) Replace(best []complex128) error {
	if len(best) != s.dim {
		return Invalid("optimized state", "expected %d amplitudes, got %d", s.dim, len(best))
	}
	psi, err := Normalize(best)
	if err != nil {
		return Invalid("optimized state", "%v", err)
	}
	if len(s.vectors) == 0 {
		s.vectors = [][]complex128{psi}
		return nil
	}
	s.vectors[0] = psi
	return nil
}
