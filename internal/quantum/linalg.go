package quantum

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// DefaultTolerance is the numeric tolerance used by completeness and
// positivity checks.
const DefaultTolerance = 1e-8

// NewMatrix copies rows into a complex matrix. Rows must be non-empty
// and rectangular.
func NewMatrix(rows [][]complex128) (*mat.CDense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("matrix has no elements")
	}
	c := len(rows[0])
	data := make([]complex128, 0, len(rows)*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), c)
		}
		data = append(data, row...)
	}
	return mat.NewCDense(len(rows), c, data), nil
}

// Rows returns the elements of m as a fresh row-major slice.
func Rows(m *mat.CDense) [][]complex128 {
	r, c := m.Dims()
	out := make([][]complex128, r)
	for i := range out {
		out[i] = make([]complex128, c)
		for j := range out[i] {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

// Zeros returns an n×n zero matrix.
func Zeros(n int) *mat.CDense {
	return mat.NewCDense(n, n, nil)
}

// Identity returns the n×n identity matrix.
func Identity(n int) *mat.CDense {
	m := Zeros(n)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Clone returns a deep copy of m.
func Clone(m *mat.CDense) *mat.CDense {
	r, c := m.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(i, j))
		}
	}
	return out
}

// Add returns a+b.
func Add(a, b *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, a.At(i, j)+b.At(i, j))
		}
	}
	return out
}

// Scale returns s·a.
func Scale(s complex128, a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, s*a.At(i, j))
		}
	}
	return out
}

// Mul returns the matrix product a·b.
func Mul(a, b *mat.CDense) *mat.CDense {
	r, k := a.Dims()
	_, c := b.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			var sum complex128
			for l := 0; l < k; l++ {
				sum += a.At(i, l) * b.At(l, j)
			}
			out.Set(i, j, sum)
		}
	}
	return out
}

// Outer returns the projector-shaped product v·v†.
func Outer(v []complex128) *mat.CDense {
	n := len(v)
	out := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, v[i]*cmplx.Conj(v[j]))
		}
	}
	return out
}

// Sum adds every matrix in ms. ms must be non-empty.
func Sum(ms []*mat.CDense) *mat.CDense {
	out := Clone(ms[0])
	for _, m := range ms[1:] {
		out = Add(out, m)
	}
	return out
}

// MaxAbsDiff returns the largest elementwise modulus of a-b.
func MaxAbsDiff(a, b *mat.CDense) float64 {
	r, c := a.Dims()
	var worst float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			worst = math.Max(worst, cmplx.Abs(a.At(i, j)-b.At(i, j)))
		}
	}
	return worst
}

// IsIdentity reports whether m is the identity within tol.
func IsIdentity(m *mat.CDense, tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}
	return MaxAbsDiff(m, Identity(r)) <= tol
}

// IsHermitian reports whether m equals its conjugate transpose within tol.
func IsHermitian(m *mat.CDense, tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			if cmplx.Abs(m.At(i, j)-cmplx.Conj(m.At(j, i))) > tol {
				return false
			}
		}
	}
	return true
}

// HermitianEigenvalues returns the eigenvalues of a Hermitian matrix in
// ascending order. H = A + iB is embedded as the real symmetric matrix
// [[A, -B], [B, A]], whose spectrum is that of H with every eigenvalue
// doubled.
func HermitianEigenvalues(h *mat.CDense) ([]float64, error) {
	n, _ := h.Dims()
	sym := mat.NewSymDense(2*n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := h.At(i, j)
			sym.SetSym(i, j, real(v))
			sym.SetSym(n+i, n+j, real(v))
			sym.SetSym(i, n+j, -imag(v))
			sym.SetSym(j, n+i, imag(v))
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(sym, false); !ok {
		return nil, fmt.Errorf("eigendecomposition did not converge")
	}
	doubled := eig.Values(nil)
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = doubled[2*i]
	}
	return vals, nil
}

// Inner returns the inner product ⟨u|v⟩ = Σ conj(u_i)·v_i.
func Inner(u, v []complex128) complex128 {
	var sum complex128
	for i := range u {
		sum += cmplx.Conj(u[i]) * v[i]
	}
	return sum
}

// VecNorm returns the Euclidean norm of v.
func VecNorm(v []complex128) float64 {
	return math.Sqrt(real(Inner(v, v)))
}

// Normalize returns v scaled to unit norm.
func Normalize(v []complex128) ([]complex128, error) {
	n := VecNorm(v)
	if n == 0 {
		return nil, fmt.Errorf("cannot normalize the zero vector")
	}
	out := make([]complex128, len(v))
	for i := range v {
		out[i] = v[i] / complex(n, 0)
	}
	return out, nil
}

// GramSchmidt orthonormalizes vs in order using the modified Gram–Schmidt
// process. Linearly dependent input is an error.
func GramSchmidt(vs [][]complex128) ([][]complex128, error) {
	out := make([][]complex128, 0, len(vs))
	for i, v := range vs {
		w := append([]complex128(nil), v...)
		for _, q := range out {
			p := Inner(q, w)
			for k := range w {
				w[k] -= p * q[k]
			}
		}
		if VecNorm(w) < DefaultTolerance {
			return nil, fmt.Errorf("vector %d is linearly dependent on its predecessors", i)
		}
		q, err := Normalize(w)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// Adjoint returns the conjugate transpose of m.
func Adjoint(m *mat.CDense) *mat.CDense {
	r, c := m.Dims()
	out := mat.NewCDense(c, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(j, i, cmplx.Conj(m.At(i, j)))
		}
	}
	return out
}
