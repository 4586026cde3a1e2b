package measurement

import (
	"fmt"
	"io/fs"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
	"github.com/GoSim-25-26J-441/estimation-core/pkg/utils"
)

// DefaultSeed seeds random projective bases when the caller has no
// preference.
const DefaultSeed = 1234

// Options carries the variant-specific construction inputs. Fields a
// kind does not use are ignored.
type Options struct {
	// Seed drives the random basis of a Projection without Basis.
	Seed int64
	// Basis is a supplied projective basis, one vector per outcome.
	Basis [][]complex128
	// Operators is the POVM of a Given set.
	Operators []quantum.Matrix
	// Base is the fixed POVM basis of a Rotation or Input set. It must be
	// a Given or SICPOVM set; nil selects the SIC-POVM of the dimension.
	Base *Set
	// Count is the number of operators an Input set produces.
	Count int
	// Fiducials overrides the bundled fiducial dataset.
	Fiducials fs.FS
	// Tolerance for constraint checks, quantum.DefaultTolerance if zero.
	Tolerance float64
}

// Set is one measurement. Engines overwrite its operators with improved
// values through Update and UpdateVectors.
type Set struct {
	kind  Kind
	dim   int
	tol   float64
	count int

	vectors   [][]complex128
	povm      []*mat.CDense
	baseKind  Kind
	optimized []*mat.CDense
}

// FromTag resolves tag with ParseKind and builds the set.
func FromTag(tag string, dim int, opts Options) (*Set, error) {
	kind, err := ParseKind(tag)
	if err != nil {
		return nil, err
	}
	return New(kind, dim, opts)
}

// New builds a measurement of the given kind over a dim-dimensional
// system, checking the kind's physical constraints.
func New(kind Kind, dim int, opts Options) (*Set, error) {
	if dim <= 0 {
		return nil, quantum.Invalid("measurement dimension", "must be positive, got %d", dim)
	}
	tol := opts.Tolerance
	if tol == 0 {
		tol = quantum.DefaultTolerance
	}
	fsys := opts.Fiducials
	if fsys == nil {
		fsys = Fiducials
	}

	switch kind {
	case Projection:
		if len(opts.Basis) == 0 {
			return NewRandomProjection(dim, opts.Seed)
		}
		return NewProjection(dim, opts.Basis, tol)
	case SICPOVM:
		return NewSICPOVM(dim, fsys)
	case Given:
		return NewGiven(dim, opts.Operators, tol)
	case Rotation, Input:
		base := opts.Base
		if base == nil {
			var err error
			if base, err = NewSICPOVM(dim, fsys); err != nil {
				return nil, err
			}
		}
		if kind == Rotation {
			return NewRotation(base)
		}
		return NewInput(base, opts.Count)
	default:
		return nil, quantum.Invalid("measurement type", "unknown kind %v", kind)
	}
}

// NewRandomProjection draws dim candidate vectors from a generator seeded
// with seed (a unit-norm uniform direction with a uniform phase per
// coordinate) and orthonormalizes them. The same seed and dimension
// always give the same basis.
func NewRandomProjection(dim int, seed int64) (*Set, error) {
	rng := utils.NewRandSource(seed)
	candidates := make([][]complex128, dim)
	for i := range candidates {
		r := rng.UniformVector(dim, -1, 1)
		floats.Scale(1/floats.Norm(r, 2), r)
		phi := rng.Phases(dim)
		v := make([]complex128, dim)
		for k := range v {
			v[k] = complex(r[k], 0) * cmplx.Exp(complex(0, phi[k]))
		}
		candidates[i] = v
	}
	basis, err := quantum.GramSchmidt(candidates)
	if err != nil {
		return nil, fmt.Errorf("orthonormalize random basis: %w", err)
	}
	return &Set{kind: Projection, dim: dim, tol: quantum.DefaultTolerance, count: dim, vectors: basis}, nil
}

// NewProjection uses basis as given. It is not re-orthonormalized, so it
// must already induce projectors that sum to the identity.
func NewProjection(dim int, basis [][]complex128, tol float64) (*Set, error) {
	vs, err := checkBasis(dim, basis, tol)
	if err != nil {
		return nil, err
	}
	return &Set{kind: Projection, dim: dim, tol: tol, count: dim, vectors: vs}, nil
}

// NewSICPOVM builds the Weyl–Heisenberg SIC-POVM from the fiducial for
// dim in fsys. Dimensions without a tabulated fiducial fail with a
// ResourceNotFoundError.
func NewSICPOVM(dim int, fsys fs.FS) (*Set, error) {
	fiducial, err := LoadFiducial(fsys, dim)
	if err != nil {
		return nil, err
	}
	ops := weylHeisenbergOrbit(fiducial)
	return &Set{kind: SICPOVM, dim: dim, tol: quantum.DefaultTolerance, count: len(ops), povm: ops}, nil
}

// NewGiven checks that every operator is positive semidefinite and that
// the set sums to the identity.
func NewGiven(dim int, operators []quantum.Matrix, tol float64) (*Set, error) {
	if len(operators) == 0 {
		return nil, quantum.Invalid("given measurement", "at least one operator is required")
	}
	ops := make([]*mat.CDense, len(operators))
	for i, m := range operators {
		op, err := quantum.NewMatrix(m)
		if err != nil {
			return nil, quantum.Invalid(fmt.Sprintf("given measurement[%d]", i), "%v", err)
		}
		if r, c := op.Dims(); r != dim || c != dim {
			return nil, quantum.Invalid(fmt.Sprintf("given measurement[%d]", i), "expected %dx%d, got %dx%d", dim, dim, r, c)
		}
		ops[i] = op
	}
	if err := CheckPOVM(ops, tol); err != nil {
		return nil, err
	}
	return &Set{kind: Given, dim: dim, tol: tol, count: len(ops), povm: ops}, nil
}

// NewRotation optimizes a unitary rotation of base, keeping its operator
// count.
func NewRotation(base *Set) (*Set, error) {
	if err := checkBase(base); err != nil {
		return nil, err
	}
	return &Set{
		kind:     Rotation,
		dim:      base.dim,
		tol:      base.tol,
		count:    len(base.povm),
		povm:     base.povm,
		baseKind: base.kind,
	}, nil
}

// NewInput optimizes count linear combinations of base.
func NewInput(base *Set, count int) (*Set, error) {
	if err := checkBase(base); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, quantum.Invalid("measurement count", "must be positive, got %d", count)
	}
	return &Set{
		kind:     Input,
		dim:      base.dim,
		tol:      base.tol,
		count:    count,
		povm:     base.povm,
		baseKind: base.kind,
	}, nil
}

func checkBase(base *Set) error {
	if base == nil {
		return quantum.Invalid("measurement basis", "a POVM basis is required")
	}
	if base.kind != Given && base.kind != SICPOVM {
		return quantum.Invalid("measurement basis", "must be %s or %s, got %s", Given, SICPOVM, base.kind)
	}
	return nil
}

func (s *Set) Kind() Kind { return s.kind }

func (s *Set) Dim() int { return s.dim }

// Count is the number of operators the set yields.
func (s *Set) Count() int { return s.count }

// BaseKind is the kind of the fixed basis of a Rotation or Input set.
func (s *Set) BaseKind() (Kind, bool) {
	if s.kind == Rotation || s.kind == Input {
		return s.baseKind, true
	}
	return 0, false
}

// Vectors returns a copy of the projective basis, or nil for other kinds.
func (s *Set) Vectors() [][]complex128 {
	if s.vectors == nil {
		return nil
	}
	out := make([][]complex128, len(s.vectors))
	for i, v := range s.vectors {
		out[i] = append([]complex128(nil), v...)
	}
	return out
}

// Basis returns the fixed POVM basis of SIC, Given, Rotation and Input
// sets.
func (s *Set) Basis() []*mat.CDense {
	return cloneAll(s.povm)
}

// Operators returns the current measurement operators.
func (s *Set) Operators() []*mat.CDense {
	switch {
	case s.vectors != nil:
		ops := make([]*mat.CDense, len(s.vectors))
		for i, v := range s.vectors {
			ops[i] = quantum.Outer(v)
		}
		return ops
	case s.optimized != nil:
		return cloneAll(s.optimized)
	default:
		return cloneAll(s.povm)
	}
}

// Optimized reports whether an engine has written operators back.
func (s *Set) Optimized() bool { return s.optimized != nil }

// UpdateVectors replaces the basis of a Projection with engine output.
func (s *Set) UpdateVectors(basis [][]complex128) error {
	if s.kind != Projection {
		return quantum.Invalid("measurement update", "%s sets are updated with operators", s.kind)
	}
	vs, err := checkBasis(s.dim, basis, s.tol)
	if err != nil {
		return err
	}
	s.vectors = vs
	return nil
}

// Update replaces the operators of a Rotation or Input set with engine
// output. The result must still be a POVM.
func (s *Set) Update(ops []*mat.CDense) error {
	if s.kind != Rotation && s.kind != Input {
		return quantum.Invalid("measurement update", "%s sets cannot take optimized operators", s.kind)
	}
	if len(ops) != s.count {
		return quantum.Invalid("measurement update", "expected %d operators, got %d", s.count, len(ops))
	}
	for i, op := range ops {
		if r, c := op.Dims(); r != s.dim || c != s.dim {
			return quantum.Invalid(fmt.Sprintf("measurement update[%d]", i), "expected %dx%d, got %dx%d", s.dim, s.dim, r, c)
		}
	}
	if err := CheckPOVM(ops, s.tol); err != nil {
		return err
	}
	s.optimized = cloneAll(ops)
	return nil
}

// CheckPOVM verifies that each operator is Hermitian with eigenvalues no
// smaller than -tol, and that the operators sum to the identity within
// tol.
func CheckPOVM(ops []*mat.CDense, tol float64) error {
	for i, op := range ops {
		if !quantum.IsHermitian(op, tol) {
			return &quantum.ConstraintError{Constraint: quantum.ConstraintPositive, Index: i, Reason: "operator is not Hermitian"}
		}
		vals, err := quantum.HermitianEigenvalues(op)
		if err != nil {
			return fmt.Errorf("eigenvalues of operator %d: %w", i, err)
		}
		if vals[0] < -tol {
			return &quantum.ConstraintError{
				Constraint: quantum.ConstraintPositive,
				Index:      i,
				Reason:     fmt.Sprintf("smallest eigenvalue %.3g is negative", vals[0]),
			}
		}
	}
	sum := quantum.Sum(ops)
	n, _ := sum.Dims()
	if d := quantum.MaxAbsDiff(sum, quantum.Identity(n)); d > tol {
		return &quantum.ConstraintError{
			Constraint: quantum.ConstraintCompleteness,
			Index:      -1,
			Reason:     fmt.Sprintf("operators sum to the identity only within %.3g", d),
		}
	}
	return nil
}

func checkBasis(dim int, basis [][]complex128, tol float64) ([][]complex128, error) {
	if len(basis) != dim {
		return nil, quantum.Invalid("projective basis", "expected %d vectors, got %d", dim, len(basis))
	}
	vs := make([][]complex128, dim)
	for i, v := range basis {
		if len(v) != dim {
			return nil, quantum.Invalid(fmt.Sprintf("projective basis[%d]", i), "expected %d amplitudes, got %d", dim, len(v))
		}
		if d := math.Abs(quantum.VecNorm(v) - 1); d > tol {
			return nil, &quantum.ConstraintError{
				Constraint: quantum.ConstraintOrthonormal,
				Index:      i,
				Reason:     fmt.Sprintf("vector norm differs from 1 by %.3g", d),
			}
		}
		vs[i] = append([]complex128(nil), v...)
	}
	ops := make([]*mat.CDense, dim)
	for i, v := range vs {
		ops[i] = quantum.Outer(v)
	}
	if d := quantum.MaxAbsDiff(quantum.Sum(ops), quantum.Identity(dim)); d > tol {
		return nil, &quantum.ConstraintError{
			Constraint: quantum.ConstraintCompleteness,
			Index:      -1,
			Reason:     fmt.Sprintf("projectors sum to the identity only within %.3g", d),
		}
	}
	return vs, nil
}

// weylHeisenbergOrbit returns the d² operators |ψ_ab⟩⟨ψ_ab|/d where
// ψ_ab = X^a Z^b ψ. The (-e^{iπ/d})^{ab} phase of the displacement
// operator cancels in the projector.
func weylHeisenbergOrbit(fiducial []complex128) []*mat.CDense {
	d := len(fiducial)
	scale := complex(1/float64(d), 0)
	ops := make([]*mat.CDense, 0, d*d)
	for a := 0; a < d; a++ {
		for b := 0; b < d; b++ {
			v := make([]complex128, d)
			for j, amp := range fiducial {
				phase := 2 * math.Pi * float64((b*j)%d) / float64(d)
				v[(j+a)%d] = cmplx.Exp(complex(0, phase)) * amp
			}
			ops = append(ops, quantum.Scale(scale, quantum.Outer(v)))
		}
	}
	return ops
}

func cloneAll(ms []*mat.CDense) []*mat.CDense {
	if ms == nil {
		return nil
	}
	out := make([]*mat.CDense, len(ms))
	for i, m := range ms {
		out[i] = quantum.Clone(m)
	}
	return out
}
