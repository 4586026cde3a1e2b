package quantum

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// KrausSpec is the raw description of a parameterized quantum channel.
// Derivatives is indexed by parameter, then by Kraus operator.
type KrausSpec struct {
	Kraus        []Matrix
	Derivatives  [][]Matrix
	InitialState Matrix
	Weight       [][]float64
}

// KrausSystem is the validated Kraus-regime model.
type KrausSystem struct {
	dim         int
	kraus       []*mat.CDense
	derivatives [][]*mat.CDense
	state       *mat.CDense
	weight      *mat.Dense
}

// NewKrausSystem validates spec. The Kraus operators must form a
// trace-preserving channel (Σ K†K = I); missing derivatives default to a
// single parameter with zero derivatives.
func NewKrausSystem(spec KrausSpec) (*KrausSystem, error) {
	state, _, err := parseInitialState(spec.InitialState)
	if err != nil {
		return nil, err
	}
	dim, _ := state.Dims()

	if len(spec.Kraus) == 0 {
		return nil, Invalid("kraus operators", "at least one operator is required")
	}
	kraus, err := squareMatrices("kraus operators", spec.Kraus, dim)
	if err != nil {
		return nil, err
	}
	products := make([]*mat.CDense, len(kraus))
	for i, k := range kraus {
		products[i] = Mul(Adjoint(k), k)
	}
	if !IsIdentity(Sum(products), DefaultTolerance) {
		return nil, &ConstraintError{Constraint: ConstraintCompleteness, Index: -1, Reason: "the Kraus operators do not satisfy Σ K†K = I"}
	}

	derivatives := spec.Derivatives
	if len(derivatives) == 0 {
		zero := make([]Matrix, len(kraus))
		for i := range zero {
			zero[i] = Rows(Zeros(dim))
		}
		derivatives = [][]Matrix{zero}
	}
	dK := make([][]*mat.CDense, len(derivatives))
	for p, perOp := range derivatives {
		if len(perOp) != len(kraus) {
			return nil, Invalid(fmt.Sprintf("kraus derivatives[%d]", p), "expected %d matrices (one per Kraus operator), got %d", len(kraus), len(perOp))
		}
		if dK[p], err = squareMatrices(fmt.Sprintf("kraus derivatives[%d]", p), perOp, dim); err != nil {
			return nil, err
		}
	}

	weight, err := ResolveWeight(spec.Weight, len(dK))
	if err != nil {
		return nil, err
	}
	return &KrausSystem{dim: dim, kraus: kraus, derivatives: dK, state: state, weight: weight}, nil
}

func (k *KrausSystem) Regime() Regime { return Kraus }

func (k *KrausSystem) Dim() int { return k.dim }

func (k *KrausSystem) ParameterCount() int { return len(k.derivatives) }

func (k *KrausSystem) Kraus() []*mat.CDense { return cloneAll(k.kraus) }

// Derivatives returns the derivative matrices indexed by parameter, then
// by Kraus operator.
func (k *KrausSystem) Derivatives() [][]*mat.CDense {
	out := make([][]*mat.CDense, len(k.derivatives))
	for i, d := range k.derivatives {
		out[i] = cloneAll(d)
	}
	return out
}

func (k *KrausSystem) InitialState() *mat.CDense { return Clone(k.state) }

func (k *KrausSystem) Weight() *mat.Dense { return mat.DenseCopyOf(k.weight) }

func (k *KrausSystem) SetWeight(w [][]float64) error {
	weight, err := ResolveWeight(w, k.ParameterCount())
	if err != nil {
		return err
	}
	k.weight = weight
	return nil
}
