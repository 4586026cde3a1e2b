// Package measurement builds the measurement-operator families that
// CFIM objectives are evaluated against and that measurement
// optimization improves.
package measurement

import (
	"fmt"

	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
)

// Kind identifies a measurement family.
type Kind int

const (
	// Projection is a rank-1 projective measurement from an orthonormal basis.
	Projection Kind = iota
	// SICPOVM is the Weyl–Heisenberg SIC-POVM of a tabulated fiducial.
	SICPOVM
	// Given is a user-supplied POVM.
	Given
	// Rotation optimizes a unitary rotation of a fixed POVM basis.
	Rotation
	// Input optimizes linear combinations of a fixed POVM basis.
	Input
)

var kindNames = map[Kind]string{
	Projection: "projection",
	SICPOVM:    "sicpovm",
	Given:      "given",
	Rotation:   "rotation",
	Input:      "input",
}

// Kinds lists every kind in tag order.
var Kinds = []Kind{Projection, SICPOVM, Given, Rotation, Input}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Optimizable reports whether the dispatcher can optimize a set of this
// kind directly. Given and SIC sets only serve as fixed bases.
func (k Kind) Optimizable() bool {
	return k == Projection || k == Rotation || k == Input
}

// ParseKind maps a measurement-type tag to a Kind.
func ParseKind(tag string) (Kind, error) {
	for _, k := range Kinds {
		if kindNames[k] == tag {
			return k, nil
		}
	}
	valid := make([]string, len(Kinds))
	for i, k := range Kinds {
		valid[i] = kindNames[k]
	}
	return 0, &quantum.UnknownTagError{Axis: "measurement type", Value: tag, Valid: valid}
}
