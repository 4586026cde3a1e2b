package config

import (
	"gopkg.in/yaml.v3"

	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
	"github.com/GoSim-25-26J-441/estimation-core/internal/results"
	"github.com/GoSim-25-26J-441/estimation-core/pkg/utils"
)

// ComplexVector is a YAML sequence of numbers or complex literals such as
// "0.5+0.25j".
type ComplexVector []complex128

func (v *ComplexVector) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return quantum.Invalid("vector", "line %d: expected a sequence of scalars", node.Line)
	}
	out := make(ComplexVector, len(node.Content))
	for i, n := range node.Content {
		c, err := scalar(n)
		if err != nil {
			return err
		}
		out[i] = c
	}
	*v = out
	return nil
}

// ComplexMatrix is a YAML sequence of rows.
type ComplexMatrix quantum.Matrix

func (m *ComplexMatrix) UnmarshalYAML(node *yaml.Node) error {
	if !isMatrix(node) {
		return quantum.Invalid("matrix", "line %d: expected a sequence of rows", node.Line)
	}
	out := make(ComplexMatrix, len(node.Content))
	for i, row := range node.Content {
		var v ComplexVector
		if err := v.UnmarshalYAML(row); err != nil {
			return err
		}
		out[i] = v
	}
	*m = out
	return nil
}

// MatrixSequence is a YAML list of matrices. A bare matrix is rejected.
type MatrixSequence []ComplexMatrix

func (s *MatrixSequence) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return quantum.Invalid("matrix list", "line %d: expected a list of matrices", node.Line)
	}
	if len(node.Content) > 0 && !isMatrix(node.Content[0]) {
		return quantum.Invalid("matrix list", "line %d: expected a list of matrices, got a single matrix", node.Line)
	}
	out := make(MatrixSequence, len(node.Content))
	for i, n := range node.Content {
		if err := out[i].UnmarshalYAML(n); err != nil {
			return err
		}
	}
	*s = out
	return nil
}

// MatrixList is a list of matrices that also accepts a single matrix.
type MatrixList []ComplexMatrix

func (l *MatrixList) UnmarshalYAML(node *yaml.Node) error {
	if isMatrix(node) && len(node.Content) > 0 && !isMatrix(node.Content[0]) {
		var m ComplexMatrix
		if err := m.UnmarshalYAML(node); err != nil {
			return err
		}
		*l = MatrixList{m}
		return nil
	}
	var s MatrixSequence
	if err := s.UnmarshalYAML(node); err != nil {
		return err
	}
	*l = MatrixList(s)
	return nil
}

// TimeGrid is an explicit list of times or {start, stop, points}.
type TimeGrid []float64

func (g *TimeGrid) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var ts []float64
		if err := node.Decode(&ts); err != nil {
			return err
		}
		*g = ts
		return nil
	case yaml.MappingNode:
		var span struct {
			Start  float64 `yaml:"start"`
			Stop   float64 `yaml:"stop"`
			Points int     `yaml:"points"`
		}
		if err := node.Decode(&span); err != nil {
			return err
		}
		if span.Points < 2 {
			return quantum.Invalid("time grid", "points must be at least 2, got %d", span.Points)
		}
		*g = utils.Linspace(span.Start, span.Stop, span.Points)
		return nil
	default:
		return quantum.Invalid("time grid", "line %d: expected a list or {start, stop, points}", node.Line)
	}
}

func isMatrix(node *yaml.Node) bool {
	if node.Kind != yaml.SequenceNode {
		return false
	}
	for _, row := range node.Content {
		if row.Kind != yaml.SequenceNode {
			return false
		}
	}
	return true
}

func scalar(node *yaml.Node) (complex128, error) {
	if node.Kind != yaml.ScalarNode {
		return 0, quantum.Invalid("matrix entry", "line %d: expected a number", node.Line)
	}
	c, err := results.ParseComplex(node.Value)
	if err != nil {
		return 0, quantum.Invalid("matrix entry", "line %d: %v", node.Line, err)
	}
	return c, nil
}

// Matrices converts the list to the quantum package's form.
func (s MatrixSequence) Matrices() []quantum.Matrix { return toMatrices(s) }

// Matrices converts the list to the quantum package's form.
func (l MatrixList) Matrices() []quantum.Matrix { return toMatrices(l) }

func toMatrices(ms []ComplexMatrix) []quantum.Matrix {
	if len(ms) == 0 {
		return nil
	}
	out := make([]quantum.Matrix, len(ms))
	for i, m := range ms {
		out[i] = quantum.Matrix(m)
	}
	return out
}

// Vectors converts the vectors to plain slices.
func Vectors(vs []ComplexVector) [][]complex128 {
	if len(vs) == 0 {
		return nil
	}
	out := make([][]complex128, len(vs))
	for i, v := range vs {
		out[i] = []complex128(v)
	}
	return out
}
