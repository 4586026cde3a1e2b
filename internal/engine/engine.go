// Package engine defines the versioned calling contract between the
// dispatcher and an external optimization engine.
package engine

import "context"

// SchemaVersion is the wire schema every Request and Response carries.
const SchemaVersion = "v1"

// Engine runs one optimization to completion. Implementations block until
// the episode budget is exhausted; ctx only bounds transport.
type Engine interface {
	Optimize(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts an ordinary function to Engine.
type Func func(ctx context.Context, req *Request) (*Response, error)

func (f Func) Optimize(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Variant names the engine problem builder and the entry point that runs
// it, e.g. {"GRAPE_Copt", "QFIM_autoGRAPE_Copt"}.
type Variant struct {
	Builder    string `json:"builder" msgpack:"builder"`
	EntryPoint string `json:"entry_point" msgpack:"entry_point"`
}

func (v Variant) String() string {
	return v.Builder + "/" + v.EntryPoint
}

// IsZero reports whether the variant is unset.
func (v Variant) IsZero() bool {
	return v.Builder == "" && v.EntryPoint == ""
}

// Moments are the first and second moment accumulators of the adaptive
// gradient optimizer, carried between calls of the same job.
type Moments struct {
	M float64 `json:"m" msgpack:"m"`
	V float64 `json:"v" msgpack:"v"`
}
