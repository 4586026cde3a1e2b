// Package enginetest provides an in-memory engine that records every
// request it receives.
package enginetest

import (
	"context"
	"sync"

	"github.com/GoSim-25-26J-441/estimation-core/internal/engine"
)

// Recorder is an engine.Engine for tests. By default it echoes the
// request's optimizable values back, advances both moments by one and
// reports a rising three-point trajectory.
type Recorder struct {
	// Respond overrides the default echo.
	Respond func(req *engine.Request) (*engine.Response, error)

	mu       sync.Mutex
	requests []*engine.Request
}

// Optimize records req and answers it.
func (r *Recorder) Optimize(ctx context.Context, req *engine.Request) (*engine.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	if r.Respond != nil {
		return r.Respond(req)
	}
	return Echo(req), nil
}

// Echo is the default response.
func Echo(req *engine.Request) *engine.Response {
	resp := &engine.Response{
		SchemaVersion:      engine.SchemaVersion,
		Coefficients:       req.ControlCoefficients,
		States:             req.StateCandidates,
		MeasurementVectors: req.MeasurementVectors,
		Trajectory:         []float64{1, 2, 3},
		Moments:            engine.Moments{M: req.Moments.M + 1, V: req.Moments.V + 1},
	}
	if req.MeasurementCount > 0 && len(req.MeasurementBasis) > 0 {
		resp.Measurement = req.MeasurementBasis[:req.MeasurementCount]
	}
	return resp
}

// Calls returns the number of requests seen.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// Requests returns the recorded requests in order.
func (r *Recorder) Requests() []*engine.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*engine.Request(nil), r.requests...)
}

// Last returns the most recent request, or nil.
func (r *Recorder) Last() *engine.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return nil
	}
	return r.requests[len(r.requests)-1]
}

// EntryPoints lists the entry point of every recorded request.
func (r *Recorder) EntryPoints() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.requests))
	for i, req := range r.requests {
		out[i] = req.Variant.EntryPoint
	}
	return out
}
