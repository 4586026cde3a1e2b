package remote

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/estimation-core/internal/engine"
	"github.com/GoSim-25-26J-441/estimation-core/internal/engine/enginetest"
	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
	"github.com/GoSim-25-26J-441/estimation-core/pkg/logger"
)

func startServer(t *testing.T, eng engine.Engine) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	Register(s, eng, logger.Discard())
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	client, conn, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return client
}

func request() *engine.Request {
	sz := engine.Matrix{{1, 0}, {0, -1}}
	return &engine.Request{
		SchemaVersion:       engine.SchemaVersion,
		JobID:               "job-test",
		Variant:             engine.Variant{Builder: "GRAPE_Copt", EntryPoint: "QFIM_autoGRAPE_Copt"},
		Regime:              "dynamics",
		FreeHamiltonian:     []engine.Matrix{sz},
		Derivatives:         []engine.Matrix{sz},
		InitialState:        engine.Matrix{{0.5, 0.5i}, {-0.5i, 0.5}},
		TimeGrid:            []float64{0, 0.5, 1},
		DecayOperators:      []engine.Matrix{sz},
		DecayRates:          []float64{0.1},
		ControlGenerators:   []engine.Matrix{{{0, 1}, {1, 0}}},
		ControlCoefficients: [][]float64{{0.1, -0.1, 0.05}},
		ControlBounds:       []engine.Interval{engine.Unbounded},
		Weight:              [][]float64{{1}},
		Moments:             engine.Moments{M: 0.25, V: 0.5},
		Tolerance:           1e-8,
		Hyperparameters:     engine.Hyperparameters{MaxEpisode: []int{300}, Epsilon: 0.01},
	}
}

func TestOptimizeOverGRPC(t *testing.T) {
	rec := &enginetest.Recorder{}
	client := startServer(t, rec)

	req := request()
	resp, err := client.Optimize(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, engine.SchemaVersion, resp.SchemaVersion)
	assert.Equal(t, [][]float64{{0.1, -0.1, 0.05}}, resp.Coefficients)
	assert.Equal(t, engine.Moments{M: 1.25, V: 1.5}, resp.Moments)
	assert.Equal(t, []float64{1, 2, 3}, resp.Trajectory)

	require.Equal(t, 1, rec.Calls())
	got := rec.Last()
	assert.Equal(t, req, got, "request must survive the trip unchanged")
}

func TestInvalidRequestRejectedBeforeEngine(t *testing.T) {
	rec := &enginetest.Recorder{}
	client := startServer(t, rec)

	req := request()
	req.ControlCoefficients = nil
	_, err := client.Optimize(context.Background(), req)
	require.ErrorIs(t, err, quantum.ErrValidation)
	assert.Contains(t, err.Error(), "control coefficients")
	assert.Zero(t, rec.Calls())
}

func TestEngineErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"validation", quantum.Invalid("weight", "singular"), codes.InvalidArgument},
		{"internal", errors.New("solver diverged"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := &Server{
				eng: &enginetest.Recorder{Respond: func(*engine.Request) (*engine.Response, error) { return nil, tt.err }},
				log: logger.Discard(),
			}
			in, err := toStruct(request())
			require.NoError(t, err)
			_, err = srv.Optimize(context.Background(), in)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestNilEngineResponseIsInternal(t *testing.T) {
	srv := &Server{
		eng: engine.Func(func(context.Context, *engine.Request) (*engine.Response, error) { return nil, nil }),
		log: logger.Discard(),
	}
	in, err := toStruct(request())
	require.NoError(t, err)
	out, err := srv.Optimize(context.Background(), in)
	assert.Nil(t, out)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestInternalErrorOverGRPC(t *testing.T) {
	client := startServer(t, &enginetest.Recorder{Respond: func(*engine.Request) (*engine.Response, error) {
		return nil, errors.New("solver diverged")
	}})
	_, err := client.Optimize(context.Background(), request())
	require.Error(t, err)
	assert.NotErrorIs(t, err, quantum.ErrValidation)
	assert.Equal(t, codes.Internal, status.Code(errors.Unwrap(err)))
}

func TestServerRejectsMalformedPayload(t *testing.T) {
	srv := &Server{eng: &enginetest.Recorder{}, log: logger.Discard()}
	_, err := srv.Optimize(context.Background(), nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	bad, err := structpb.NewStruct(map[string]any{"time_grid": "not a list"})
	require.NoError(t, err)
	_, err = srv.Optimize(context.Background(), bad)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestClientRejectsSchemaMismatch(t *testing.T) {
	client := startServer(t, engine.Func(func(context.Context, *engine.Request) (*engine.Response, error) {
		return &engine.Response{SchemaVersion: "v2"}, nil
	}))
	_, err := client.Optimize(context.Background(), request())
	assert.ErrorContains(t, err, `schema "v2"`)
}
