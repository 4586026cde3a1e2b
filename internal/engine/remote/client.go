package remote

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/estimation-core/internal/engine"
	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
)

// Client is an engine.Engine backed by a remote OptimizationEngine.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Dial connects to addr without transport security and returns the
// client with the connection to close when done.
func Dial(addr string, opts ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("dial engine %s: %w", addr, err)
	}
	return NewClient(conn), conn, nil
}

// Optimize sends req and waits for the engine to finish.
func (c *Client) Optimize(ctx context.Context, req *engine.Request) (*engine.Response, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, optimizeMethod, in, out); err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.InvalidArgument {
			return nil, &quantum.ValidationError{Field: "engine request", Reason: st.Message()}
		}
		return nil, fmt.Errorf("remote engine %s: %w", req.Variant.EntryPoint, err)
	}

	var resp engine.Response
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	if resp.SchemaVersion != engine.SchemaVersion {
		return nil, fmt.Errorf("remote engine answered with schema %q, expected %q", resp.SchemaVersion, engine.SchemaVersion)
	}
	return &resp, nil
}
