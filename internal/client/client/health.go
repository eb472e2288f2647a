package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the health service name registered by the server.
const ServiceName = "gophfeed"

// Pinger reports whether the server is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      healthpb.HealthClient
}

// NewHealthClient prepares a lazily connecting client for endpointURL.
func NewHealthClient(endpointURL string) (*HealthClient, error) {
	conn, err := grpc.NewClient(endpointURL, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("health client: %w", err)
	}
	return &HealthClient{endpointURL: endpointURL, conn: conn, client: healthpb.NewHealthClient(conn)}, nil
}

func (s *HealthClient) Ping(ctx context.Context) error {
	resp, err := s.client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return s.mapError(err)
	}

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return ErrNotServing
	}

	return nil
}

func (s *HealthClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *HealthClient) mapError(err error) error {
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return ErrUnavailable
	case codes.NotFound:
		return ErrNotServing
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
