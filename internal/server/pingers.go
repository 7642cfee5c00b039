package server

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /api/ready.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Probe adapts a plain ping function into a Pinger. Used for dependencies
// that already expose a Ping method with no name, such as the generation
// client.
type Probe struct {
	// name identifies the dependency in readiness responses.
	name string
	// fn is the reachability check.
	fn func(ctx context.Context) error
}

// NewProbe constructs a Probe with the given label and check function.
func NewProbe(name string, fn func(ctx context.Context) error) *Probe {
	return &Probe{name: name, fn: fn}
}

// Name returns the dependency label used in readiness responses.
func (p *Probe) Name() string { return p.name }

// Ping runs the wrapped check.
func (p *Probe) Ping(ctx context.Context) error {
	if err := p.fn(ctx); err != nil {
		return fmt.Errorf("%s unreachable: %w", p.name, err)
	}
	return nil
}
