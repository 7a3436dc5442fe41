package health

import "context"

// DBPinger checks catalog storage availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EngineChecker checks analysis engine availability.
type EngineChecker interface {
	HealthCheck(ctx context.Context) error
}
