package domain

import (
	"context"
	"sync/atomic"
)

type engineUsageKey struct{}

// EngineUsage collects engine token usage for a single HTTP request.
// The handler puts a collector into the context before calling the service;
// concurrent dispatches add to it; the handler reads it for response headers.
// Counters are atomic because one consultation runs many engine calls at once.
type EngineUsage struct {
	totalTokens atomic.Int64
	calls       atomic.Int64
}

// NewContextWithUsage returns a context with an engine usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EngineUsage) {
	u := &EngineUsage{}
	return context.WithValue(ctx, engineUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EngineUsage {
	u, _ := ctx.Value(engineUsageKey{}).(*EngineUsage)
	return u
}

// AddTokens records tokens consumed by one engine call.
func (u *EngineUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.totalTokens.Add(int64(n))
	u.calls.Add(1)
}

// TotalTokens returns the tokens consumed so far.
func (u *EngineUsage) TotalTokens() int {
	if u == nil {
		return 0
	}
	return int(u.totalTokens.Load())
}

// Calls returns the number of engine calls recorded so far.
func (u *EngineUsage) Calls() int {
	if u == nil {
		return 0
	}
	return int(u.calls.Load())
}
