package domain

import "time"

// AnalysisConfig holds internal analysis-engine settings, not exposed to clients.
type AnalysisConfig struct {
	Model        string
	Temperature  float32
	MaxRetries   int
	RetryBackoff time.Duration
	Timeout      time.Duration
}

// DefaultAnalysisConfig returns defaults tuned for JSON-mode chat completion models.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Model:        "gpt-4o-mini",
		Temperature:  0.2,
		MaxRetries:   2,
		RetryBackoff: 500 * time.Millisecond,
		Timeout:      60 * time.Second,
	}
}
