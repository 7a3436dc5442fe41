package renoplan

import "encoding/json"

// ConsultRequest is one renovation consultation request.
// Brief is the free-text requirement and carries the available budget.
// The three geo fields are optional but only valid as a group; when set,
// candidate selection is narrowed to catalog locations within RadiusKm
// of the anchor point.
type ConsultRequest struct {
	Brief    string
	Lat      *float64
	Lon      *float64
	RadiusKm *float64
}

// ConsultResponse carries the outcome of one consultation run.
type ConsultResponse struct {
	// Results are the raw JSON blueprints, best investment score first.
	Results []json.RawMessage
	// RunID is the server-assigned identifier of the dispatch run.
	RunID string
	// EngineTokens is the total token usage the engine reported for the
	// run; zero when the engine was never called.
	EngineTokens int
}

// HealthStatus represents the aggregated service health.
type HealthStatus struct {
	Status  string            // "ok" or "degraded"
	Version string
	Checks  map[string]string // component -> "ok"/"error"
}
