package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/casainvest/renoplan/internal/domain"
	domconsult "github.com/casainvest/renoplan/internal/domain/consult"
	consultuc "github.com/casainvest/renoplan/internal/usecase/consult"
	healthuc "github.com/casainvest/renoplan/internal/usecase/health"
	"github.com/casainvest/renoplan/internal/version"
)

// EngineTokensHeader reports engine tokens consumed by one consultation run.
const EngineTokensHeader = "X-Engine-Tokens"

// ConsultRunHeader carries the consultation run id for log correlation.
const ConsultRunHeader = "X-Consult-Run"

// errorCode is the machine-readable identifier in error responses.
type errorCode string

const (
	codeBadRequest         errorCode = "bad_request"
	codeValidationFailed   errorCode = "validation_failed"
	codeUnauthorized       errorCode = "unauthorized"
	codeForbidden          errorCode = "forbidden"
	codeAuthNotConfigured  errorCode = "auth_not_configured"
	codeNotFound           errorCode = "not_found"
	codeCatalogUnavailable errorCode = "catalog_unavailable"
	codeEngineError        errorCode = "engine_error"
	codeRateLimited        errorCode = "rate_limited"
	codeInternalError      errorCode = "internal_error"
)

// errorResponse is the error envelope shared by every endpoint.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// consultRequest mirrors the consultation request body. The geo anchor
// fields are pointers so that absent and zero-valued coordinates stay
// distinguishable.
type consultRequest struct {
	Brief    string   `json:"cerinta_user"`
	Lat      *float64 `json:"latitudine"`
	Lon      *float64 `json:"longitudine"`
	RadiusKm *float64 `json:"raza_km"`
}

// consultResponse carries the ranked blueprints verbatim.
type consultResponse struct {
	Results []json.RawMessage `json:"rezultate"`
}

type healthResponse struct {
	Status  string                          `json:"status"`
	Version string                          `json:"version"`
	Checks  map[string]healthuc.CheckResult `json:"checks"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the consultation API over HTTP.
type Server struct {
	consult       *consultuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(consult *consultuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		consult: consult,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyBrief, http.StatusUnprocessableEntity, codeValidationFailed),
		sentinelHandler(domain.ErrIncompleteGeo, http.StatusUnprocessableEntity, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidCoordinates, http.StatusUnprocessableEntity, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidRadius, http.StatusUnprocessableEntity, codeValidationFailed),
		sentinelHandler(domain.ErrLocationNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrCatalogUnavailable, http.StatusBadGateway, codeCatalogUnavailable),
		sentinelHandler(domain.ErrEngineRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEngineError, http.StatusBadGateway, codeEngineError),
	}
	return s
}

// Routes mounts the API endpoints on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/planuri-renovare-strategice", s.Consult)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Consult handles POST /planuri-renovare-strategice. The connection stays
// open for the whole run; blueprints are returned ranked, best first.
func (s *Server) Consult(w http.ResponseWriter, r *http.Request) {
	var req consultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	requirement, err := domconsult.NewRequirement(req.Brief, req.Lat, req.Lon, req.RadiusKm)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	report, err := s.consult.Consult(ctx, requirement)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	results := make([]json.RawMessage, len(report.Blueprints))
	for i := range report.Blueprints {
		results[i] = report.Blueprints[i].Doc()
	}

	w.Header().Set(ConsultRunHeader, report.RunID)
	setEngineHeaders(w, usage)
	writeJSON(w, http.StatusOK, consultResponse{Results: results})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEngineHeaders(w http.ResponseWriter, usage *domain.EngineUsage) {
	if usage != nil && usage.Calls() > 0 {
		w.Header().Set(EngineTokensHeader, strconv.Itoa(usage.TotalTokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyBrief,
		domain.ErrIncompleteGeo,
		domain.ErrInvalidCoordinates,
		domain.ErrInvalidRadius,
		domain.ErrLocationNotFound,
		domain.ErrCatalogUnavailable,
		domain.ErrEngineRateLimited,
		domain.ErrEngineError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
