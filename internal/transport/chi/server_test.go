package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/casainvest/renoplan/internal/domain"
	"github.com/casainvest/renoplan/internal/domain/blueprint"
	"github.com/casainvest/renoplan/internal/domain/geo"
	"github.com/casainvest/renoplan/internal/domain/location"
	consultuc "github.com/casainvest/renoplan/internal/usecase/consult"
	healthuc "github.com/casainvest/renoplan/internal/usecase/health"
)

// --- Mocks ---

type mockCatalog struct {
	listActiveFn    func(ctx context.Context) ([]location.Location, error)
	listWithCoordFn func(ctx context.Context) ([]location.Location, error)
	getByNameFn     func(ctx context.Context, name string) (location.Location, error)
}

func (m *mockCatalog) ListActive(ctx context.Context) ([]location.Location, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalog) ListActiveWithCoordinates(ctx context.Context) ([]location.Location, error) {
	if m.listWithCoordFn != nil {
		return m.listWithCoordFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalog) GetByName(ctx context.Context, name string) (location.Location, error) {
	if m.getByNameFn != nil {
		return m.getByNameFn(ctx, name)
	}
	return location.Location{}, domain.ErrLocationNotFound
}

type mockEngine struct {
	analyzeFn func(ctx context.Context, brief string, loc location.Location) (blueprint.Blueprint, error)
}

func (m *mockEngine) Analyze(
	ctx context.Context, brief string, loc location.Location,
) (blueprint.Blueprint, error) {
	return m.analyzeFn(ctx, brief, loc)
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// --- Helpers ---

func mustLocation(t *testing.T, name string) location.Location {
	t.Helper()
	loc, err := location.New(name, []byte(`{"etaj":1}`), true, nil)
	if err != nil {
		t.Fatalf("location.New failed: %v", err)
	}
	return loc
}

func scoredEngine(scores map[string]float64, tokens int) *mockEngine {
	return &mockEngine{
		analyzeFn: func(ctx context.Context, _ string, loc location.Location) (blueprint.Blueprint, error) {
			score, ok := scores[loc.Name()]
			if !ok {
				return blueprint.Blueprint{}, fmt.Errorf("model unavailable: %w", domain.ErrEngineError)
			}
			domain.UsageFromContext(ctx).AddTokens(tokens)
			doc := fmt.Sprintf(
				`{"analiza_investitie":{"nume_locatie":%q,"scor_investitie":%v}}`,
				loc.Name(), score,
			)
			return blueprint.New(loc.Name(), []byte(doc))
		},
	}
}

func newTestRouter(catalog consultuc.CatalogReader, engine consultuc.Engine) http.Handler {
	policy := consultuc.Policy{MaxConcurrent: 4, LaunchInterval: 0, EngineTimeout: time.Second}
	svc := consultuc.New(catalog, engine, policy, zap.NewNop())
	healthSvc := healthuc.New(&mockPinger{}, nil)
	server := NewServer(svc, healthSvc, zap.NewNop())

	r := chi.NewRouter()
	server.Routes(r)
	return r
}

func doConsult(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/planuri-renovare-strategice", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// planProbe pulls the two ranked fields out of a raw blueprint document.
type planProbe struct {
	Analysis struct {
		Name   string  `json:"nume_locatie"`
		Score  float64 `json:"scor_investitie"`
		Status struct {
			Status string `json:"status"`
		} `json:"verdict"`
	} `json:"analiza_investitie"`
}

func decodeResults(t *testing.T, rr *httptest.ResponseRecorder) []planProbe {
	t.Helper()
	var resp struct {
		Results []json.RawMessage `json:"rezultate"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	probes := make([]planProbe, len(resp.Results))
	for i, raw := range resp.Results {
		if err := json.Unmarshal(raw, &probes[i]); err != nil {
			t.Fatalf("decode blueprint %d: %v", i, err)
		}
	}
	return probes
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return errResp
}

// --- Consultation tests ---

func TestConsult_RanksBlueprints(t *testing.T) {
	catalog := &mockCatalog{
		listActiveFn: func(_ context.Context) ([]location.Location, error) {
			return []location.Location{
				mustLocation(t, "Casa Veche"),
				mustLocation(t, "Vila Noua"),
			}, nil
		},
	}
	engine := scoredEngine(map[string]float64{"Casa Veche": 40, "Vila Noua": 90}, 120)

	rr := doConsult(t, newTestRouter(catalog, engine),
		`{"cerinta_user":"Buget 50000 EUR pentru renovare"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rr.Code, http.StatusOK, rr.Body.String())
	}
	if rr.Header().Get(ConsultRunHeader) == "" {
		t.Error("missing X-Consult-Run header")
	}
	if got := rr.Header().Get(EngineTokensHeader); got != "240" {
		t.Errorf("X-Engine-Tokens = %q, want 240", got)
	}

	probes := decodeResults(t, rr)
	if len(probes) != 2 {
		t.Fatalf("got %d results, want 2", len(probes))
	}
	if probes[0].Analysis.Name != "Vila Noua" || probes[0].Analysis.Score != 90 {
		t.Errorf("first result = %s (%v), want Vila Noua (90)",
			probes[0].Analysis.Name, probes[0].Analysis.Score)
	}
	if probes[1].Analysis.Name != "Casa Veche" {
		t.Errorf("second result = %s, want Casa Veche", probes[1].Analysis.Name)
	}
}

func TestConsult_EngineFailureIsolated(t *testing.T) {
	catalog := &mockCatalog{
		listActiveFn: func(_ context.Context) ([]location.Location, error) {
			return []location.Location{
				mustLocation(t, "Casa Unu"),
				mustLocation(t, "Casa Doi"),
				mustLocation(t, "Casa Trei"),
			}, nil
		},
	}
	// Casa Doi is missing from the score table: its analysis fails.
	engine := scoredEngine(map[string]float64{"Casa Unu": 80, "Casa Trei": 30}, 50)

	rr := doConsult(t, newTestRouter(catalog, engine), `{"cerinta_user":"Buget 20000 EUR"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	probes := decodeResults(t, rr)
	if len(probes) != 3 {
		t.Fatalf("got %d results, want 3", len(probes))
	}
	last := probes[2].Analysis
	if last.Name != "Casa Doi" {
		t.Errorf("failed plan ranked at %q, want last slot for Casa Doi", last.Name)
	}
	if last.Status.Status != blueprint.FailureStatus {
		t.Errorf("failure status = %q, want %q", last.Status.Status, blueprint.FailureStatus)
	}
	if last.Score != 0 {
		t.Errorf("failure score = %v, want 0", last.Score)
	}
}

func TestConsult_EmptyCatalog(t *testing.T) {
	catalog := &mockCatalog{
		listActiveFn: func(_ context.Context) ([]location.Location, error) {
			return []location.Location{}, nil
		},
	}
	engine := &mockEngine{
		analyzeFn: func(context.Context, string, location.Location) (blueprint.Blueprint, error) {
			panic("engine must not be called for an empty catalog")
		},
	}

	rr := doConsult(t, newTestRouter(catalog, engine), `{"cerinta_user":"Buget 20000 EUR"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != `{"rezultate":[]}` {
		t.Errorf("body = %s, want empty rezultate array", body)
	}
	if rr.Header().Get(EngineTokensHeader) != "" {
		t.Error("X-Engine-Tokens must be absent when no engine call ran")
	}
}

func TestConsult_MalformedBody(t *testing.T) {
	rr := doConsult(t, newTestRouter(&mockCatalog{}, &mockEngine{}), `{"cerinta_user":`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if errResp := decodeError(t, rr); errResp.Code != codeBadRequest {
		t.Errorf("error code = %s, want %s", errResp.Code, codeBadRequest)
	}
}

func TestConsult_EmptyBrief(t *testing.T) {
	rr := doConsult(t, newTestRouter(&mockCatalog{}, &mockEngine{}), `{"cerinta_user":"   "}`)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
	if errResp := decodeError(t, rr); errResp.Code != codeValidationFailed {
		t.Errorf("error code = %s, want %s", errResp.Code, codeValidationFailed)
	}
}

func TestConsult_IncompleteGeo(t *testing.T) {
	rr := doConsult(t, newTestRouter(&mockCatalog{}, &mockEngine{}),
		`{"cerinta_user":"Buget 20000 EUR","latitudine":44.43}`)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
	errResp := decodeError(t, rr)
	if errResp.Code != codeValidationFailed {
		t.Errorf("error code = %s, want %s", errResp.Code, codeValidationFailed)
	}
	if !strings.Contains(errResp.Message, "incomplete geo anchor") {
		t.Errorf("message = %q, want incomplete geo anchor explanation", errResp.Message)
	}
}

func TestConsult_InvalidRadius(t *testing.T) {
	rr := doConsult(t, newTestRouter(&mockCatalog{}, &mockEngine{}),
		`{"cerinta_user":"Buget 20000 EUR","latitudine":44.43,"longitudine":26.10,"raza_km":0}`)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
}

func TestConsult_CatalogUnavailable(t *testing.T) {
	catalog := &mockCatalog{
		listActiveFn: func(_ context.Context) ([]location.Location, error) {
			return nil, errors.New("connection refused")
		},
	}

	rr := doConsult(t, newTestRouter(catalog, &mockEngine{}), `{"cerinta_user":"Buget 20000 EUR"}`)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadGateway)
	}
	errResp := decodeError(t, rr)
	if errResp.Code != codeCatalogUnavailable {
		t.Errorf("error code = %s, want %s", errResp.Code, codeCatalogUnavailable)
	}
	// Driver internals stay out of the response body.
	if strings.Contains(errResp.Message, "connection refused") {
		t.Errorf("message %q leaks storage internals", errResp.Message)
	}
}

func TestConsult_GeoAnchorPath(t *testing.T) {
	near := location.Reconstruct("Casa Aproape", nil, true, &geo.Coordinate{Lat: 44.43, Lon: 26.11})
	far := location.Reconstruct("Casa Departe", nil, true, &geo.Coordinate{Lat: 45.80, Lon: 24.15})

	catalog := &mockCatalog{
		listActiveFn: func(_ context.Context) ([]location.Location, error) {
			t.Fatal("plain listing must not be used for an anchored request")
			return nil, nil
		},
		listWithCoordFn: func(_ context.Context) ([]location.Location, error) {
			return []location.Location{near, far}, nil
		},
		getByNameFn: func(_ context.Context, name string) (location.Location, error) {
			if name == "Casa Aproape" {
				return mustLocation(t, "Casa Aproape"), nil
			}
			return location.Location{}, domain.ErrLocationNotFound
		},
	}
	engine := scoredEngine(map[string]float64{"Casa Aproape": 55}, 40)

	rr := doConsult(t, newTestRouter(catalog, engine),
		`{"cerinta_user":"Buget 20000 EUR","latitudine":44.4268,"longitudine":26.1025,"raza_km":5}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rr.Code, http.StatusOK, rr.Body.String())
	}
	probes := decodeResults(t, rr)
	if len(probes) != 1 {
		t.Fatalf("got %d results, want only the candidate inside the radius", len(probes))
	}
	if probes[0].Analysis.Name != "Casa Aproape" {
		t.Errorf("result = %s, want Casa Aproape", probes[0].Analysis.Name)
	}
}

// --- Health tests ---

func TestHealth_OK(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", http.NoBody)
	newTestRouter(&mockCatalog{}, &mockEngine{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if resp.Status != string(healthuc.Healthy) {
		t.Errorf("status = %q, want %q", resp.Status, healthuc.Healthy)
	}
	if resp.Checks["storage"] != healthuc.CheckOK {
		t.Errorf("storage check = %q, want %q", resp.Checks["storage"], healthuc.CheckOK)
	}
}

func TestHealth_Degraded(t *testing.T) {
	svc := consultuc.New(&mockCatalog{}, &mockEngine{}, consultuc.Policy{}, zap.NewNop())
	healthSvc := healthuc.New(&mockPinger{err: errors.New("down")}, nil)
	server := NewServer(svc, healthSvc, zap.NewNop())

	r := chi.NewRouter()
	server.Routes(r)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", http.NoBody)
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}

	var resp healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if resp.Checks["storage"] != healthuc.CheckError {
		t.Errorf("storage check = %q, want %q", resp.Checks["storage"], healthuc.CheckError)
	}
}
