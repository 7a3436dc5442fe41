package renoplan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew_NoBaseURL(t *testing.T) {
	_, err := New("")
	if err == nil {
		t.Fatal("expected error when no base URL provided")
	}
}

func TestConsult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/planuri-renovare-strategice" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if key := r.Header.Get("X-Private-Key"); key != "secret" {
			t.Errorf("private key header = %q", key)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["cerinta_user"] != "Buget 30000 EUR" {
			t.Errorf("cerinta_user = %v", body["cerinta_user"])
		}
		if _, ok := body["latitudine"]; ok {
			t.Error("latitudine should be omitted when unset")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Consult-Run", "run-1234")
		w.Header().Set("X-Engine-Tokens", "512")
		_, _ = w.Write([]byte(`{"rezultate":[{"analiza_investitie":{"scor_investitie":90}},{"analiza_investitie":{"scor_investitie":40}}]}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL+"/", WithPrivateKey("secret"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	resp, err := client.Consult(context.Background(), ConsultRequest{Brief: "Buget 30000 EUR"})
	if err != nil {
		t.Fatalf("Consult failed: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	if !strings.Contains(string(resp.Results[0]), `"scor_investitie":90`) {
		t.Errorf("first result = %s", resp.Results[0])
	}
	if resp.RunID != "run-1234" {
		t.Errorf("run id = %q", resp.RunID)
	}
	if resp.EngineTokens != 512 {
		t.Errorf("engine tokens = %d, want 512", resp.EngineTokens)
	}
}

func TestConsult_GeoFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["latitudine"] != 44.4268 {
			t.Errorf("latitudine = %v", body["latitudine"])
		}
		if body["longitudine"] != 26.1025 {
			t.Errorf("longitudine = %v", body["longitudine"])
		}
		if body["raza_km"] != 25.0 {
			t.Errorf("raza_km = %v", body["raza_km"])
		}
		_, _ = w.Write([]byte(`{"rezultate":[]}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	lat, lon, radius := 44.4268, 26.1025, 25.0
	resp, err := client.Consult(context.Background(), ConsultRequest{
		Brief: "Buget 50000 EUR",
		Lat:   &lat, Lon: &lon, RadiusKm: &radius,
	})
	if err != nil {
		t.Fatalf("Consult failed: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %d, want 0", len(resp.Results))
	}
	if resp.EngineTokens != 0 {
		t.Errorf("engine tokens = %d, want 0", resp.EngineTokens)
	}
}

func TestConsult_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"validation", 422, `{"code":"validation_failed","message":"renovation brief is required"}`, ErrInvalid},
		{"bad request", 400, `{"code":"bad_request","message":"Invalid request body"}`, ErrInvalid},
		{"unauthorized", 401, `{"code":"unauthorized","message":"missing X-Private-Key header"}`, ErrUnauthorized},
		{"forbidden", 403, `{"code":"forbidden","message":"invalid private key"}`, ErrForbidden},
		{"rate limited", 429, `{"code":"rate_limited","message":"engine rate limited"}`, ErrRateLimited},
		{"bad gateway", 502, `{"code":"catalog_unavailable","message":"catalog unavailable"}`, ErrServer},
		{"plain text body", 500, `internal server error`, ErrServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := New(srv.URL)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			_, err = client.Consult(context.Background(), ConsultRequest{Brief: "x"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConsult_KeepsServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":"validation_failed","message":"incomplete geo anchor"}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = client.Consult(context.Background(), ConsultRequest{Brief: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "incomplete geo anchor") {
		t.Errorf("error should carry the server message, got %v", err)
	}
	if !strings.Contains(err.Error(), "422") {
		t.Errorf("error should carry the status code, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"ok","version":"1.2.0","checks":{"storage":"ok","engine":"ok"}}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	hs, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if hs.Status != "ok" {
		t.Errorf("status = %q", hs.Status)
	}
	if hs.Version != "1.2.0" {
		t.Errorf("version = %q", hs.Version)
	}
	if hs.Checks["storage"] != "ok" || hs.Checks["engine"] != "ok" {
		t.Errorf("checks = %v", hs.Checks)
	}
}

func TestHealth_DegradedIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"degraded","version":"1.2.0","checks":{"storage":"error"}}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	hs, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("degraded report should not be an error, got %v", err)
	}
	if hs.Status != "degraded" {
		t.Errorf("status = %q", hs.Status)
	}
	if hs.Checks["storage"] != "error" {
		t.Errorf("checks = %v", hs.Checks)
	}
}
