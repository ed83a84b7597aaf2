package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/information-sharing-networks/codi-gateway/internal/codi"
	"github.com/information-sharing-networks/codi-gateway/internal/config"
	"github.com/information-sharing-networks/codi-gateway/internal/delivery"
	"github.com/information-sharing-networks/codi-gateway/internal/environment"
	"github.com/information-sharing-networks/codi-gateway/internal/network"
	"github.com/information-sharing-networks/codi-gateway/internal/testutil"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) (int32, error) { return 1, p.err }

func testConfig() *config.ServerEnvironment {
	return &config.ServerEnvironment{
		Environment:    "test",
		MaxRequestSize: 64 * 1024,
		ClientAPIKey:   "client-key",
	}
}

func newTestServer(t *testing.T, db pinger) *httptest.Server {
	t.Helper()
	_, nw := testutil.Parties(t)
	responseBody := testutil.SignedResponse(t, nw.Signer(), 0, codi.KeyCadenaMC, "CADENA-MC-1", 1700000000000)

	networkServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write(responseBody)
	}))
	t.Cleanup(networkServer.Close)

	registry, err := environment.NewRegistry(testutil.NewEnvironment(t, environment.NonProduction, networkServer.URL, networkServer.URL))
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewServer(testConfig(), logger, Dependencies{
		Registry: registry,
		Network:  network.NewClient(delivery.NewClient(networkServer.Client())),
		DB:       db,
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestInfrastructureRoutes(t *testing.T) {
	ts := newTestServer(t, pinger{})

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/health/live", http.StatusOK, "OK"},
		{"/health/ready", http.StatusOK, `"ready"`},
		{"/version", http.StatusOK, `"service":"codi-gateway"`},
		{"/.well-known/jwks.json", http.StatusOK, `"x5c"`},
		{"/v1/unknown", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, resp.StatusCode, body)
			}
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("expected body to contain %s, got %s", tt.wantBody, body)
			}
			if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
				t.Error("expected security headers on every response")
			}
		})
	}
}

func TestReadinessDatabaseDown(t *testing.T) {
	ts := newTestServer(t, pinger{err: errors.New("connection refused")})

	resp, err := http.Get(ts.URL + "/health/ready")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestJWKSContainsOperatorKey(t *testing.T) {
	ts := newTestServer(t, pinger{})

	resp, err := http.Get(ts.URL + "/.well-known/jwks.json")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var set struct {
		Keys []map[string]any `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		t.Fatalf("could not decode JWK set: %v", err)
	}
	if len(set.Keys) != 1 {
		t.Fatalf("expected one key, got %d", len(set.Keys))
	}
	if set.Keys[0]["kty"] != "RSA" || set.Keys[0]["kid"] == "" {
		t.Errorf("unexpected key: %v", set.Keys[0])
	}
}

func TestPaymentRoutesRequireAPIKey(t *testing.T) {
	ts := newTestServer(t, pinger{})
	body := `{"monto":150,"referenciaNumerica":"1234567","concepto":"Pago de prueba","vigencia":0}`

	tests := []struct {
		name       string
		apiKey     string
		wantStatus int
	}{
		{"no key", "", http.StatusUnauthorized},
		{"wrong key", "other", http.StatusUnauthorized},
		{"valid key", "client-key", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/qr", strings.NewReader(body))
			if err != nil {
				t.Fatal(err)
			}
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				b, _ := io.ReadAll(resp.Body)
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, resp.StatusCode, b)
			}
		})
	}
}

// the webhook is authenticated by the notification signature, not the client API key
func TestWebhookRoute(t *testing.T) {
	ts := newTestServer(t, pinger{})
	_, nw := testutil.Parties(t)

	body := testutil.SignedNotification(t, nw.Signer(), testutil.NotificationFields())
	resp, err := http.Post(ts.URL+"/v1/webhook/non-production", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, b)
	}
	var got struct {
		Resultado int `json:"resultado"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}
	if got.Resultado != 0 {
		t.Errorf("expected resultado 0, got %d", got.Resultado)
	}
}

func TestRequestTooLarge(t *testing.T) {
	ts := newTestServer(t, pinger{})

	body := bytes.Repeat([]byte("a"), 128*1024)
	resp, err := http.Post(ts.URL+"/v1/webhook/test", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", resp.StatusCode)
	}
}
