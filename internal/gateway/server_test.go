package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stock_sim/internal/clock"
	"stock_sim/internal/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := clock.DefaultConfig()
	cfg.ForceOpen = true
	cfg.SimulationSpeed = 10 // floors the tick loop at 200ms
	c, err := clock.New(cfg)
	if err != nil {
		t.Fatalf("clock.New failed: %v", err)
	}
	eng := engine.New(engine.Options{
		Clock:    c,
		Seed:     3,
		Universe: []engine.Listing{{Symbol: "TENC", Name: "腾讯控股"}},
	})
	return New(eng)
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("invalid JSON response: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, payload
}

func TestGateway_AccountAndTrade(t *testing.T) {
	s := newTestServer(t)

	rec, payload := doJSON(t, s, http.MethodPost, "/api/account", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("account creation failed: %d %s", rec.Code, rec.Body.String())
	}
	accountID, _ := payload["account_id"].(string)
	if accountID == "" {
		t.Fatal("missing account_id in response")
	}

	rec, payload = doJSON(t, s, http.MethodPost, "/api/trade",
		`{"account_id":"`+accountID+`","symbol":"TENC","quantity":1,"side":"buy"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("trade failed: %d %s", rec.Code, rec.Body.String())
	}
	if payload["result"] != "success" {
		t.Errorf("unexpected trade response: %v", payload)
	}

	rec, _ = doJSON(t, s, http.MethodGet, "/api/portfolio/"+accountID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("portfolio fetch failed: %d", rec.Code)
	}
}

func TestGateway_MarketSnapshot(t *testing.T) {
	s := newTestServer(t)

	rec, payload := doJSON(t, s, http.MethodGet, "/api/market", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("market fetch failed: %d", rec.Code)
	}
	if _, ok := payload["market_status"]; !ok {
		t.Error("snapshot missing market_status")
	}
	stocks, ok := payload["stocks"].([]any)
	if !ok || len(stocks) == 0 {
		t.Error("snapshot missing stocks")
	}
}

func TestGateway_ErrorMapping(t *testing.T) {
	s := newTestServer(t)

	// Unknown account -> 404
	rec, _ := doJSON(t, s, http.MethodGet, "/api/portfolio/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown account, got %d", rec.Code)
	}

	// Create a real account, then trigger a validation rejection -> 400
	_, payload := doJSON(t, s, http.MethodPost, "/api/account", "")
	accountID := payload["account_id"].(string)

	rec, _ = doJSON(t, s, http.MethodPost, "/api/trade",
		`{"account_id":"`+accountID+`","symbol":"TENC","quantity":-5,"side":"buy"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative quantity, got %d", rec.Code)
	}

	// Unknown symbol -> 404
	rec, _ = doJSON(t, s, http.MethodPost, "/api/trade",
		`{"account_id":"`+accountID+`","symbol":"NOPE","quantity":1,"side":"buy"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown symbol, got %d", rec.Code)
	}

	// Malformed body -> 400
	rec, _ = doJSON(t, s, http.MethodPost, "/api/trade", `{"quantity":"many"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestGateway_Stats(t *testing.T) {
	s := newTestServer(t)

	rec, payload := doJSON(t, s, http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats fetch failed: %d", rec.Code)
	}
	if _, ok := payload["ticks_processed"]; !ok {
		t.Error("stats missing ticks_processed")
	}
}
