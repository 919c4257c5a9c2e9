package http

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flagquiz-service/internal/app"
	"flagquiz-service/internal/domain"
	"flagquiz-service/internal/infra/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	countries := []domain.Country{
		{
			Code:       "FRA",
			Name:       "France",
			Alternates: []string{"french republic"},
			FlagEmoji:  "🇫🇷",
			FlagSVGURL: "https://flags.test/FRA.svg",
			FlagPNGURL: "https://flags.test/FRA.png",
			Capital:    "Paris",
		},
	}
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	service := app.NewChallengeServiceWithClock(
		memory.NewCatalog(countries),
		memory.NewChallengeStore(),
		memory.NewLedgerStore(),
		memory.NewStatsStore(),
		func() time.Time { return now },
		rand.New(rand.NewSource(1)),
	)
	service.SetResetLocation(time.UTC)

	mux := http.NewServeMux()
	NewAPI(service).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, userID string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var payload map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp, payload
}

func TestDailyRequiresIdentity(t *testing.T) {
	server := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/v1/daily", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without X-User-ID, got %d", resp.StatusCode)
	}
}

func TestDailyHidesAnswerMaterial(t *testing.T) {
	server := newTestServer(t)
	resp, payload := doJSON(t, http.MethodGet, server.URL+"/api/v1/daily", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if _, leaked := payload["canonicalAnswer"]; leaked {
		t.Fatalf("canonical answer leaked pre-terminal: %v", payload)
	}
	if _, leaked := payload["countryName"]; leaked {
		t.Fatalf("country name leaked pre-terminal: %v", payload)
	}
	raw, _ := json.Marshal(payload)
	if strings.Contains(string(raw), "France") {
		t.Fatalf("answer text present in response: %s", raw)
	}

	question, _ := payload["question"].(map[string]any)
	if question == nil || question["format"] != domain.FormatTextInput {
		t.Fatalf("unexpected question payload %v", payload["question"])
	}
	flag, _ := payload["flag"].(map[string]any)
	if flag == nil || flag["svgUrl"] == "" {
		t.Fatalf("expected flag assets, got %v", payload["flag"])
	}
}

func TestAnswerFlowRevealsOnSolve(t *testing.T) {
	server := newTestServer(t)

	submit := func(text string) (*http.Response, map[string]any) {
		return doJSON(t, http.MethodPost, server.URL+"/api/v1/daily/answer", "u1", map[string]any{
			"answer_data": map[string]any{"text": text},
		})
	}

	resp, payload := submit("amsterdam")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload["correct"] != false || payload["attemptsRemaining"] != float64(2) {
		t.Fatalf("unexpected miss payload %v", payload)
	}
	if _, leaked := payload["canonicalAnswer"]; leaked {
		t.Fatalf("canonical answer leaked on open ledger: %v", payload)
	}
	if _, leaked := payload["explanation"]; leaked {
		t.Fatalf("explanation leaked on open ledger: %v", payload)
	}
	if raw, _ := json.Marshal(payload); strings.Contains(string(raw), "France") {
		t.Fatalf("answer text present in miss response: %s", raw)
	}

	resp, payload = submit("france")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload["correct"] != true || payload["state"] != string(domain.StateSolved) {
		t.Fatalf("unexpected solve payload %v", payload)
	}
	if payload["countryName"] != "France" {
		t.Fatalf("expected country revealed on solve, got %v", payload)
	}
	if payload["canonicalAnswer"] == nil {
		t.Fatalf("expected canonical answer on solve")
	}
	if payload["explanation"] == nil {
		t.Fatalf("expected explanation on solve")
	}

	// Further submissions are rejected.
	resp, payload = submit("france")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 after terminal state, got %d", resp.StatusCode)
	}
	if payload["error"] == "" {
		t.Fatalf("expected error body, got %v", payload)
	}
}

func TestStatsEndpointDerivesAccuracy(t *testing.T) {
	server := newTestServer(t)

	doJSON(t, http.MethodPost, server.URL+"/api/v1/daily/answer", "u1", map[string]any{
		"answer_data": map[string]any{"text": "france"},
	})

	resp, payload := doJSON(t, http.MethodGet, server.URL+"/api/v1/stats", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload["currentStreak"] != float64(1) || payload["totalCorrect"] != float64(1) {
		t.Fatalf("unexpected stats %v", payload)
	}
	byCategory, _ := payload["byCategory"].(map[string]any)
	flagTally, _ := byCategory[domain.CategoryFlag].(map[string]any)
	if flagTally == nil || flagTally["accuracy"] != float64(1) {
		t.Fatalf("expected derived accuracy 1.0, got %v", payload["byCategory"])
	}
}

func TestStatsForNewUserIsZeroValued(t *testing.T) {
	server := newTestServer(t)
	resp, payload := doJSON(t, http.MethodGet, server.URL+"/api/v1/stats", "fresh", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for unknown user, got %d", resp.StatusCode)
	}
	if payload["currentStreak"] != float64(0) {
		t.Fatalf("expected zero stats, got %v", payload)
	}
}

func TestCountryEndpoints(t *testing.T) {
	server := newTestServer(t)

	resp, payload := doJSON(t, http.MethodGet, server.URL+"/api/v1/countries", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	countries, _ := payload["countries"].([]any)
	if len(countries) != 1 {
		t.Fatalf("expected 1 country, got %v", payload)
	}

	resp, payload = doJSON(t, http.MethodGet, server.URL+"/api/v1/countries/fra", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected code lookup to be case-insensitive, got %d", resp.StatusCode)
	}
	if payload["name"] != "France" {
		t.Fatalf("unexpected country payload %v", payload)
	}

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/v1/countries/XXX", "u1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown code, got %d", resp.StatusCode)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	server := newTestServer(t)
	resp, payload := doJSON(t, http.MethodGet, server.URL+"/api/v1/daily/history", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if _, ok := payload["items"]; !ok {
		t.Fatalf("expected items array, got %v", payload)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server := newTestServer(t)
	resp, _ := doJSON(t, http.MethodDelete, server.URL+"/api/v1/daily", "u1", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
