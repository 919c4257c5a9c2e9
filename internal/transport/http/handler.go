package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"flagquiz-service/internal/app"
	"flagquiz-service/internal/domain"
)

// API is the thin JSON layer over the challenge engine. Identity is supplied
// by an upstream proxy as an opaque X-User-ID header; this layer never
// authenticates.
type API struct {
	service *app.ChallengeService
}

func NewAPI(service *app.ChallengeService) *API {
	return &API{service: service}
}

// Register wires the API routes onto a mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/daily", a.handleDaily)
	mux.HandleFunc("/api/v1/daily/answer", a.handleAnswer)
	mux.HandleFunc("/api/v1/daily/history", a.handleHistory)
	mux.HandleFunc("/api/v1/stats", a.handleStats)
	mux.HandleFunc("/api/v1/countries", a.handleCountries)
	mux.HandleFunc("/api/v1/countries/", a.handleCountry)
}

func (a *API) handleDaily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := a.userID(w, r)
	if !ok {
		return
	}
	view, err := a.service.Today(r.Context(), userID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, view)
}

func (a *API) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := a.userID(w, r)
	if !ok {
		return
	}
	var body struct {
		AnswerData domain.Answer `json:"answer_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	result, err := a.service.Submit(r.Context(), userID, body.AnswerData)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := a.userID(w, r)
	if !ok {
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	items, err := a.service.History(r.Context(), userID, limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// tallyView adds the derived accuracy to a stored tally.
type tallyView struct {
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

type statsView struct {
	UserID         string               `json:"userId"`
	TotalCorrect   int                  `json:"totalCorrect"`
	CurrentStreak  int                  `json:"currentStreak"`
	LongestStreak  int                  `json:"longestStreak"`
	LastResultDate string               `json:"lastResultDate,omitempty"`
	IncorrectCodes []string             `json:"incorrectCountries,omitempty"`
	ByCategory     map[string]tallyView `json:"byCategory"`
	ByFormat       map[string]tallyView `json:"byFormat"`
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := a.userID(w, r)
	if !ok {
		return
	}
	stats, err := a.service.Stats(r.Context(), userID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	view := statsView{
		UserID:         stats.UserID,
		TotalCorrect:   stats.TotalCorrect,
		CurrentStreak:  stats.CurrentStreak,
		LongestStreak:  stats.LongestStreak,
		IncorrectCodes: stats.IncorrectCodes,
		ByCategory:     tallyViews(stats.ByCategory),
		ByFormat:       tallyViews(stats.ByFormat),
	}
	if !stats.LastResultDate.IsZero() {
		view.LastResultDate = domain.DateKey(stats.LastResultDate)
	}
	a.writeJSON(w, http.StatusOK, view)
}

func (a *API) handleCountries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	countries, err := a.service.Countries(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"countries": countries})
}

func (a *API) handleCountry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	code := strings.TrimPrefix(r.URL.Path, "/api/v1/countries/")
	if code == "" || strings.Contains(code, "/") {
		http.Error(w, "invalid country code", http.StatusBadRequest)
		return
	}
	country, err := a.service.Country(r.Context(), strings.ToUpper(code))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, country)
}

func (a *API) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		http.Error(w, "missing X-User-ID header", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

func (a *API) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrChallengeAlreadyResolved):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrCountryNotFound), errors.Is(err, domain.ErrChallengeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrVersionConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrStoreTimeout):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNoEligibleCountries):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	a.writeJSON(w, status, map[string]string{"error": userFacing(err, status)})
}

// userFacing keeps 5xx bodies generic; internal detail stays in the log.
func userFacing(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

func tallyViews(in map[string]domain.Tally) map[string]tallyView {
	out := make(map[string]tallyView, len(in))
	for k, t := range in {
		out[k] = tallyView{Correct: t.Correct, Total: t.Total, Accuracy: t.Accuracy()}
	}
	return out
}
