package domain

import "time"

// Question categories. Open set: new categories only need a prompt builder,
// the record shape never changes.
const (
	CategoryFlag           = "flag"
	CategoryCapital        = "capital"
	CategoryPopulation     = "population"
	CategoryCurrency       = "currency"
	CategoryLanguage       = "language"
	CategoryArea           = "area"
	CategoryLargestCity    = "largest_city"
	CategoryContinent      = "continent"
	CategoryHighestPoint   = "highest_point"
	CategoryGDP            = "gdp"
	CategoryLifeExpectancy = "life_expectancy"
)

// Question formats. Open set: new formats only need a validator registration.
const (
	FormatTextInput      = "text_input"
	FormatMultipleChoice = "multiple_choice"
	FormatTrueFalse      = "true_false"
)

// MaxAttempts is the per-user attempt limit for a daily challenge.
const MaxAttempts = 3

// Currency describes one currency a country uses.
type Currency struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Country is a read-only reference row. The engine never mutates countries;
// they are loaded once from the REST Countries API (or seed data) and only
// consumed afterwards.
type Country struct {
	Code       string   `json:"code"` // ISO 3166-1 alpha-3 (USA, FRA, JPN)
	Name       string   `json:"name"`
	Alternates []string `json:"alternates,omitempty"` // accepted alternate spellings

	FlagEmoji   string `json:"flagEmoji"`
	FlagSVGURL  string `json:"flagSvgUrl"`
	FlagPNGURL  string `json:"flagPngUrl"`
	FlagAltText string `json:"flagAltText,omitempty"`

	Capital     string  `json:"capital"`
	LargestCity string  `json:"largestCity,omitempty"`
	Region      string  `json:"region,omitempty"`
	Population  int64   `json:"population"`
	AreaKm2     float64 `json:"areaKm2"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`

	Languages  []string            `json:"languages,omitempty"`
	Currencies map[string]Currency `json:"currencies,omitempty"`

	// Extra is a display-only attribute bag (full upstream API payload,
	// coat of arms URLs, future fields). Never load-bearing for the engine.
	Extra map[string]any `json:"extra,omitempty"`
}

// Question pairs a country with a prompt and a canonical answer. Category and
// format are open strings; the canonical answer is shaped by the format.
type Question struct {
	ID          string          `json:"id"`
	Category    string          `json:"category"`
	Format      string          `json:"format"`
	CountryCode string          `json:"countryCode"`
	Prompt      string          `json:"prompt"`
	Canonical   CanonicalAnswer `json:"canonical"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
}

// DailyChallenge is the single challenge designated for one calendar date.
// Every user worldwide sees the same country on the same date. ID doubles as
// the date key (YYYY-MM-DD), which makes ledger keys naturally unique.
type DailyChallenge struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"` // UTC midnight of the reset-zone calendar date
	CountryCode string    `json:"countryCode"`
	Question    Question  `json:"question"`
	Cycle       int       `json:"cycle"` // selection cycle; no country repeats within one
}

// LedgerState is the attempt state machine position.
type LedgerState string

const (
	StateOpen      LedgerState = "open"
	StateSolved    LedgerState = "solved"
	StateExhausted LedgerState = "exhausted"
)

// Terminal reports whether no further submissions are accepted.
func (s LedgerState) Terminal() bool {
	return s == StateSolved || s == StateExhausted
}

// Attempt is one recorded submission.
type Attempt struct {
	Answer      Answer    `json:"answer"`
	Correct     bool      `json:"correct"`
	Explanation string    `json:"explanation,omitempty"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// AttemptLedger tracks one user's attempts for one daily challenge.
// Created lazily on first submission; immutable once terminal.
// Version backs the optimistic save in the stores: it is the version the
// ledger was loaded at, and a save only succeeds against that same version.
type AttemptLedger struct {
	UserID      string      `json:"userId"`
	ChallengeID string      `json:"challengeId"`
	Attempts    []Attempt   `json:"attempts"`
	State       LedgerState `json:"state"`
	Version     int         `json:"-"`
}

// NewAttemptLedger returns an open ledger with no attempts recorded.
func NewAttemptLedger(userID, challengeID string) AttemptLedger {
	return AttemptLedger{UserID: userID, ChallengeID: challengeID, State: StateOpen}
}

// Apply records an attempt and advances the state machine. Returns
// ErrChallengeAlreadyResolved if the ledger is terminal or the attempt
// limit was reached.
func (l *AttemptLedger) Apply(a Attempt) error {
	if l.State.Terminal() || len(l.Attempts) >= MaxAttempts {
		return ErrChallengeAlreadyResolved
	}
	l.Attempts = append(l.Attempts, a)
	switch {
	case a.Correct:
		l.State = StateSolved
	case len(l.Attempts) >= MaxAttempts:
		l.State = StateExhausted
	default:
		l.State = StateOpen
	}
	return nil
}

// AttemptsRemaining is informational once the ledger is terminal.
func (l *AttemptLedger) AttemptsRemaining() int {
	remaining := MaxAttempts - len(l.Attempts)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// DateOf truncates an instant to its calendar date in the daily-reset zone,
// normalized to UTC midnight so dates compare and marshal cleanly.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats a normalized date as the YYYY-MM-DD store key.
func DateKey(date time.Time) string {
	return date.Format("2006-01-02")
}
