package domain

import "time"

// Tally is a correct/total pair for one category or format.
type Tally struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Accuracy is derived on read, never stored, so it cannot drift.
func (t Tally) Accuracy() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(t.Correct) / float64(t.Total)
}

// UserStats accumulates a user's daily challenge performance. Mutated only
// when a ledger reaches a terminal state, exactly once per termination.
type UserStats struct {
	UserID         string           `json:"userId"`
	TotalCorrect   int              `json:"totalCorrect"`
	CurrentStreak  int              `json:"currentStreak"`
	LongestStreak  int              `json:"longestStreak"`
	LastResultDate time.Time        `json:"lastResultDate"` // zero if the user never finished a challenge
	IncorrectCodes []string         `json:"incorrectCodes,omitempty"`
	ByCategory     map[string]Tally `json:"byCategory,omitempty"`
	ByFormat       map[string]Tally `json:"byFormat,omitempty"`
}

// NewUserStats returns empty stats for a user.
func NewUserStats(userID string) UserStats {
	return UserStats{
		UserID:     userID,
		ByCategory: make(map[string]Tally),
		ByFormat:   make(map[string]Tally),
	}
}

// Record folds one terminal outcome into the stats.
//
// Streak rules:
//   - correct and the previous result was exactly yesterday: streak += 1
//   - correct with no prior-day result (first play or a gap): streak = 1
//   - incorrect: streak = 0
//
// The last result date moves to the played date unconditionally; both a win
// and a loss count as "played". countryCode is recorded on a loss so the
// encyclopedia can surface countries the user keeps missing.
func (s *UserStats) Record(date time.Time, correct bool, category, format, countryCode string) {
	if correct {
		if !s.LastResultDate.IsZero() && s.LastResultDate.AddDate(0, 0, 1).Equal(date) {
			s.CurrentStreak++
		} else {
			s.CurrentStreak = 1
		}
		if s.CurrentStreak > s.LongestStreak {
			s.LongestStreak = s.CurrentStreak
		}
		s.TotalCorrect++
	} else {
		s.CurrentStreak = 0
		s.addIncorrectCode(countryCode)
	}
	s.LastResultDate = date

	if s.ByCategory == nil {
		s.ByCategory = make(map[string]Tally)
	}
	if s.ByFormat == nil {
		s.ByFormat = make(map[string]Tally)
	}
	s.ByCategory[category] = bump(s.ByCategory[category], correct)
	s.ByFormat[format] = bump(s.ByFormat[format], correct)
}

func (s *UserStats) addIncorrectCode(code string) {
	if code == "" {
		return
	}
	for _, existing := range s.IncorrectCodes {
		if existing == code {
			return
		}
	}
	s.IncorrectCodes = append(s.IncorrectCodes, code)
}

func bump(t Tally, correct bool) Tally {
	t.Total++
	if correct {
		t.Correct++
	}
	return t
}
