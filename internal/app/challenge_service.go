package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"flagquiz-service/internal/domain"
	"flagquiz-service/internal/question"
)

// DefaultResetTimeZone is when the daily challenge rolls over.
const DefaultResetTimeZone = "America/New_York"

const (
	defaultStoreTimeout = 5 * time.Second
	// submitRetries bounds optimistic-save retries before surfacing the
	// conflict as a transient error.
	submitRetries = 3
)

// CountryCatalog serves the read-only country reference set.
type CountryCatalog interface {
	List(ctx context.Context) ([]domain.Country, error)
	GetByCode(ctx context.Context, code string) (domain.Country, error)
}

// ChallengeStore persists daily challenges. Create must be atomic
// create-if-absent on the date and return domain.ErrChallengeExists to the
// loser of a race.
type ChallengeStore interface {
	GetByDate(ctx context.Context, date time.Time) (domain.DailyChallenge, error)
	Create(ctx context.Context, ch domain.DailyChallenge) error
	// CycleState returns the highest cycle in use (0 if no challenges yet)
	// and the country codes already used within it.
	CycleState(ctx context.Context) (cycle int, usedCodes []string, err error)
	ListBefore(ctx context.Context, date time.Time, limit int) ([]domain.DailyChallenge, error)
}

// LedgerStore persists attempt ledgers with an optimistic version check:
// Save succeeds only against the version the ledger was loaded at, and
// returns domain.ErrVersionConflict otherwise.
type LedgerStore interface {
	Get(ctx context.Context, userID, challengeID string) (domain.AttemptLedger, error)
	Save(ctx context.Context, ledger domain.AttemptLedger) error
}

// StatsStore persists per-user statistics.
type StatsStore interface {
	Get(ctx context.Context, userID string) (domain.UserStats, error)
	Save(ctx context.Context, stats domain.UserStats) error
}

// QuestionView is a question with the canonical answer stripped.
type QuestionView struct {
	ID       string         `json:"id"`
	Category string         `json:"category"`
	Format   string         `json:"format"`
	Prompt   string         `json:"prompt"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FlagView carries the flag assets only. The country name is excluded:
// it is the answer.
type FlagView struct {
	Emoji   string `json:"emoji"`
	SVGURL  string `json:"svgUrl"`
	PNGURL  string `json:"pngUrl"`
	AltText string `json:"altText,omitempty"`
}

// TodayView is the caller's merged view of today's challenge and their own
// attempt state. Canonical and CountryName are populated only once the
// caller's ledger is terminal.
type TodayView struct {
	ChallengeID       string                  `json:"challengeId"`
	Date              time.Time               `json:"date"`
	Question          QuestionView            `json:"question"`
	Flag              FlagView                `json:"flag"`
	AttemptsUsed      int                     `json:"attemptsUsed"`
	AttemptsRemaining int                     `json:"attemptsRemaining"`
	State             domain.LedgerState      `json:"state"`
	LastAttemptAt     *time.Time              `json:"lastAttemptAt,omitempty"`
	Canonical         *domain.CanonicalAnswer `json:"canonicalAnswer,omitempty"`
	CountryName       string                  `json:"countryName,omitempty"`
}

// SubmitResult is the outcome of one submission. Explanation, Canonical and
// CountryName are populated only when the submission made the ledger
// terminal: the explanation names the correct answer, so handing it out on
// an open ledger would give away the remaining attempts.
type SubmitResult struct {
	Correct           bool                    `json:"correct"`
	Explanation       string                  `json:"explanation,omitempty"`
	AttemptsUsed      int                     `json:"attemptsUsed"`
	AttemptsRemaining int                     `json:"attemptsRemaining"`
	State             domain.LedgerState      `json:"state"`
	Canonical         *domain.CanonicalAnswer `json:"canonicalAnswer,omitempty"`
	CountryName       string                  `json:"countryName,omitempty"`
}

// HistoryItem is one past challenge with the caller's outcome. Past answers
// are public: the country name is always shown.
type HistoryItem struct {
	Date         time.Time          `json:"date"`
	CountryCode  string             `json:"countryCode"`
	CountryName  string             `json:"countryName"`
	FlagEmoji    string             `json:"flagEmoji"`
	State        domain.LedgerState `json:"state"`
	AttemptsUsed int                `json:"attemptsUsed"`
}

// ChallengeService is the daily challenge lifecycle engine: deterministic
// per-date selection, three-attempt ledgers, and streak/accuracy stats.
type ChallengeService struct {
	catalog    CountryCatalog
	challenges ChallengeStore
	ledgers    LedgerStore
	stats      StatsStore
	registry   *question.Registry
	feed       *LiveFeed

	loc          *time.Location
	now          func() time.Time
	storeTimeout time.Duration

	mu  sync.Mutex // guards rnd
	rnd *rand.Rand
}

// NewChallengeService wires the engine with a wall clock and a seeded RNG.
func NewChallengeService(catalog CountryCatalog, challenges ChallengeStore, ledgers LedgerStore, stats StatsStore) *ChallengeService {
	return NewChallengeServiceWithClock(catalog, challenges, ledgers, stats,
		time.Now, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewChallengeServiceWithClock injects the clock and RNG for deterministic tests.
func NewChallengeServiceWithClock(catalog CountryCatalog, challenges ChallengeStore, ledgers LedgerStore, stats StatsStore, now func() time.Time, rnd *rand.Rand) *ChallengeService {
	loc, err := time.LoadLocation(DefaultResetTimeZone)
	if err != nil {
		loc = time.UTC
	}
	return &ChallengeService{
		catalog:      catalog,
		challenges:   challenges,
		ledgers:      ledgers,
		stats:        stats,
		registry:     question.NewRegistry(),
		feed:         NewLiveFeed(),
		loc:          loc,
		now:          now,
		storeTimeout: defaultStoreTimeout,
		rnd:          rnd,
	}
}

// Registry exposes the validator registry so deployments can register
// additional formats.
func (s *ChallengeService) Registry() *question.Registry { return s.registry }

// Feed exposes the live results feed for transports to subscribe to.
func (s *ChallengeService) Feed() *LiveFeed { return s.feed }

// SetResetLocation overrides the daily rollover timezone.
func (s *ChallengeService) SetResetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

// SetStoreTimeout bounds every store access.
func (s *ChallengeService) SetStoreTimeout(d time.Duration) {
	if d > 0 {
		s.storeTimeout = d
	}
}

// Today returns the caller's view of today's challenge, resolving (and if
// needed creating) it first. The canonical answer is withheld until the
// caller's own ledger is terminal.
func (s *ChallengeService) Today(ctx context.Context, userID string) (TodayView, error) {
	date := domain.DateOf(s.now(), s.loc)
	ch, err := s.resolve(ctx, date)
	if err != nil {
		return TodayView{}, err
	}

	ledger, err := s.getLedger(ctx, userID, ch.ID)
	if errors.Is(err, domain.ErrLedgerNotFound) {
		ledger = domain.NewAttemptLedger(userID, ch.ID)
	} else if err != nil {
		return TodayView{}, err
	}

	country, err := s.getCountry(ctx, ch.CountryCode)
	if err != nil {
		return TodayView{}, err
	}

	view := TodayView{
		ChallengeID: ch.ID,
		Date:        ch.Date,
		Question: QuestionView{
			ID:       ch.Question.ID,
			Category: ch.Question.Category,
			Format:   ch.Question.Format,
			Prompt:   ch.Question.Prompt,
			Metadata: ch.Question.Metadata,
		},
		Flag: FlagView{
			Emoji:   country.FlagEmoji,
			SVGURL:  country.FlagSVGURL,
			PNGURL:  country.FlagPNGURL,
			AltText: country.FlagAltText,
		},
		AttemptsUsed:      len(ledger.Attempts),
		AttemptsRemaining: ledger.AttemptsRemaining(),
		State:             ledger.State,
	}
	if n := len(ledger.Attempts); n > 0 {
		at := ledger.Attempts[n-1].AttemptedAt
		view.LastAttemptAt = &at
	}
	if ledger.State.Terminal() {
		canonical := ch.Question.Canonical
		view.Canonical = &canonical
		view.CountryName = country.Name
	}
	return view, nil
}

// Submit records one answer for today's challenge, advancing the caller's
// ledger. Terminal transitions update stats exactly once and publish a pulse
// on the live feed. Submissions after a terminal state are rejected with
// domain.ErrChallengeAlreadyResolved.
func (s *ChallengeService) Submit(ctx context.Context, userID string, answer domain.Answer) (SubmitResult, error) {
	date := domain.DateOf(s.now(), s.loc)
	ch, err := s.resolve(ctx, date)
	if err != nil {
		return SubmitResult{}, err
	}

	for try := 0; try < submitRetries; try++ {
		ledger, err := s.getLedger(ctx, userID, ch.ID)
		if errors.Is(err, domain.ErrLedgerNotFound) {
			ledger = domain.NewAttemptLedger(userID, ch.ID)
		} else if err != nil {
			return SubmitResult{}, err
		}
		if ledger.State.Terminal() {
			return SubmitResult{}, domain.ErrChallengeAlreadyResolved
		}

		correct, explanation := s.registry.Validate(ch.Question, answer)
		if err := ledger.Apply(domain.Attempt{
			Answer:      answer,
			Correct:     correct,
			AttemptedAt: s.now(),
		}); err != nil {
			return SubmitResult{}, err
		}
		// The explanation names the canonical answer, so it is recorded and
		// returned only once the ledger is terminal.
		if ledger.State.Terminal() {
			ledger.Attempts[len(ledger.Attempts)-1].Explanation = explanation
		}

		if err := s.saveLedger(ctx, ledger); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				continue // reload and re-check; the winner may have terminated the ledger
			}
			return SubmitResult{}, err
		}

		result := SubmitResult{
			Correct:           correct,
			AttemptsUsed:      len(ledger.Attempts),
			AttemptsRemaining: ledger.AttemptsRemaining(),
			State:             ledger.State,
		}
		if ledger.State.Terminal() {
			// The winning save is the single terminal transition, so this
			// runs exactly once per ledger.
			if err := s.recordOutcome(ctx, userID, ch, correct); err != nil {
				log.Printf("stats update failed for user %s on %s: %v", userID, ch.ID, err)
			}
			s.feed.RecordTerminal(ch.Date, correct)
			result.Explanation = explanation
			canonical := ch.Question.Canonical
			result.Canonical = &canonical
			if country, err := s.getCountry(ctx, ch.CountryCode); err == nil {
				result.CountryName = country.Name
			}
		}
		return result, nil
	}
	return SubmitResult{}, fmt.Errorf("submission contention, try again: %w", domain.ErrVersionConflict)
}

// Stats returns the caller's statistics, zero-valued if they never played.
func (s *ChallengeService) Stats(ctx context.Context, userID string) (domain.UserStats, error) {
	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	stats, err := s.stats.Get(cctx, userID)
	if errors.Is(err, domain.ErrStatsNotFound) {
		return domain.NewUserStats(userID), nil
	}
	if err != nil {
		return domain.UserStats{}, mapStoreErr("load stats", err)
	}
	return stats, nil
}

// History lists past challenges (newest first) with the caller's outcome.
func (s *ChallengeService) History(ctx context.Context, userID string, limit int) ([]HistoryItem, error) {
	if limit <= 0 {
		limit = 20
	}
	today := domain.DateOf(s.now(), s.loc)

	cctx, cancel := s.storeCtx(ctx)
	challenges, err := s.challenges.ListBefore(cctx, today, limit)
	cancel()
	if err != nil {
		return nil, mapStoreErr("list challenges", err)
	}

	items := make([]HistoryItem, 0, len(challenges))
	for _, ch := range challenges {
		item := HistoryItem{
			Date:        ch.Date,
			CountryCode: ch.CountryCode,
			State:       domain.StateOpen,
		}
		if country, err := s.getCountry(ctx, ch.CountryCode); err == nil {
			item.CountryName = country.Name
			item.FlagEmoji = country.FlagEmoji
		}
		ledger, err := s.getLedger(ctx, userID, ch.ID)
		if err == nil {
			item.State = ledger.State
			item.AttemptsUsed = len(ledger.Attempts)
		} else if !errors.Is(err, domain.ErrLedgerNotFound) {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Countries lists the encyclopedia entries.
func (s *ChallengeService) Countries(ctx context.Context) ([]domain.Country, error) {
	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	countries, err := s.catalog.List(cctx)
	if err != nil {
		return nil, mapStoreErr("list countries", err)
	}
	return countries, nil
}

// Country returns one encyclopedia entry by ISO code.
func (s *ChallengeService) Country(ctx context.Context, code string) (domain.Country, error) {
	return s.getCountry(ctx, code)
}

// resolve returns the challenge for date, creating it under first-writer-wins
// if absent. Selection is uniform among countries unused in the current
// cycle; when the cycle is exhausted a new one starts with the full catalog.
func (s *ChallengeService) resolve(ctx context.Context, date time.Time) (domain.DailyChallenge, error) {
	ch, err := s.getChallenge(ctx, date)
	if err == nil {
		return ch, nil
	}
	if !errors.Is(err, domain.ErrChallengeNotFound) {
		return domain.DailyChallenge{}, err
	}

	cctx, cancel := s.storeCtx(ctx)
	countries, err := s.catalog.List(cctx)
	cancel()
	if err != nil {
		return domain.DailyChallenge{}, mapStoreErr("list countries", err)
	}
	if len(countries) == 0 {
		return domain.DailyChallenge{}, domain.ErrNoEligibleCountries
	}

	cctx, cancel = s.storeCtx(ctx)
	cycle, usedCodes, err := s.challenges.CycleState(cctx)
	cancel()
	if err != nil {
		return domain.DailyChallenge{}, mapStoreErr("read cycle state", err)
	}
	if cycle == 0 {
		cycle = 1
	}

	used := make(map[string]struct{}, len(usedCodes))
	for _, code := range usedCodes {
		used[code] = struct{}{}
	}
	eligible := countries[:0:0]
	for _, c := range countries {
		if _, taken := used[c.Code]; !taken {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		// Cycle exhausted: reshuffle, every country is eligible again.
		cycle++
		eligible = countries
	}

	pick := eligible[s.intn(len(eligible))]
	q, err := question.Define(pick, domain.CategoryFlag, domain.FormatTextInput, question.Params{})
	if err != nil {
		return domain.DailyChallenge{}, fmt.Errorf("define daily question: %w", err)
	}

	ch = domain.DailyChallenge{
		ID:          domain.DateKey(date),
		Date:        date,
		CountryCode: pick.Code,
		Question:    q,
		Cycle:       cycle,
	}

	cctx, cancel = s.storeCtx(ctx)
	err = s.challenges.Create(cctx, ch)
	cancel()
	if errors.Is(err, domain.ErrChallengeExists) {
		// Lost the race: discard our pick and adopt the winner's row.
		return s.getChallenge(ctx, date)
	}
	if err != nil {
		return domain.DailyChallenge{}, mapStoreErr("create challenge", err)
	}
	return ch, nil
}

func (s *ChallengeService) recordOutcome(ctx context.Context, userID string, ch domain.DailyChallenge, correct bool) error {
	cctx, cancel := s.storeCtx(ctx)
	stats, err := s.stats.Get(cctx, userID)
	cancel()
	if errors.Is(err, domain.ErrStatsNotFound) {
		stats = domain.NewUserStats(userID)
	} else if err != nil {
		return mapStoreErr("load stats", err)
	}

	stats.Record(ch.Date, correct, ch.Question.Category, ch.Question.Format, ch.CountryCode)

	cctx, cancel = s.storeCtx(ctx)
	defer cancel()
	if err := s.stats.Save(cctx, stats); err != nil {
		return mapStoreErr("save stats", err)
	}
	return nil
}

func (s *ChallengeService) getChallenge(ctx context.Context, date time.Time) (domain.DailyChallenge, error) {
	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	ch, err := s.challenges.GetByDate(cctx, date)
	if err != nil {
		return domain.DailyChallenge{}, mapStoreErr("load challenge", err)
	}
	return ch, nil
}

func (s *ChallengeService) getLedger(ctx context.Context, userID, challengeID string) (domain.AttemptLedger, error) {
	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	ledger, err := s.ledgers.Get(cctx, userID, challengeID)
	if err != nil {
		return domain.AttemptLedger{}, mapStoreErr("load ledger", err)
	}
	return ledger, nil
}

func (s *ChallengeService) saveLedger(ctx context.Context, ledger domain.AttemptLedger) error {
	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.ledgers.Save(cctx, ledger); err != nil {
		return mapStoreErr("save ledger", err)
	}
	return nil
}

func (s *ChallengeService) getCountry(ctx context.Context, code string) (domain.Country, error) {
	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	country, err := s.catalog.GetByCode(cctx, code)
	if err != nil {
		return domain.Country{}, mapStoreErr("load country", err)
	}
	return country, nil
}

func (s *ChallengeService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *ChallengeService) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

// mapStoreErr keeps sentinel errors recognizable and converts deadline
// overruns into the retryable ErrStoreTimeout.
func mapStoreErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, domain.ErrStoreTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}
