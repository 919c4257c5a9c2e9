package domain

import "errors"

var (
	// ErrNoEligibleCountries means the catalog is empty; fatal setup/data problem.
	ErrNoEligibleCountries = errors.New("no eligible countries in catalog")
	// ErrCountryNotFound is returned for an unknown country code.
	ErrCountryNotFound = errors.New("country not found")
	// ErrChallengeNotFound means no challenge exists for the requested date.
	ErrChallengeNotFound = errors.New("daily challenge not found")
	// ErrChallengeExists signals a lost create-if-absent race; the caller
	// must discard its pick and re-read the winning row.
	ErrChallengeExists = errors.New("daily challenge already exists for date")
	// ErrLedgerNotFound means the user has not submitted for this challenge yet.
	ErrLedgerNotFound = errors.New("attempt ledger not found")
	// ErrVersionConflict is an optimistic-save collision; retried by the
	// caller up to a small bound, then surfaced as "try again".
	ErrVersionConflict = errors.New("attempt ledger version conflict")
	// ErrChallengeAlreadyResolved rejects submissions after SOLVED/EXHAUSTED.
	ErrChallengeAlreadyResolved = errors.New("challenge already resolved")
	// ErrStatsNotFound means no stats row exists for the user yet.
	ErrStatsNotFound = errors.New("user stats not found")
	// ErrStoreTimeout wraps a store access that exceeded its deadline;
	// retryable by the caller, never treated as success or failure.
	ErrStoreTimeout = errors.New("store access timed out")
)
