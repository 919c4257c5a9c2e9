package domain

import (
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestStreakIncrementsOnConsecutiveDays(t *testing.T) {
	stats := NewUserStats("u1")

	stats.Record(day(1), true, CategoryFlag, FormatTextInput, "FRA")
	if stats.CurrentStreak != 1 || stats.LongestStreak != 1 {
		t.Fatalf("expected streak 1 after first win, got current=%d longest=%d", stats.CurrentStreak, stats.LongestStreak)
	}

	stats.Record(day(2), true, CategoryFlag, FormatTextInput, "JPN")
	if stats.CurrentStreak != 2 || stats.LongestStreak != 2 {
		t.Fatalf("expected streak 2 on consecutive win, got current=%d longest=%d", stats.CurrentStreak, stats.LongestStreak)
	}
	if stats.TotalCorrect != 2 {
		t.Fatalf("expected total correct 2, got %d", stats.TotalCorrect)
	}
}

func TestStreakResetsOnGap(t *testing.T) {
	stats := NewUserStats("u1")
	stats.Record(day(1), true, CategoryFlag, FormatTextInput, "FRA")
	stats.Record(day(2), true, CategoryFlag, FormatTextInput, "JPN")

	// Two-day gap: the win starts a fresh streak of 1.
	stats.Record(day(5), true, CategoryFlag, FormatTextInput, "BRA")
	if stats.CurrentStreak != 1 {
		t.Fatalf("expected streak reset to 1 after gap, got %d", stats.CurrentStreak)
	}
	if stats.LongestStreak != 2 {
		t.Fatalf("expected longest streak preserved at 2, got %d", stats.LongestStreak)
	}
}

func TestStreakResetsOnLoss(t *testing.T) {
	stats := NewUserStats("u1")
	stats.Record(day(1), true, CategoryFlag, FormatTextInput, "FRA")
	stats.Record(day(2), false, CategoryFlag, FormatTextInput, "JPN")

	if stats.CurrentStreak != 0 {
		t.Fatalf("expected streak 0 after loss, got %d", stats.CurrentStreak)
	}
	if !stats.LastResultDate.Equal(day(2)) {
		t.Fatalf("expected loss to count as played, last result %v", stats.LastResultDate)
	}

	// The day after a loss starts at 1 even though yesterday was played.
	stats.Record(day(3), true, CategoryFlag, FormatTextInput, "BRA")
	if stats.CurrentStreak != 1 {
		t.Fatalf("expected streak 1 after win following a loss, got %d", stats.CurrentStreak)
	}
}

func TestBreakdownTallies(t *testing.T) {
	stats := NewUserStats("u1")
	stats.Record(day(1), true, CategoryFlag, FormatTextInput, "FRA")
	stats.Record(day(2), false, CategoryFlag, FormatMultipleChoice, "JPN")
	stats.Record(day(3), true, CategoryCapital, FormatTextInput, "BRA")

	if got := stats.ByCategory[CategoryFlag]; got.Correct != 1 || got.Total != 2 {
		t.Fatalf("flag tally wrong: %+v", got)
	}
	if got := stats.ByFormat[FormatTextInput]; got.Correct != 2 || got.Total != 2 {
		t.Fatalf("text tally wrong: %+v", got)
	}
	if acc := stats.ByCategory[CategoryFlag].Accuracy(); acc != 0.5 {
		t.Fatalf("expected accuracy 0.5, got %f", acc)
	}
	if acc := (Tally{}).Accuracy(); acc != 0 {
		t.Fatalf("expected zero accuracy for empty tally, got %f", acc)
	}
}

func TestIncorrectCountriesRecordedOnce(t *testing.T) {
	stats := NewUserStats("u1")
	stats.Record(day(1), false, CategoryFlag, FormatTextInput, "JPN")
	stats.Record(day(2), false, CategoryFlag, FormatTextInput, "JPN")
	stats.Record(day(3), true, CategoryFlag, FormatTextInput, "FRA")

	if len(stats.IncorrectCodes) != 1 || stats.IncorrectCodes[0] != "JPN" {
		t.Fatalf("expected [JPN], got %v", stats.IncorrectCodes)
	}
}
