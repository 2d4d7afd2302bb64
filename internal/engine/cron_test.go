package engine

import (
	"errors"
	"testing"
	"time"
)

func TestDue_DailyAtNine(t *testing.T) {
	t.Parallel()

	spec := "0 9 * * *"
	date := func(h, m int) time.Time {
		return time.Date(2025, 3, 14, h, m, 0, 0, time.UTC)
	}

	due, err := Due(spec, date(9, 0))
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if !due {
		t.Fatal("09:00 should be due for \"0 9 * * *\"")
	}

	due, err = Due(spec, date(9, 1))
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if due {
		t.Fatal("09:01 should not be due for \"0 9 * * *\"")
	}

	due, err = Due(spec, date(8, 59))
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if due {
		t.Fatal("08:59 should not be due for \"0 9 * * *\"")
	}
}

func TestDue_FiveAndSixFieldEquivalence(t *testing.T) {
	t.Parallel()

	specs := []struct{ five, six string }{
		{"*/5 * * * *", "0 */5 * * * *"},
		{"0 9 * * *", "0 0 9 * * *"},
		{"30 8 1 * *", "0 30 8 1 * *"},
		{"* * * * *", "0 * * * * *"},
	}

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, s := range specs {
		for m := 0; m < 24*60; m += 7 {
			at := base.Add(time.Duration(m) * time.Minute)
			d5, err5 := Due(s.five, at)
			d6, err6 := Due(s.six, at)
			if err5 != nil || err6 != nil {
				t.Fatalf("parse failure: %v / %v", err5, err6)
			}
			if d5 != d6 {
				t.Fatalf("spec %q vs %q diverge at %v: %v != %v", s.five, s.six, at, d5, d6)
			}
		}
	}
}

func TestDue_TruncatesSeconds(t *testing.T) {
	t.Parallel()

	// A probe a few seconds past the boundary must give the same answer
	// as the exact boundary.
	at := time.Date(2025, 3, 14, 9, 0, 42, 999, time.UTC)
	due, err := Due("0 9 * * *", at)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if !due {
		t.Fatal("09:00:42 should evaluate as minute 09:00 and be due")
	}
}

func TestDue_NoDoubleFire(t *testing.T) {
	t.Parallel()

	// Once due at 09:00, the next minute must not be due again for a
	// schedule whose next occurrence is a day away.
	at := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	if due, _ := Due("0 9 * * *", at); !due {
		t.Fatal("expected due at 09:00")
	}
	if due, _ := Due("0 9 * * *", at.Add(time.Minute)); due {
		t.Fatal("must not fire again at 09:01")
	}
}

func TestDue_EveryMinute(t *testing.T) {
	t.Parallel()

	for m := 0; m < 5; m++ {
		at := time.Date(2025, 3, 14, 10, m, 0, 0, time.UTC)
		due, err := Due("* * * * *", at)
		if err != nil {
			t.Fatalf("Due: %v", err)
		}
		if !due {
			t.Fatalf("\"* * * * *\" should be due every minute, failed at %v", at)
		}
	}
}

func TestDue_NonZeroSecondsNeverDue(t *testing.T) {
	t.Parallel()

	// A 6-field schedule requiring second 30 can never equal a
	// minute-truncated instant.
	at := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	due, err := Due("30 * * * * *", at)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if due {
		t.Fatal("schedule at second 30 must not match minute resolution")
	}
}

func TestDue_InvalidSpecs(t *testing.T) {
	t.Parallel()

	for _, spec := range []string{"", "   ", "not a cron", "61 * * * *", "* * *"} {
		_, err := Due(spec, time.Now())
		if !errors.Is(err, ErrInvalidSchedule) {
			t.Fatalf("spec %q: err = %v, want ErrInvalidSchedule", spec, err)
		}
	}
}

func TestDue_MonthBoundary(t *testing.T) {
	t.Parallel()

	// First-of-month schedule: due only on the 1st.
	if due, _ := Due("0 0 1 * *", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)); !due {
		t.Fatal("midnight on the 1st should be due")
	}
	if due, _ := Due("0 0 1 * *", time.Date(2025, 4, 30, 23, 59, 0, 0, time.UTC)); due {
		t.Fatal("23:59 on the 30th should not be due")
	}
}
