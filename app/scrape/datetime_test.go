package scrape

import (
	"errors"
	"testing"
	"time"
)

func mustDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func TestNormalize(t *testing.T) {
	ref := mustDate(2025, time.June, 1)

	tests := []struct {
		name       string
		day        int
		monthToken string
		timeToken  string
		expected   time.Time
		hasClock   bool
	}{
		{"full month name", 12, "december", "16:00", time.Date(2025, 12, 12, 16, 0, 0, 0, time.UTC), true},
		{"abbreviation", 4, "jan", "16:15", time.Date(2025, 1, 4, 16, 15, 0, 0, time.UTC), true},
		{"dotted time", 13, "dec", "14.15", time.Date(2025, 12, 13, 14, 15, 0, 0, time.UTC), true},
		{"kl prefix", 13, "dec", "kl. 16:15", time.Date(2025, 12, 13, 16, 15, 0, 0, time.UTC), true},
		{"trailing dot on month", 27, "jan.", "10:00", time.Date(2025, 1, 27, 10, 0, 0, 0, time.UTC), true},
		{"case insensitive", 5, "MAJ", "20:30", time.Date(2025, 5, 5, 20, 30, 0, 0, time.UTC), true},
		{"sept variant", 9, "sept", "18:00", time.Date(2025, 9, 9, 18, 0, 0, 0, time.UTC), true},
		{"date only", 24, "dec", "", time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.day, tt.monthToken, tt.timeToken, ref)
			if err != nil {
				t.Fatal(err)
			}
			if !got.At.Equal(tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got.At)
			}
			if got.HasClock != tt.hasClock {
				t.Errorf("Expected HasClock=%v, got %v", tt.hasClock, got.HasClock)
			}
		})
	}
}

func TestNormalizeYearRollover(t *testing.T) {
	tests := []struct {
		name         string
		ref          time.Time
		day          int
		monthToken   string
		expectedYear int
	}{
		{"november ref, january target", mustDate(2025, time.November, 20), 4, "jan", 2026},
		{"december ref, march target", mustDate(2025, time.December, 30), 1, "mar", 2026},
		{"november ref, december target", mustDate(2025, time.November, 20), 24, "dec", 2025},
		{"october ref, january target", mustDate(2025, time.October, 31), 4, "jan", 2025},
		// Forward-only policy: a winter ref never subtracts a year
		{"january ref, december target", mustDate(2026, time.January, 5), 24, "dec", 2026},
		{"june ref, june target", mustDate(2025, time.June, 1), 15, "jun", 2025},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.day, tt.monthToken, "12:00", tt.ref)
			if err != nil {
				t.Fatal(err)
			}
			if got.At.Year() != tt.expectedYear {
				t.Errorf("Expected year %d, got %d", tt.expectedYear, got.At.Year())
			}
		})
	}
}

func TestNormalizeFailures(t *testing.T) {
	ref := mustDate(2025, time.June, 1)

	tests := []struct {
		name       string
		day        int
		monthToken string
		timeToken  string
	}{
		{"unknown month", 4, "frimaire", "16:00"},
		{"empty month", 4, "", "16:00"},
		{"day out of range", 32, "jan", "16:00"},
		{"hour out of range", 4, "jan", "25:00"},
		{"minute out of range", 4, "jan", "16:75"},
		{"no clock digits", 4, "jan", "kl."},
		{"garbage time", 4, "jan", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.day, tt.monthToken, tt.timeToken, ref)
			if err == nil {
				t.Fatal("Expected error, got none")
			}
			if !errors.Is(err, ErrParse) {
				t.Errorf("Expected ErrParse, got %v", err)
			}
		})
	}
}

func TestParseShowtime(t *testing.T) {
	ref := mustDate(2025, time.November, 20)

	got, err := ParseShowtime("Fre 12. dec", "16:00", ref)
	if err != nil {
		t.Fatal(err)
	}
	expected := time.Date(2025, 12, 12, 16, 0, 0, 0, time.UTC)
	if !got.At.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, got.At)
	}

	got, err = ParseShowtime("Søndag 4. januar", "16:15", ref)
	if err != nil {
		t.Fatal(err)
	}
	expected = time.Date(2026, 1, 4, 16, 15, 0, 0, time.UTC)
	if !got.At.Equal(expected) {
		t.Errorf("Expected rollover into %v, got %v", expected, got.At)
	}

	if _, err := ParseShowtime("i morgen", "16:00", ref); !errors.Is(err, ErrParse) {
		t.Errorf("Expected ErrParse for fragment without day/month, got %v", err)
	}
}

func TestShowtimeOrdering(t *testing.T) {
	dateOnly := Showtime{At: time.Date(2025, 12, 13, 0, 0, 0, 0, time.UTC)}
	timed := Showtime{At: time.Date(2025, 12, 13, 14, 15, 0, 0, time.UTC), HasClock: true}
	midnightTimed := Showtime{At: time.Date(2025, 12, 13, 0, 0, 0, 0, time.UTC), HasClock: true}

	if !dateOnly.Before(timed) {
		t.Error("Date-only showtime should sort before a timed one on the same day")
	}
	if !dateOnly.Before(midnightTimed) {
		t.Error("Date-only showtime should sort before a timed midnight showtime")
	}
	if timed.Before(dateOnly) {
		t.Error("Timed showtime should not sort before the date-only one")
	}
}
