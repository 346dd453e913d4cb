package scrape

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrParse marks a date or time fragment that matched no known pattern. The
// affected screening candidate is discarded; the item is unaffected.
var ErrParse = errors.New("unparseable fragment")

// danishMonths maps Danish month names to month numbers. Lookup happens on
// the first three letters, which covers the abbreviations the site uses
// ("jan", "sept", "december").
var danishMonths = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"maj": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"okt": time.October,
	"nov": time.November,
	"dec": time.December,
}

// Showtime is a parsed screening moment. HasClock is false when the source
// carried only a date; a date-only showtime sorts before any timed showtime
// on the same day.
type Showtime struct {
	At       time.Time
	HasClock bool
}

// Before orders showtimes ascending, date-only first within a day.
func (s Showtime) Before(other Showtime) bool {
	if s.At.Equal(other.At) {
		return !s.HasClock && other.HasClock
	}
	return s.At.Before(other.At)
}

var dayMonthPattern = regexp.MustCompile(`(\d{1,2})\.?\s+([a-zæøåA-ZÆØÅ]+)`)
var timeCleanPattern = regexp.MustCompile(`[^0-9:]`)

// Normalize converts a (day, month token, time token) triple into an
// absolute showtime. The year is inferred from ref: screenings lie at most
// a few months ahead, so a November/December ref combined with a
// January-March month rolls into the next year. The rollover is forward
// only; a published screening never lies in the past.
//
// An empty timeToken yields a date-only showtime.
func Normalize(day int, monthToken, timeToken string, ref time.Time) (Showtime, error) {
	month, err := resolveMonth(monthToken)
	if err != nil {
		return Showtime{}, err
	}

	year := ref.Year()
	if ref.Month() >= time.November && month <= time.March {
		year++
	}

	if day < 1 || day > 31 {
		return Showtime{}, fmt.Errorf("%w: day %d out of range", ErrParse, day)
	}

	if timeToken == "" {
		return Showtime{
			At: time.Date(year, month, day, 0, 0, 0, 0, ref.Location()),
		}, nil
	}

	hour, minute, err := resolveClock(timeToken)
	if err != nil {
		return Showtime{}, err
	}

	return Showtime{
		At:       time.Date(year, month, day, hour, minute, 0, 0, ref.Location()),
		HasClock: true,
	}, nil
}

// ParseShowtime extracts day and month from a free-text date fragment such
// as "Fre 12. dec" or "Søndag 4. januar" and combines it with a time
// fragment such as "16.15" or "kl. 16:15".
func ParseShowtime(dateFrag, timeFrag string, ref time.Time) (Showtime, error) {
	m := dayMonthPattern.FindStringSubmatch(dateFrag)
	if m == nil {
		return Showtime{}, fmt.Errorf("%w: no day/month in %q", ErrParse, dateFrag)
	}

	day, err := strconv.Atoi(m[1])
	if err != nil {
		return Showtime{}, fmt.Errorf("%w: day in %q", ErrParse, dateFrag)
	}

	return Normalize(day, m[2], timeFrag, ref)
}

func resolveMonth(token string) (time.Month, error) {
	cleaned := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(token), "."))
	if len(cleaned) > 3 {
		cleaned = cleaned[:3]
	}
	month, ok := danishMonths[cleaned]
	if !ok {
		return 0, fmt.Errorf("%w: unknown month %q", ErrParse, token)
	}
	return month, nil
}

func resolveClock(token string) (int, int, error) {
	cleaned := timeCleanPattern.ReplaceAllString(strings.ReplaceAll(token, ".", ":"), "")
	// "kl. 16:15" leaves a stray leading colon after cleanup
	cleaned = strings.Trim(cleaned, ":")
	parts := strings.Split(cleaned, ":")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w: no clock in %q", ErrParse, token)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: hour in %q", ErrParse, token)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: minute in %q", ErrParse, token)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: clock out of range in %q", ErrParse, token)
	}

	return hour, minute, nil
}
