package program

import (
	"errors"
	"time"

	"github.com/jkaae/kinogram/app/scrape"
)

// ErrBadRequest marks invalid caller input (end date before start date,
// missing required date). It is the only error class surfaced to the caller
// as a rejected request.
var ErrBadRequest = errors.New("invalid request")

// Screening statuses as emitted on the wire.
const (
	StatusAvailable = "available"
	StatusSoldOut   = "sold_out"
	StatusUnknown   = "unknown"
)

// Screening is one showing of one item. Unique within an item by timestamp.
type Screening struct {
	Showtime  scrape.Showtime
	TicketURL string
	Status    string
}

// Item is a film or event with its qualifying screenings. CanonicalTitle is
// the dedup key within a series bucket; URL is the source of record but is
// never used for equality.
type Item struct {
	Title          string
	CanonicalTitle string
	URL            string
	Image          string
	Synopsis       string
	Credits        string
	SeriesName     string
	IsEvent        bool
	Screenings     []Screening
}

// FirstScreening returns the item's earliest showtime. Items always carry at
// least one screening by the time they are sorted.
func (i *Item) FirstScreening() scrape.Showtime {
	return i.Screenings[0].Showtime
}

// Series is a named group of items sharing a curated program.
type Series struct {
	Name   string
	Intro  string
	Banner string
	Items  []*Item
}

// Program is the final grouped output of one run.
type Program struct {
	Series     []*Series
	Standalone []*Item
}

// Window is the caller's requested date interval. From is truncated to
// start-of-day, To extended to end-of-day; a zero To leaves the window open
// above ("all upcoming" mode).
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow validates and normalizes a caller-supplied interval.
func NewWindow(from, to time.Time) (Window, error) {
	if from.IsZero() {
		return Window{}, ErrBadRequest
	}
	start := startOfDay(from)
	if to.IsZero() {
		return Window{From: start}, nil
	}
	if to.Before(from) {
		return Window{}, ErrBadRequest
	}
	return Window{From: start, To: endOfDay(to)}, nil
}

// Key is the window's canonical string form, used to key stored snapshots.
func (w Window) Key() string {
	if w.To.IsZero() {
		return w.From.Format("2006-01-02") + ".."
	}
	return w.From.Format("2006-01-02") + ".." + w.To.Format("2006-01-02")
}

// Contains reports whether a showtime falls inside the closed interval.
// Date-only showtimes count as lying on their day.
func (w Window) Contains(s scrape.Showtime) bool {
	if s.At.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && s.At.After(w.To) {
		return false
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
