package scrape

// Showing is one raw screening entry read off an item page, before the
// date-window filter is applied.
type Showing struct {
	Showtime  Showtime
	TicketURL string
	SoldOut   bool
}

// ItemDetail is everything one film/event page yields. Every field except
// Showings is optional; the extractor refuses to produce a detail without
// at least one showing.
type ItemDetail struct {
	URL        string
	Title      string
	Synopsis   string
	Credits    string
	Image      string
	SeriesName string
	SeriesURL  string
	IsEvent    bool
	Showings   []Showing
}

// SeriesDetail is the descriptive metadata of one series page.
type SeriesDetail struct {
	Name   string
	URL    string
	Intro  string
	Banner string
}
