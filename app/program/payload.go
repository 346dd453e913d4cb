package program

import (
	"github.com/jkaae/kinogram/app/scrape"
)

// Wire shape consumed by the presentation layer. Collections are always
// present: absent ones are empty lists, never null.

type Payload struct {
	Series     []SeriesPayload `json:"series"`
	Standalone []ItemPayload   `json:"standalone_items"`
}

type SeriesPayload struct {
	Name   string        `json:"name"`
	Intro  string        `json:"intro"`
	Banner *string       `json:"banner"`
	Items  []ItemPayload `json:"items"`
}

type ItemPayload struct {
	Title      string             `json:"title"`
	URL        string             `json:"url"`
	Image      *string            `json:"image"`
	Synopsis   string             `json:"synopsis"`
	Credits    string             `json:"credits"`
	IsEvent    bool               `json:"is_event"`
	Screenings []ScreeningPayload `json:"screenings"`
}

type ScreeningPayload struct {
	Timestamp string `json:"timestamp"`
	TicketURL string `json:"ticket_url"`
	Status    string `json:"status"`
}

// Payload converts the reconciled program into its wire form.
func (p *Program) Payload() *Payload {
	out := &Payload{
		Series:     make([]SeriesPayload, 0, len(p.Series)),
		Standalone: make([]ItemPayload, 0, len(p.Standalone)),
	}

	for _, series := range p.Series {
		out.Series = append(out.Series, SeriesPayload{
			Name:   series.Name,
			Intro:  series.Intro,
			Banner: optional(series.Banner),
			Items:  itemPayloads(series.Items),
		})
	}
	out.Standalone = itemPayloads(p.Standalone)

	return out
}

func itemPayloads(items []*Item) []ItemPayload {
	out := make([]ItemPayload, 0, len(items))
	for _, item := range items {
		screenings := make([]ScreeningPayload, 0, len(item.Screenings))
		for _, s := range item.Screenings {
			screenings = append(screenings, ScreeningPayload{
				Timestamp: formatShowtime(s.Showtime),
				TicketURL: s.TicketURL,
				Status:    s.Status,
			})
		}
		out = append(out, ItemPayload{
			Title:      item.Title,
			URL:        item.URL,
			Image:      optional(item.Image),
			Synopsis:   item.Synopsis,
			Credits:    item.Credits,
			IsEvent:    item.IsEvent,
			Screenings: screenings,
		})
	}
	return out
}

// formatShowtime renders an unambiguous absolute timestamp; a date-only
// showtime drops the clock part so consumers can render "time unknown".
func formatShowtime(s scrape.Showtime) string {
	if !s.HasClock {
		return s.At.Format("2006-01-02")
	}
	return s.At.Format("2006-01-02T15:04")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
