package scrape

import (
	"regexp"
	"strings"
)

// countryYearPattern catches technical lines of the form "USA, 1948" or
// "Danmark, 2024 / 93 min.", which open the credits block on pages that
// carry no labelled credit fields.
var countryYearPattern = regexp.MustCompile(`^[A-ZÆØÅ][a-zæøåA-ZÆØÅ ]*,\s*(19|20)\d{2}`)

// Segmenter splits an item's body text into synopsis and credits. The split
// is a one-way transition: once a line matches a credit marker, that line
// and everything after it is credits.
type Segmenter struct {
	markers   []string
	blacklist map[string]struct{}
}

func NewSegmenter(markers, blacklist []string) *Segmenter {
	bl := make(map[string]struct{}, len(blacklist))
	for _, line := range blacklist {
		bl[line] = struct{}{}
	}
	return &Segmenter{
		markers:   markers,
		blacklist: bl,
	}
}

// Run scans body line by line. Blacklisted boilerplate lines are dropped
// regardless of which section is active. A body with no technical marker
// comes back as pure synopsis with empty credits.
func (s *Segmenter) Run(body string) (synopsis, credits string) {
	var synopsisLines, creditLines []string
	inCredits := false

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, ok := s.blacklist[line]; ok {
			continue
		}

		if !inCredits && s.isCreditLine(line) {
			inCredits = true
		}

		if inCredits {
			creditLines = append(creditLines, line)
		} else {
			synopsisLines = append(synopsisLines, line)
		}
	}

	return strings.Join(synopsisLines, "\n"), strings.Join(creditLines, ", ")
}

func (s *Segmenter) isCreditLine(line string) bool {
	for _, marker := range s.markers {
		if strings.HasPrefix(line, marker) {
			return true
		}
	}
	return countryYearPattern.MatchString(line)
}
