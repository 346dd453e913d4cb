package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default returns the built-in profile for dfi.dk/cinemateket. The selector
// and marker values come from the markup observed on the live site.
func Default() *Profile {
	return &Profile{
		Listings: Listings{
			Films:         "/cinemateket/biograf/alle-film",
			Events:        "/cinemateket/biograf/alle-events",
			SeriesIndex:   "/cinemateket/biograf/alle-serier",
			ItemPatterns:  []string{"/film/", "/event/"},
			EventPattern:  "/event/",
			SeriesPattern: "/serie/",
			Excludes:      []string{"viden-om-film"},
		},
		Selectors: Selectors{
			ShowingRow:    ".ct-cinema-movie-showings__list-item",
			ShowingDate:   ".ct-cinema-movie-showings__date",
			ShowingTime:   ".ct-cinema-movie-showings__time",
			ShowingTicket: "a.btn",
			Body:          []string{".field-name-body .field-item", "article .content"},
			Image:         []string{".media-element-container img", "article img"},
			SeriesLink:    ".field-name-field-cinemateket-series a",
		},
		Text: Text{
			CreditMarkers: []string{
				"Instruktør:", "Medvirkende:", "Original titel:",
				"Originaltitel:", "Manuskript:", "Længde:", "Tilladt for",
			},
			Blacklist:  []string{"Læs mere", "Se mere", "Bestil billet", "Køb billet"},
			BrandNames: []string{"Cinemateket", "Det Danske Filminstitut"},
			SoldOut:    "udsolgt",
			NextPage:   "Næste",
		},
		Limits: Limits{
			MaxPages:   30,
			IntroWords: 80,
		},
	}
}

// Load reads a profile from a YAML file, layering it over the defaults so a
// partial file only overrides what it names. An empty path yields the
// defaults unchanged.
func Load(path string) (*Profile, error) {
	profile := Default()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site profile: %w", err)
	}

	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("failed to parse site profile: %w", err)
	}

	if err := validate(profile); err != nil {
		return nil, fmt.Errorf("invalid site profile %s: %w", path, err)
	}

	return profile, nil
}

func validate(p *Profile) error {
	if p.Listings.Films == "" {
		return fmt.Errorf("films listing path is required")
	}
	if len(p.Listings.ItemPatterns) == 0 {
		return fmt.Errorf("at least one item URL pattern is required")
	}
	if p.Selectors.ShowingRow == "" {
		return fmt.Errorf("showing row selector is required")
	}
	if p.Limits.MaxPages < 0 {
		return fmt.Errorf("max pages must be non-negative")
	}
	if p.Limits.IntroWords < 0 {
		return fmt.Errorf("intro words must be non-negative")
	}
	return nil
}
