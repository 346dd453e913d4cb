package config

// Profile describes where the scraper finds its data on the source site.
// The defaults model dfi.dk/cinemateket; a YAML file can override any part
// of it when the site markup shifts.
type Profile struct {
	Listings  Listings  `yaml:"listings"`
	Selectors Selectors `yaml:"selectors"`
	Text      Text      `yaml:"text"`
	Limits    Limits    `yaml:"limits"`
}

// Listings holds the entry points of the crawl, as paths relative to the
// site base URL.
type Listings struct {
	Films       string `yaml:"films"`
	Events      string `yaml:"events"`
	SeriesIndex string `yaml:"series_index"`

	// Path substrings an anchor must/must not contain to count as an item.
	ItemPatterns  []string `yaml:"item_patterns"`
	EventPattern  string   `yaml:"event_pattern"`
	SeriesPattern string   `yaml:"series_pattern"`
	Excludes      []string `yaml:"excludes"`
}

// Selectors are the CSS hooks for per-page field extraction.
type Selectors struct {
	ShowingRow    string   `yaml:"showing_row"`
	ShowingDate   string   `yaml:"showing_date"`
	ShowingTime   string   `yaml:"showing_time"`
	ShowingTicket string   `yaml:"showing_ticket"`
	Body          []string `yaml:"body"`
	Image         []string `yaml:"image"`
	SeriesLink    string   `yaml:"series_link"`
}

// Text holds language-level heuristics: credit markers, line blacklist and
// the brand names a title candidate must not equal.
type Text struct {
	CreditMarkers []string `yaml:"credit_markers"`
	Blacklist     []string `yaml:"blacklist"`
	BrandNames    []string `yaml:"brand_names"`
	SoldOut       string   `yaml:"sold_out"`
	NextPage      string   `yaml:"next_page"`
}

// Limits bounds the crawl and derived text.
type Limits struct {
	MaxPages   int `yaml:"max_pages"`
	IntroWords int `yaml:"intro_words"`
}
