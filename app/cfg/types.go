package cfg

type Cfg struct {
	// Source site configuration
	BaseURL    string
	SiteConfig string
	UserAgent  string

	// Fetch behavior
	FetchTimeout int // seconds
	FetchDelay   int // milliseconds between consecutive network fetches
	MaxPages     int

	// Application configuration
	Port            string
	DBPath          string
	SnapshotTTL     int // minutes, 0 disables snapshot reuse
	RefreshInterval int // minutes, 0 disables background refresh
	APIAccessKey    string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
