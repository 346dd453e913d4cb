package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Source site configuration
	BaseURL    string `long:"base-url" env:"BASE_URL" default:"https://www.dfi.dk" description:"Base URL of the cinematheque site"`
	SiteConfig string `long:"site-config" env:"SITE_CONFIG" description:"Optional YAML site profile overriding the built-in selectors"`
	UserAgent  string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0 Safari/537.36" description:"User agent string for HTTP requests"`

	// Fetch behavior
	FetchTimeout int `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"20" description:"Per-request timeout in seconds"`
	FetchDelay   int `long:"fetch-delay" env:"FETCH_DELAY" default:"250" description:"Courtesy delay between consecutive fetches in milliseconds"`
	MaxPages     int `long:"max-pages" env:"MAX_PAGES" default:"30" description:"Safety ceiling on pages visited per listing crawl"`

	// Application configuration
	Port            string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	DBPath          string `long:"db-path" env:"DB_PATH" default:"./kinogram.db" description:"Path to the SQLite snapshot database"`
	SnapshotTTL     int    `long:"snapshot-ttl" env:"SNAPSHOT_TTL" default:"15" description:"Minutes a stored program snapshot stays fresh (0 disables reuse)"`
	RefreshInterval int    `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"0" description:"Minutes between background program refreshes (0 disables)"`
	APIAccessKey    string `long:"api-key" env:"API_ACCESS_KEY" description:"Access key guarding the admin endpoints (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"Europe/Copenhagen" description:"Timezone for parsed screening times"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		BaseURL:         raw.BaseURL,
		SiteConfig:      raw.SiteConfig,
		UserAgent:       raw.UserAgent,
		FetchTimeout:    raw.FetchTimeout,
		FetchDelay:      raw.FetchDelay,
		MaxPages:        raw.MaxPages,
		Port:            raw.Port,
		DBPath:          raw.DBPath,
		SnapshotTTL:     raw.SnapshotTTL,
		RefreshInterval: raw.RefreshInterval,
		APIAccessKey:    raw.APIAccessKey,
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
