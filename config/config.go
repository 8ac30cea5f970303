package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"cinease/models"
)

// Config holds everything main needs to wire the client shell.
type Config struct {
	API            string
	Addr           string
	Timeout        time.Duration
	Store          string // file, mysql, postgres or memory
	StorePath      string
	DSN            string
	Rows           string
	SeatsPerRow    int
	DefaultPrice   int
	PageSize       int
	FeaturedEvery  time.Duration
	FeaturedSettle time.Duration
	RatePerSecond  float64
	RateBurst      int
}

// Load parses args, falling back to environment variables through getenv
// for the values a deployment usually overrides.
func Load(args []string, getenv func(string) string) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("cinease", flag.ContinueOnError)
	fs.StringVar(&cfg.API, "api", "", "backend API base URL (overrides CINEASE_API)")
	fs.StringVar(&cfg.Addr, "addr", "", "listen address (overrides CINEASE_ADDR)")
	fs.DurationVar(&cfg.Timeout, "timeout", 15*time.Second, "per-request timeout")
	fs.StringVar(&cfg.Store, "store", "", "local storage backend: file, mysql, postgres or memory (overrides CINEASE_STORE)")
	fs.StringVar(&cfg.StorePath, "store-path", "cinease-storage.json", "file storage path")
	fs.StringVar(&cfg.DSN, "dsn", "", "SQL storage DSN (overrides CINEASE_DSN)")
	fs.StringVar(&cfg.Rows, "rows", "A,B,C,D,E", "comma separated seat row labels")
	fs.IntVar(&cfg.SeatsPerRow, "seats-per-row", 6, "seats in each row")
	fs.IntVar(&cfg.DefaultPrice, "default-price", 150, "unit price for movies without one")
	fs.IntVar(&cfg.PageSize, "page-size", 10, "admin list page size")
	fs.DurationVar(&cfg.FeaturedEvery, "featured-every", 5*time.Second, "featured carousel auto-advance interval")
	fs.DurationVar(&cfg.FeaturedSettle, "featured-settle", 300*time.Millisecond, "featured carousel transition delay")
	fs.Float64Var(&cfg.RatePerSecond, "rate", 20, "outbound requests per second")
	fs.IntVar(&cfg.RateBurst, "burst", 10, "outbound request burst")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.API == "" {
		cfg.API = getenv("CINEASE_API")
		if cfg.API == "" {
			cfg.API = "http://localhost:5000/api"
		}
	}
	if cfg.Addr == "" {
		cfg.Addr = getenv("CINEASE_ADDR")
		if cfg.Addr == "" {
			cfg.Addr = ":8081"
		}
	}
	if cfg.Store == "" {
		cfg.Store = getenv("CINEASE_STORE")
		if cfg.Store == "" {
			cfg.Store = "file"
		}
	}
	if cfg.DSN == "" {
		cfg.DSN = getenv("CINEASE_DSN")
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Store {
	case "file", "memory":
	case "mysql", "postgres":
		if c.DSN == "" {
			return fmt.Errorf("store %q needs a DSN", c.Store)
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be a positive integer")
	}
	if c.DefaultPrice <= 0 {
		return fmt.Errorf("default price must be a positive integer")
	}
	if c.RatePerSecond <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("rate and burst must be positive")
	}
	return c.Theatre().Validate()
}

// Theatre builds the seat layout from the row and seat flags.
func (c Config) Theatre() models.Theatre {
	var rows []string
	for _, r := range strings.Split(c.Rows, ",") {
		if r = strings.ToUpper(strings.TrimSpace(r)); r != "" {
			rows = append(rows, r)
		}
	}
	return models.Theatre{Rows: rows, SeatsPerRow: c.SeatsPerRow}
}
