package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/websum/websum"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx         context.Context
	Stdout      io.Writer
	Stderr      io.Writer
	Logger      *slog.Logger
	Fetcher     websum.Fetcher
	Sitemaps    websum.SitemapService
	Cache       websum.CacheStore
	Checkpoints websum.CheckpointStore
	CacheRef    string
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Crawl CrawlCmd `cmd:"" help:"Crawl from one or more seed URLs"`
	Clear ClearCmd `cmd:"" help:"Remove the checkpoint and cached URL states"`

	StateDir string `help:"Directory for checkpoint and cache files" env:"WEBSUM_STATE"`
	DB       string `help:"Store the URL cache in a SQLite database at this path instead of a JSON file"`
	Verbose  bool   `short:"v" help:"Log every fetch and checkpoint"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	URLs []string `arg:"" help:"Seed URLs"`

	MaxDepth    int           `default:"2" help:"Maximum link hops from a seed"`
	MaxPages    int           `default:"0" help:"Stop after this many pages (0 = unlimited)"`
	Concurrency int           `short:"c" default:"2" help:"Concurrent fetch limit"`
	Delay       time.Duration `default:"1s" help:"Minimum interval between requests to one domain"`
	MaxDelay    time.Duration `default:"60s" help:"Cap on per-domain backoff"`
	Backoff     float64       `default:"2.0" help:"Backoff multiplier on rate-limit responses"`
	Retries     int           `default:"3" help:"Retry budget per URL for transient failures"`
	Timeout     time.Duration `default:"30s" help:"Timeout for a single fetch"`
	RPM         int           `default:"0" help:"Global requests-per-minute cap (0 = off)"`

	Resume  string   `default:"disabled" enum:"disabled,continue,clear" help:"Checkpoint handling: disabled, continue, or clear"`
	Sitemap bool     `help:"Expand seeds with URLs discovered from sitemaps"`
	Filter  []string `short:"F" name:"filter" help:"Only follow URLs matching a regex (repeatable)"`
	Exclude []string `short:"X" name:"exclude" help:"Never follow URLs matching a regex (repeatable)"`
	Browser bool     `help:"Fetch pages with a headless browser instead of plain HTTP"`
}

// ClearCmd is the "clear" subcommand.
type ClearCmd struct{}
