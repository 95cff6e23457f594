package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/websum/websum"
	"github.com/websum/websum/fs"
	wshttp "github.com/websum/websum/http"
	"github.com/websum/websum/rod"
	wslog "github.com/websum/websum/slog"
	"github.com/websum/websum/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// State directory for checkpoint and cache files. Set before calling
	// Run(); flags and WEBSUM_STATE override it.
	StateDir string

	// SQLite database, opened only when the cache backend is SQLite.
	DB *sqlite.DB
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		StateDir: defaultStateDir(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("websum"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'websum --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if cli.Verbose {
		level = slog.LevelInfo
	}
	deps.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	stateDir := m.StateDir
	if cli.StateDir != "" {
		stateDir = cli.StateDir
	}
	deps.Checkpoints = fs.NewCheckpointStore(filepath.Join(stateDir, "checkpoint.json"))

	if cli.DB != "" {
		m.DB = sqlite.NewDB(cli.DB)
		if err := m.DB.Open(); err != nil {
			return fmt.Errorf("failed to open database at %q: %w", cli.DB, err)
		}
		defer m.Close()
		deps.Cache = sqlite.NewCacheStore(m.DB)
		deps.CacheRef = cli.DB
	} else {
		cachePath := filepath.Join(stateDir, "cache.json")
		deps.Cache = fs.NewCacheStore(cachePath)
		deps.CacheRef = cachePath
	}

	// The parsed command, not the raw first argument: global flags may
	// precede the command (e.g. "websum -v crawl URL").
	if strings.HasPrefix(kongCtx.Command(), "crawl") {
		var fetcher websum.Fetcher
		if cli.Crawl.Browser {
			f, err := rod.NewFetcher()
			if err != nil {
				fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
				return fmt.Errorf("failed to start browser: %w", err)
			}
			fetcher = f
		} else {
			fetcher = wshttp.NewFetcher(wshttp.WithTimeout(cli.Crawl.Timeout))
		}
		defer fetcher.Close()

		deps.Fetcher = wslog.NewLoggingFetcher(fetcher, deps.Logger)
		deps.Sitemaps = wslog.NewLoggingSitemapService(wshttp.NewSitemapService(nil), deps.Logger)
	}

	return kongCtx.Run(deps)
}

func defaultStateDir() string {
	if dir := os.Getenv("WEBSUM_STATE"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".websum"
	}
	return filepath.Join(home, ".websum")
}
