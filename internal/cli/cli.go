// Package cli implements the diagshot command-line interface.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/diagshot/pkg/broker"
	"github.com/matzehuels/diagshot/pkg/browser"
	"github.com/matzehuels/diagshot/pkg/buildinfo"
	"github.com/matzehuels/diagshot/pkg/cache"
	"github.com/matzehuels/diagshot/pkg/config"
	"github.com/matzehuels/diagshot/pkg/endpoint"
	"github.com/matzehuels/diagshot/pkg/observability"
	"github.com/matzehuels/diagshot/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = config.AppName

	// envEndpointFile names the endpoint record for render commands.
	envEndpointFile = "DIAGSHOT_ENDPOINT_FILE"

	// envLegacyEndpointFile is the variable the pub-markdown build scripts set.
	envLegacyEndpointFile = "PUB_MARKDOWN_BROWSER_WS_FILE"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Getenv reads the environment. Only the CLI consults it; libraries get
	// explicit values.
	Getenv func(string) string

	// Browsers and Launcher replace the real Chrome integration when set.
	Browsers pipeline.Browsers
	Launcher broker.Launcher

	cfg          config.Config
	verbose      bool
	configPath   string
	noCache      bool
	endpointFile string
}

// New creates a new CLI instance with a default logger writing to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: w,
		Getenv: os.Getenv,
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "diagshot",
		Short: "diagshot renders diagrams and SVG to PNG with a shared headless browser",
		Long: `diagshot renders Mermaid and Graphviz diagrams to SVG and rasterizes SVG to PNG
by driving headless Chrome. A broker keeps one browser alive for a whole build so
that every render attaches to it instead of starting its own.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}
	c.setupRoot(root)

	root.AddCommand(c.brokerCommand())
	root.AddCommand(c.diagramCommand())
	root.AddCommand(c.svg2pngCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// RSVGConvertCommand creates a standalone svg2png root command that accepts
// the rsvg-convert flags pandoc passes.
func (c *CLI) RSVGConvertCommand() *cobra.Command {
	root := c.svg2pngCommand()
	root.Use = "rsvg-convert"
	root.Aliases = nil
	root.Version = buildinfo.Version
	root.SilenceUsage = true
	c.setupRoot(root)
	return root
}

// setupRoot registers the global flags, the configuration and logging
// set-up and the exit code for flag errors.
func (c *CLI) setupRoot(root *cobra.Command) {
	root.SetVersionTemplate(buildinfo.Template())
	root.SilenceErrors = true
	root.SetIn(c.Stdin)
	root.SetOut(c.Stdout)
	root.SetErr(c.Stderr)

	flags := root.PersistentFlags()
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/diagshot/config.toml)")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the artifact cache")
	flags.StringVar(&c.endpointFile, "endpoint-file", "", "shared browser endpoint record (file path or redis:// URL)")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return withExit(flagErrorCode(cmd), err)
	})

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := LogInfo
		if c.verbose {
			level = LogDebug
		}
		c.SetLogLevel(level)

		cfg, err := config.Load(c.configPath)
		if err != nil {
			return withExit(flagErrorCode(cmd), err)
		}
		c.cfg = cfg

		hooks := &logHooks{logger: c.Logger}
		observability.SetRenderHooks(hooks)
		observability.SetBrowserHooks(hooks)
		observability.SetCacheHooks(hooks)
		return nil
	}
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context) *pipeline.Runner {
	ch, keyer := c.newCache(ctx)
	r := pipeline.NewRunner(ch, keyer, c.browsers(), c.Logger)
	r.Timeout = c.cfg.Render.Timeout.Duration
	r.TTL = c.cfg.Cache.TTL.Duration
	return r
}

func (c *CLI) browsers() pipeline.Browsers {
	if c.Browsers != nil {
		return c.Browsers
	}
	return browser.NewClient(c.endpointStore(), browser.Options{
		ExecPath: c.cfg.Browser.ExecPath,
		Flags:    c.cfg.Browser.Flags,
	}, c.Logger)
}

// newCache opens the configured artifact cache. A cache that cannot be
// opened disables caching for the run rather than failing it.
func (c *CLI) newCache(ctx context.Context) (cache.Cache, cache.Keyer) {
	if c.noCache || !c.cfg.Cache.Enabled {
		return cache.NewNullCache(), nil
	}
	if url := c.cfg.Cache.RedisURL; url != "" {
		rc, err := cache.NewRedisCache(ctx, url)
		if err != nil {
			c.Logger.Warn("redis cache unavailable, caching disabled", "error", err)
			return cache.NewNullCache(), nil
		}
		return rc, cache.NewScopedKeyer(cache.NewDefaultKeyer(), appName+":")
	}
	dir, err := c.cfg.CacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Debug("file cache unavailable", "dir", dir, "error", err)
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// =============================================================================
// Endpoint Record
// =============================================================================

// endpointLocation returns where render commands look for the shared
// browser: --endpoint-file, then the environment, then the config file.
func (c *CLI) endpointLocation() string {
	if c.endpointFile != "" {
		return c.endpointFile
	}
	getenv := c.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, name := range []string{envEndpointFile, envLegacyEndpointFile} {
		if v := getenv(name); v != "" {
			return v
		}
	}
	return c.cfg.Endpoint.File
}

// endpointStore opens the record render commands read. Nil means there is
// no shared browser to look for.
func (c *CLI) endpointStore() endpoint.Store {
	loc := c.endpointLocation()
	if loc == "" {
		return nil
	}
	store, err := endpoint.Open(loc)
	if err != nil {
		c.Logger.Debug("ignoring endpoint record", "location", loc, "error", err)
		return nil
	}
	return store
}
