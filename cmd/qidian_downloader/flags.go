package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/qidian-downloader/internal/browser"
	"github.com/jonathan/qidian-downloader/internal/config"
	"github.com/jonathan/qidian-downloader/internal/engine"
	"github.com/jonathan/qidian-downloader/internal/observability"
	"github.com/jonathan/qidian-downloader/internal/site"
)

// sessionFlags are the flags shared by every command that drives the browser.
type sessionFlags struct {
	configPath string
	bookID     int
	useCookie  bool
	ywguid     string
	ywkey      string
	username   string
	password   string
	noHeadless bool
	verbose    bool
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	// Config file flag (processed first)
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	cmd.Flags().IntVarP(&f.bookID, "book", "i", 0, "ID of the book to download from QiDian")
	cmd.Flags().BoolVarP(&f.useCookie, "cookie", "c", false, "Use cookies (--ywguid, --ywkey) to log in")
	cmd.Flags().StringVar(&f.ywguid, "ywguid", "", "The ywguid cookie (defaults to QIDIAN_YWGUID env var)")
	cmd.Flags().StringVar(&f.ywkey, "ywkey", "", "The ywkey cookie (defaults to QIDIAN_YWKEY env var)")
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "QiDian account username (defaults to QIDIAN_USERNAME env var)")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "QiDian account password (defaults to QIDIAN_PASSWORD env var)")
	cmd.Flags().BoolVar(&f.noHeadless, "no-chrome-headless", false, "Launch Chrome with a visible window")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print detailed debug information")
}

// resolveConfig merges, in order of priority: flags, config file, environment, defaults.
func (f *sessionFlags) resolveConfig(cmd *cobra.Command) (config.Config, error) {
	// Step 1: Load config file if provided
	var cfg config.Config
	if f.configPath != "" {
		loadedCfg, err := config.LoadConfig(f.configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return config.Config{}, err
		}
		cfg = *loadedCfg
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	flags := cmd.Flags()
	if flags.Changed("book") {
		cfg.BookID = f.bookID
	}
	if flags.Changed("cookie") {
		cfg.UseCookie = f.useCookie
	}
	if flags.Changed("ywguid") {
		cfg.YWGUID = f.ywguid
	}
	if flags.Changed("ywkey") {
		cfg.YWKey = f.ywkey
	}
	if flags.Changed("username") {
		cfg.Username = f.username
	}
	if flags.Changed("password") {
		cfg.Password = f.password
	}
	if flags.Changed("no-chrome-headless") {
		cfg.NoHeadless = f.noHeadless
	}
	if flags.Changed("verbose") {
		cfg.Verbose = f.verbose
	}

	// Step 3: Fill credentials and book from the environment
	env, err := config.FromEnv()
	if err != nil {
		return config.Config{}, err
	}
	cfg = cfg.WithEnv(env)

	// Step 4: Apply defaults for unset values
	cfg = cfg.MergeWithDefaults(config.Defaults())

	// Step 5: Validate required fields
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if cfg.BookID == 0 {
		return config.Config{}, fmt.Errorf("--book is required (via flag, config file or %s)", config.EnvBookID)
	}
	return cfg, nil
}

// newLogger installs the CLI logger as the slog default.
func newLogger(cfg config.Config) *slog.Logger {
	logger := observability.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)
	return logger
}

func launchOptions(cfg config.Config, logger *slog.Logger) *browser.LaunchOptions {
	opts := browser.DefaultLaunchOptions()
	opts.Headless = cfg.Headless()
	opts.NavRate = cfg.NavRate
	opts.NavBurst = cfg.NavBurst
	opts.Logger = logger
	return opts
}

func newEngine(cfg config.Config, logger *slog.Logger, onProgress engine.ProgressCallback) (*engine.Engine, error) {
	return engine.NewForProfile(site.QiDian(), engine.Options{
		AuthTimeout:    cfg.AuthWait(),
		CatalogTimeout: cfg.CatalogWait(),
		ContentTimeout: cfg.ContentWait(),
		Logger:         logger,
		OnProgress:     onProgress,
	})
}
