package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/bough"
	"github.com/jward/bough/internal/config"
	"github.com/jward/bough/internal/logging"
)

var (
	flagDB       string
	flagFormat   string
	flagConfig   string
	flagLogLevel string
	flagTrace    bool
	flagMetrics  bool
)

// Set by the root command before any subcommand runs.
var (
	cfg      config.Config
	repoRoot string
	logger   = logging.Discard()
	shutdown = func(context.Context) error { return nil }
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	err := rootCmd.Execute()
	if serr := shutdown(context.Background()); serr != nil {
		fmt.Fprintf(os.Stderr, "Error: telemetry shutdown: %s\n", serr)
	}
	if err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "bough",
	Short:         "Scope-aware name resolution for Java",
	Long:          "Bough indexes Java sources into syntax trees, resolves every name to the declaration in scope, and answers queries and lint rules over the result.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .bough/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "", "output format: json|text|yaml (default from bough.toml, else text)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "settings file (default: bough.toml at the repo root)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&flagTrace, "trace", false, "print OpenTelemetry spans to stderr")
	rootCmd.PersistentFlags().BoolVar(&flagMetrics, "metrics", false, "print OpenTelemetry metrics to stderr on exit")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(queryCmd)
}

// setup loads settings, applies flag overrides and installs the logger and
// telemetry.
func setup(cmd *cobra.Command) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot = findRepoRoot(cwd)

	if flagConfig != "" {
		cfg, err = config.Load(flagConfig)
	} else {
		cfg, err = config.Find(repoRoot)
	}
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if flagFormat == "" {
		flagFormat = cfg.Format
	}
	if err := validateFormat(flagFormat); err != nil {
		return err
	}

	logCfg := cfg.LoggerConfig()
	if flagLogLevel != "" {
		level, err := logging.ParseLevel(flagLogLevel)
		if err != nil {
			return err
		}
		logCfg.Level = level
	}
	logCfg.Output = cmd.ErrOrStderr()
	logger = logging.New(logCfg)

	return startTelemetry(cmd.Context(), cmd.ErrOrStderr())
}

var (
	flagForce      bool
	flagScriptsDir string
	flagSerial     bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a Java repository",
	Long:  "Parses Java files with tree-sitter, records declarations, references and syntax trees, resolves every reference, and writes results to the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "load lint scripts from disk path instead of embedded")
	indexCmd.Flags().BoolVar(&flagSerial, "serial", false, "index one file at a time")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	root := findRepoRoot(targetDir)
	dbPath := resolveDBPath(root)

	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Cleared database: %s\n", dbPath)
	}

	engine, err := bough.New(dbPath, engineOptions()...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	ctx := cmd.Context()

	extractStart := time.Now()
	// Per-file failures are logged and counted; the rest of the tree still
	// gets indexed and resolved.
	indexErr := engine.IndexDirectory(ctx, targetDir)
	if indexErr != nil && ctx.Err() != nil {
		return fmt.Errorf("indexing: %w", indexErr)
	}
	extractDuration := time.Since(extractStart)

	resolveStart := time.Now()
	if err := engine.Resolve(ctx); err != nil {
		return fmt.Errorf("resolving: %w", err)
	}
	resolveDuration := time.Since(resolveStart)

	stats := engine.Stats()
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "Indexed %s in %s (extract: %s, resolve: %s)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		extractDuration.Round(time.Millisecond),
		resolveDuration.Round(time.Millisecond),
	)
	fmt.Fprintf(w, "Files: %d indexed, %d unchanged, %d failed, %d with changed declarations\n",
		stats.Indexed, stats.Skipped, stats.Failed, stats.SurfaceChanged)
	fmt.Fprintf(w, "Database: %s\n", dbPath)

	if indexErr != nil {
		logger.Warn("some files failed to index", slog.Any("error", indexErr))
	}
	return nil
}

// engineOptions builds Engine options from the loaded settings and flags.
func engineOptions() []bough.Option {
	opts := []bough.Option{
		bough.WithConfig(cfg),
		bough.WithLogger(logger),
	}
	if flagScriptsDir != "" {
		opts = append(opts, bough.WithScriptsDir(flagScriptsDir))
	}
	if flagSerial {
		opts = append(opts, bough.WithParallel(false))
	}
	return opts
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the settings.
func resolveDBPath(root string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(root, flagDB)
	}
	return cfg.DBPath(root)
}

// openEngine opens the index of the current repository for queries.
func openEngine() (*bough.Engine, error) {
	dbPath := resolveDBPath(repoRoot)
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("database not found: %s (run 'bough index' first)", dbPath)
	}
	return bough.New(dbPath, engineOptions()...)
}
