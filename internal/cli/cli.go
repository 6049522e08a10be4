package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"riffle.click/internal/audio"
	"riffle.click/internal/config"
	rfs "riffle.click/internal/fs"
	"riffle.click/internal/tracking"
)

const Version = "0.4.0"

// CLI represents the command-line interface
type CLI struct {
	rootCmd          *cobra.Command
	fs               afero.Fs
	fsFactory        rfs.Factory
	configManager    *config.ConfigManager
	backendFactory   audio.BackendFactory
	audioBackend     audio.Playback
	terminalDetector TerminalDetector
	historyDB        *sql.DB
	history          tracking.Sink
	cfg              *config.Config
}

// NewCLI creates a CLI working on the OS filesystem
func NewCLI() *CLI {
	factory := rfs.NewDefaultFactory()
	return NewCLIWithDependencies(factory.Production(), nil, nil)
}

// NewCLIWithDependencies creates a CLI with an injected filesystem, config manager and
// backend factory. nil config manager and factory are created lazily.
func NewCLIWithDependencies(fs afero.Fs, configManager *config.ConfigManager, backendFactory audio.BackendFactory) *CLI {
	slog.Debug("creating new CLI instance")

	rootCmd := &cobra.Command{
		Use:           "riffle",
		Short:         "RIFF/WAVE inspector and player",
		Long:          "Riffle decodes RIFF/WAVE files, reports their chunk layout and anomalies, re-encodes them and plays audio through a selectable backend.",
		Version:       Version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli := cliFromContext(cmd.Context())
			if cli == nil {
				return fmt.Errorf("CLI instance not found in context")
			}
			return cli.prepare(cmd)
		},
	}

	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newReencodeCommand())
	rootCmd.AddCommand(newPlayCommand())
	rootCmd.AddCommand(newToneCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newVersionCommand())

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to config file")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("backend", "", "Audio backend (auto, system_command, malgo, oto)")
	flags.String("volume", "", "Set volume (0.0 to 1.0)")
	flags.Bool("last-wins", false, "Keep the last duplicate fmt/data chunk instead of the first")
	flags.Bool("no-padding", false, "Do not skip the pad byte after odd-sized chunks")

	rootCmd.SetVersionTemplate("riffle version {{.Version}}\n")

	return &CLI{
		rootCmd:        rootCmd,
		fs:             fs,
		fsFactory:      rfs.NewDefaultFactory(),
		configManager:  configManager,
		backendFactory: backendFactory,
	}
}

type cliContextKey struct{}

// contextWithCLI stores the CLI instance in ctx for command handlers
func contextWithCLI(ctx context.Context, cli *CLI) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cli)
}

// cliFromContext extracts the CLI instance from ctx
func cliFromContext(ctx context.Context) *CLI {
	if ctx == nil {
		return nil
	}
	if cli, ok := ctx.Value(cliContextKey{}).(*CLI); ok {
		return cli
	}
	return nil
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "riffle version %s\n", Version)
}

// Run executes the CLI with the given arguments and I/O streams
func (c *CLI) Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// answered before any system initialization
	if len(args) > 1 && (args[1] == "--version" || args[1] == "-v") {
		printVersion(stdout)
		return 0
	}

	c.initializeSystems()

	defer c.close()

	ctx, stop := signal.NotifyContext(contextWithCLI(context.Background(), c), os.Interrupt)
	defer stop()

	if len(args) > 0 {
		c.rootCmd.SetArgs(args[1:])
	} else {
		c.rootCmd.SetArgs(nil)
	}
	c.rootCmd.SetIn(stdin)
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)

	if err := c.rootCmd.ExecuteContext(ctx); err != nil {
		slog.Debug("command failed", "error", err)
		return 1
	}
	return 0
}

// initializeSystems creates the components that do not depend on configuration
func (c *CLI) initializeSystems() {
	if c.fs == nil {
		c.fs = c.fsFactory.Production()
	}
	if c.configManager == nil {
		c.configManager = config.NewConfigManagerWithFilesystem(c.fs)
	}
	if c.backendFactory == nil {
		c.backendFactory = audio.NewBackendFactory()
	}
	if c.terminalDetector == nil {
		c.terminalDetector = &DefaultTerminalDetector{}
	}
}

// prepare loads configuration and sets up logging and history before a subcommand runs
func (c *CLI) prepare(cmd *cobra.Command) error {
	cfg, err := loadAndValidateConfig(cmd, c)
	if err != nil {
		return err
	}
	c.cfg = cfg

	setupLogging(cfg, c.configManager, cmd.ErrOrStderr())
	c.initializeHistory(cfg)
	return nil
}

func (c *CLI) close() {
	if c.audioBackend != nil {
		if err := c.audioBackend.Close(); err != nil {
			slog.Error("error closing audio backend", "error", err)
		}
		c.audioBackend = nil
	}
	if c.historyDB != nil {
		if err := c.historyDB.Close(); err != nil {
			slog.Error("error closing history database", "error", err)
		}
		c.historyDB = nil
		c.history = nil
	}
}

// loadAndValidateConfig loads configuration from flags and files, applies overrides, and validates
func loadAndValidateConfig(cmd *cobra.Command, cli *CLI) (*config.Config, error) {
	flags := cmd.Flags()
	configFile, _ := flags.GetString("config")
	volumeStr, _ := flags.GetString("volume")
	logLevel, _ := flags.GetString("log-level")
	backend, _ := flags.GetString("backend")
	lastWins, _ := flags.GetBool("last-wins")
	noPadding, _ := flags.GetBool("no-padding")

	var volume float64
	if volumeStr != "" {
		vol, err := strconv.ParseFloat(volumeStr, 64)
		if err != nil {
			slog.Error("invalid volume value", "value", volumeStr, "error", err)
			return nil, fmt.Errorf("invalid volume value '%s': %w", volumeStr, err)
		}
		if vol < 0.0 || vol > 1.0 {
			slog.Error("volume out of range", "value", vol)
			return nil, fmt.Errorf("volume must be between 0.0 and 1.0, got %g", vol)
		}
		volume = vol
	}

	var cfg *config.Config
	if configFile != "" {
		fileConfig, err := cli.configManager.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error loading config %s: %w", configFile, err)
		}
		cfg = cli.configManager.MergeConfigs(cli.configManager.GetDefaultConfig(), fileConfig)
	} else {
		var err error
		cfg, err = cli.configManager.LoadConfig()
		if err != nil {
			slog.Error("config load failed", "error", err)
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	}

	cfg = cli.configManager.ApplyEnvironmentOverrides(cfg)

	if volumeStr != "" {
		cfg.Volume = &volume
		slog.Debug("volume override applied", "value", volume)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if backend != "" {
		cfg.AudioBackend = backend
	}
	if lastWins {
		cfg.DuplicatePolicy = "last"
	}
	if noPadding {
		skip := false
		cfg.SkipPadding = &skip
	}

	if err := cli.configManager.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging installs the default slog logger: stderr at the configured level,
// plus a rotating debug-level file when file logging is enabled
func setupLogging(cfg *config.Config, configManager *config.ConfigManager, stderr io.Writer) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
	}

	fileEnabled := false
	if cfg.FileLogging != nil && cfg.FileLogging.Enabled {
		logFilePath := configManager.ResolveLogFilePath(cfg.FileLogging.Filename)
		logDir := filepath.Dir(logFilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			slog.Error("failed to create log directory", "path", logDir, "error", err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   logFilePath,
				MaxSize:    cfg.FileLogging.MaxSizeMB,
				MaxBackups: cfg.FileLogging.MaxBackups,
				MaxAge:     cfg.FileLogging.MaxAgeDays,
				Compress:   cfg.FileLogging.Compress,
			}
			handlers = append(handlers, slog.NewTextHandler(fileWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))
			fileEnabled = true
		}
	}

	slog.SetDefault(slog.New(NewMultiLevelHandler(handlers...)))

	slog.Debug("logging setup completed",
		"level", level.String(),
		"handlers", len(handlers),
		"file_enabled", fileEnabled)
}

// initializeHistory opens the history database when enabled. Failures leave history off
// rather than failing the command.
func (c *CLI) initializeHistory(cfg *config.Config) {
	if c.history != nil {
		return
	}

	if cfg.History == nil || !cfg.History.Enabled {
		if level, _ := config.ParseLogLevel(cfg.LogLevel); level <= slog.LevelDebug {
			c.history = tracking.NewSlogSink(nil)
		} else {
			c.history = tracking.NopSink{}
		}
		slog.Debug("history disabled")
		return
	}

	dbPath := c.configManager.ResolveHistoryPath(cfg.History.Path)
	db, err := tracking.NewDatabase(dbPath)
	if err != nil {
		slog.Error("failed to open history database, continuing without history", "path", dbPath, "error", err)
		c.history = tracking.NopSink{}
		return
	}

	c.historyDB = db
	c.history = tracking.NewRecorder(db)
	slog.Info("history database initialized", "path", dbPath)
}

// record stores event in the history; failures are logged only
func (c *CLI) record(ctx context.Context, event tracking.Event) {
	if c.history == nil {
		return
	}
	if _, err := c.history.Record(ctx, event); err != nil {
		slog.Warn("failed to record history event", "path", event.Path, "operation", event.Operation, "error", err)
	}
}

// playback returns the configured backend, creating it on first use
func (c *CLI) playback() (audio.Playback, error) {
	if c.audioBackend != nil {
		return c.audioBackend, nil
	}

	backend, err := c.backendFactory.CreateBackend(c.cfg.AudioBackend)
	if err != nil {
		slog.Error("failed to create audio backend", "backend_type", c.cfg.AudioBackend, "error", err)
		return nil, fmt.Errorf("failed to create audio backend '%s': %w", c.cfg.AudioBackend, err)
	}

	volume := c.cfg.VolumeOrDefault()
	if err := backend.SetVolume(float32(volume)); err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to set volume on backend: %w", err)
	}

	slog.Debug("audio backend initialized", "backend", backend.Name(), "volume", volume)
	c.audioBackend = backend
	return backend, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}
