package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/vivialconnect/config"
	"github.com/s0up4200/vivialconnect/filter"
	"github.com/s0up4200/vivialconnect/vivialconnect"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	client  *vivialconnect.Client
	filters *filter.Manager

	// Persistent flags
	outputFormat string
	whereExpr    string
	logLevel     string

	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "vivialconnect",
	Short: "Command line client for the VivialConnect messaging API",
	Long: `vivialconnect talks to the VivialConnect REST API. It sends SMS and MMS
messages, manages phone numbers, users, configurations and connectors, and
reads account logs and transactions.

Listings can be narrowed with --where, which takes either the name of a
filter from the config file or an expression such as:

  status == "failed" && daysSince(date_created) < 7`,
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
}

// SetVersion records build information shown by the version command
func SetVersion(v, built string) {
	version = v
	buildTime = built
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: table, json or yaml (default from config)")
	rootCmd.PersistentFlags().StringVarP(&whereExpr, "where", "w", "", "filter name or expression applied to listed resources")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

// initializeApp loads the configuration and builds the API client
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	logger = setupLogger(cfg.Logging)

	client, err = vivialconnect.New(cfg.Credentials(), logger, cfg.RequestorOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	filters = filter.NewManager()
	if err := filters.RegisterFilters(cfg.Filters); err != nil {
		return fmt.Errorf("invalid filter in config: %w", err)
	}

	logger.Debug().
		Str("account", cfg.Account.ID).
		Str("base_url", cfg.API.BaseURL).
		Strs("filters", filters.ListFilters()).
		Msg("Client ready")

	return nil
}

func shutdownApp(cmd *cobra.Command, args []string) error {
	if filters == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return filters.Close(ctx)
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Colour only when stderr is a terminal
	fd := os.Stderr.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !tty,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// outputMode returns the effective output format
func outputMode() string {
	if outputFormat != "" {
		return strings.ToLower(outputFormat)
	}
	if cfg != nil && cfg.CLI.Output != "" {
		return cfg.CLI.Output
	}
	return "table"
}

// concurrency returns how many requests may run at once for fan-out commands
func concurrency() int {
	if cfg != nil && cfg.CLI.Concurrency > 0 {
		return cfg.CLI.Concurrency
	}
	return 1
}
