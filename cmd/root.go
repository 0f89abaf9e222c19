package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"threadedhttp/config"
	"threadedhttp/server"
)

// NewRootCmd builds the threadedhttp command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "threadedhttp",
		Short:        "A minimal HTTP server backed by a fixed-size worker pool",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}

	defaults := config.DefaultConfig()
	flags := cmd.Flags()
	flags.StringP("config", "c", "", "Path to a configuration file (.json or key=value)")
	flags.String("host", defaults.Host, "Host to bind to")
	flags.IntP("port", "p", defaults.Port, "Port to listen on")
	flags.IntP("threads", "t", defaults.Threads, "Number of worker threads")
	flags.BoolP("verbose", "v", defaults.Verbose, "Log every accepted connection")
	flags.String("docroot", defaults.DocRoot, "Directory holding hello.html and 404.html")
	flags.Duration("sleep-delay", defaults.SleepDelay, "Delay applied by /sleep")
	flags.Duration("read-timeout", defaults.ReadTimeout, "Time allowed to send the request line")
	flags.String("access-log", defaults.AccessLogPath, "Access log file (disabled when empty)")
	flags.Bool("cache", defaults.EnableCaching, "Cache page files in memory")
	flags.Float64("rate-limit", defaults.RateLimit, "Accepted connections per second (0 disables)")
	flags.Int("rate-burst", defaults.RateBurst, "Burst size for --rate-limit")

	return cmd
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Verbose)

	coordinator := server.NewCoordinator(logger)
	coordinator.Listen()
	defer coordinator.Stop()

	srv, err := server.NewServer(cfg, coordinator, server.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("error creating server: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Starting ThreadedHTTP server on %s\n", cfg.Address())
	fmt.Fprintf(out, "Thread pool size: %d\n", cfg.Threads)
	fmt.Fprintf(out, "Press Ctrl+C to stop\n\n")

	if err := srv.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// loadConfig reads the config file, if any, then applies every flag the user
// set explicitly on top of it
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("threads") {
		cfg.Threads, _ = flags.GetInt("threads")
	}
	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("docroot") {
		cfg.DocRoot, _ = flags.GetString("docroot")
	}
	if flags.Changed("sleep-delay") {
		cfg.SleepDelay, _ = flags.GetDuration("sleep-delay")
	}
	if flags.Changed("read-timeout") {
		cfg.ReadTimeout, _ = flags.GetDuration("read-timeout")
	}
	if flags.Changed("access-log") {
		cfg.AccessLogPath, _ = flags.GetString("access-log")
	}
	if flags.Changed("cache") {
		cfg.EnableCaching, _ = flags.GetBool("cache")
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit, _ = flags.GetFloat64("rate-limit")
	}
	if flags.Changed("rate-burst") {
		cfg.RateBurst, _ = flags.GetInt("rate-burst")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger returns the operational logger; verbose lowers the level to debug
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
