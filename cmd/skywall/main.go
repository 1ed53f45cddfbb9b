package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aykute/skywall/internal/config"
)

var (
	flagConfig string
	flagDebug  bool

	flagIdentifier   string
	flagPassword     string
	flagService      string
	flagSeed         string
	flagThreshold    int64
	flagMaxFollowers int
	flagPageSize     int
	flagHydrate      bool
	flagDelay        time.Duration
	flagLogPath      string
)

var rootCmd = &cobra.Command{
	Use:   "skywall",
	Short: "Block Bluesky followers with suspiciously high follows counts",
	Long: `skywall scans the followers of a seed account, filters them by a
follows-count threshold (a cheap spam heuristic), excludes accounts you
already block, and then blocks a confirmed number of the remainder at a
polite fixed pace, logging every block to a CSV audit file.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if flagDebug {
			level = zerolog.DebugLevel
		}
		zerolog.TimeFieldFormat = time.RFC3339
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(level)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagIdentifier, "identifier", "", "account handle or email (or SKYWALL_IDENTIFIER)")
	rootCmd.PersistentFlags().StringVar(&flagPassword, "app-password", "", "app password (or SKYWALL_APP_PASSWORD; prompted if absent)")
	rootCmd.PersistentFlags().StringVar(&flagService, "service", "", "PDS service URL")
	rootCmd.PersistentFlags().StringVar(&flagSeed, "seed", "", "seed account whose followers are analyzed (defaults to your own)")
	rootCmd.PersistentFlags().Int64Var(&flagThreshold, "threshold", 0, "minimum follows count to be block-eligible")
	rootCmd.PersistentFlags().IntVar(&flagMaxFollowers, "max-followers", -1, "cap on followers scanned (0 = all)")
	rootCmd.PersistentFlags().IntVar(&flagPageSize, "page-size", 0, "pagination page size (max 100)")
	rootCmd.PersistentFlags().BoolVar(&flagHydrate, "hydrate-counts", false, "re-fetch profiles whose listing omitted the follows count")
	rootCmd.PersistentFlags().DurationVar(&flagDelay, "delay", 0, "pause between block calls")
	rootCmd.PersistentFlags().StringVar(&flagLogPath, "log", "", "audit CSV path")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// loadConfig layers flags over the file and environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}

	if flagIdentifier != "" {
		cfg.Identifier = flagIdentifier
	}
	if flagPassword != "" {
		cfg.AppPassword = flagPassword
	}
	if flagService != "" {
		cfg.ServiceURL = flagService
	}
	if flagSeed != "" {
		cfg.SeedActor = flagSeed
	}
	if flagThreshold > 0 {
		cfg.Threshold = flagThreshold
	}
	if flagMaxFollowers >= 0 {
		cfg.MaxFollowers = flagMaxFollowers
	}
	if flagPageSize > 0 {
		cfg.PageSize = flagPageSize
	}
	if cmd.Flags().Changed("hydrate-counts") {
		cfg.HydrateCounts = flagHydrate
	}
	if flagDelay > 0 {
		cfg.BlockDelay = config.Duration(flagDelay)
	}
	if flagLogPath != "" {
		cfg.LogPath = flagLogPath
	}
	if cfg.SeedActor == "" {
		cfg.SeedActor = cfg.Identifier
	}

	return cfg, nil
}

// promptPassword asks for the app password on the terminal when no other
// source supplied one.
func promptPassword(cfg *config.Config) error {
	if cfg.AppPassword != "" {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil // let Validate report the missing credential
	}

	fmt.Fprint(os.Stderr, "App password: ")
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	cfg.AppPassword = string(secret)
	return nil
}
