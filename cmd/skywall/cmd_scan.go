package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aykute/skywall/internal/atproto"
	"github.com/aykute/skywall/internal/auditlog"
	"github.com/aykute/skywall/internal/config"
	"github.com/aykute/skywall/internal/pipeline"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Fetch and filter followers without blocking anyone",
	Long: `Scan logs in, fetches the seed account's followers and your existing
blocks, and prints the block-eligible candidates. Nothing is mutated; use
'skywall run' to actually block.`,
	RunE: runScanCmd,
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := promptPassword(&cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	runner, _, err := buildRunner(cmd, cfg)
	if err != nil {
		return err
	}

	scan, err := runner.Scan(cmd.Context())
	if err != nil {
		return err
	}

	printScan(scan)
	return nil
}

// buildRunner logs in and assembles the pipeline over the live client.
func buildRunner(cmd *cobra.Command, cfg config.Config) (*pipeline.Runner, *auditlog.Sink, error) {
	client := atproto.NewClient(atproto.ClientConfig{ServiceURL: cfg.ServiceURL})
	if _, err := client.Login(cmd.Context(), cfg.Identifier, cfg.AppPassword); err != nil {
		return nil, nil, err
	}

	sink := auditlog.New(cfg.LogPath)
	runner := pipeline.NewRunner(client, client, sink,
		pipeline.LogEvents{Log: log.Logger},
		pipeline.RunnerConfig{
			SeedActor:     cfg.SeedActor,
			Threshold:     cfg.Threshold,
			MaxFollowers:  cfg.MaxFollowers,
			PageSize:      cfg.PageSize,
			HydrateCounts: cfg.HydrateCounts,
			BlockDelay:    cfg.BlockDelay.Std(),
		}, log.Logger)
	return runner, sink, nil
}

func printScan(scan *pipeline.ScanResult) {
	fmt.Printf("\nScanned %d followers of @%s, %d already blocked, %d eligible:\n\n",
		scan.Followers, scan.SeedActor, scan.BlockSet, len(scan.Eligible))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HANDLE\tFOLLOWS\tDID")
	for _, c := range scan.Eligible {
		fmt.Fprintf(w, "@%s\t%d\t%s\n", c.Handle, c.FollowsCount, c.DID)
	}
	w.Flush()

	for _, warn := range scan.Warnings {
		fmt.Printf("warning: %s\n", warn)
	}
}
