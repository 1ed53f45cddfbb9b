package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	flagYes   bool
	flagCount int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan, confirm, and block",
	Long: `Run executes the full pipeline: scan and filter followers, then ask how
many of the eligible candidates to block. Blocking only starts after an
explicit confirmation, separate from the scan. Use --yes with --count for
non-interactive runs.`,
	RunE: runRunCmd,
}

func init() {
	runCmd.Flags().BoolVar(&flagYes, "yes", false, "skip the interactive confirmation")
	runCmd.Flags().IntVar(&flagCount, "count", 0, "how many eligible candidates to block (with --yes)")
}

func runRunCmd(cmd *cobra.Command, args []string) error {
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

	runner, sink, err := buildRunner(cmd, cfg)
	if err != nil {
		return err
	}

	scan, err := runner.Scan(cmd.Context())
	if err != nil {
		return err
	}
	printScan(scan)

	if len(scan.Eligible) == 0 {
		return nil
	}

	count := flagCount
	if flagYes {
		if count < 1 {
			count = len(scan.Eligible)
		}
	} else {
		count, err = confirmCount(len(scan.Eligible))
		if err != nil {
			return err
		}
		if count == 0 {
			fmt.Println("Aborted, nothing blocked.")
			return nil
		}
	}

	summary, err := runner.Execute(cmd.Context(), scan, count)
	if err != nil {
		return err
	}

	fmt.Printf("\nFinished: %d of %d blocked, audit log at %s\n",
		summary.Succeeded, summary.Selected, sink.Path())
	for _, warn := range summary.Warnings {
		fmt.Printf("warning: %s\n", warn)
	}
	return nil
}

// confirmCount is the human gate between scan and mutation. It returns 0
// when the user declines.
func confirmCount(eligible int) (int, error) {
	countInput := strconv.Itoa(eligible)
	confirmed := false

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("How many to block?").
				Description(fmt.Sprintf("1 to %d, first-come first-blocked", eligible)).
				Value(&countInput).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil {
						return fmt.Errorf("enter a number")
					}
					if n < 1 || n > eligible {
						return fmt.Errorf("must be between 1 and %d", eligible)
					}
					return nil
				}),

			huh.NewConfirm().
				Title("Block now?").
				Description("Blocks are created immediately and logged to the audit CSV.").
				Affirmative("Block").
				Negative("Abort").
				Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		return 0, err
	}
	if !confirmed {
		return 0, nil
	}
	return strconv.Atoi(countInput)
}
