package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/practracker/practracker/internal/metrics"
	"github.com/practracker/practracker/internal/scan"
)

var overstrictCmd = &cobra.Command{
	Use:   "list-overstrict [topdir]",
	Short: "List ledger entries that are stricter than the code now needs",
	Long: `Scan the tree without tolerance inflation and list every exception whose
allowed magnitude exceeds what was actually observed.

An entry is over-strict when the code improved (observed magnitude is now
smaller than allowed) or when the problem vanished entirely (reported with
observed magnitude 0). Over-strict entries are candidates for removal or
tightening.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runListOverstrict(topdirArg(args))
	},
}

func init() {
	rootCmd.AddCommand(overstrictCmd)
}

func runListOverstrict(topdir string) {
	cfg, exceptionsPath, fileList := runSetup(topdir)

	// Over-strict detection needs the raw ledger magnitudes, so the vault
	// is loaded without tolerance adjustment.
	vault := loadVault(exceptionsPath)
	scanner := scan.New(vault, metrics.BraceExtractor{}, thresholdsFromConfig(cfg), topdir, scan.Options{})

	if _, err := scanner.ScanFiles(fileList); err != nil {
		fatal(err)
	}

	overstrict := vault.OverstrictExceptions()
	if len(overstrict) == 0 {
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s No over-strict exceptions in %s\n", green("✓"), exceptionsPath)
		return
	}

	for _, o := range overstrict {
		observed := 0
		if o.Observed != nil {
			observed = o.Observed.Magnitude
		}
		fmt.Printf("%s -> %d\n", o.Allowed, observed)
	}
}
