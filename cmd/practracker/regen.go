package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/practracker/practracker/internal/metrics"
	"github.com/practracker/practracker/internal/problem"
	"github.com/practracker/practracker/internal/scan"
)

var regenCmd = &cobra.Command{
	Use:   "regen [topdir]",
	Short: "Regenerate the exceptions ledger from the current tree",
	Long: `Scan the tree against an empty ledger so that every current violation is
recorded, then rewrite the exceptions file to exactly match reality.

The ledger is written to a temporary file and renamed into place, so an
interrupted run never corrupts the existing ledger. Running regen twice on
an unchanged tree produces byte-identical output.

Remember: it is better to fix a problem than to regenerate its exception!`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRegen(topdirArg(args))
	},
}

func init() {
	rootCmd.AddCommand(regenCmd)
}

func runRegen(topdir string) {
	cfg, exceptionsPath, fileList := runSetup(topdir)

	// Everything observed is "new" against an empty vault; no tolerance.
	vault := problem.NewVault()
	thresholds := thresholdsFromConfig(cfg)
	scanner := scan.New(vault, metrics.BraceExtractor{}, thresholds, topdir, scan.Options{})

	result, err := scanner.ScanFiles(fileList)
	if err != nil {
		fatal(err)
	}

	if err := problem.WriteLedger(exceptionsPath, ledgerHeader(thresholds), result.NewProblems); err != nil {
		fatal(err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Wrote %d exception(s) to %s (%d file(s) scanned)\n",
		green("✓"), result.NewCount(), exceptionsPath, result.FilesScanned)
}

// ledgerHeader documents the ledger format and the thresholds in force when
// it was generated.
func ledgerHeader(t scan.Thresholds) string {
	return fmt.Sprintf(`# Welcome to the exceptions file for the best-practices tracker!
#
# Each line of this file represents a single violation of the tracked best
# practices -- typically, a violation that predates the tracker itself.
#
# There are three kinds of problems that we recognize right now:
#   function-size -- a function of more than %d lines.
#   file-size -- a file of more than %d lines.
#   include-count -- a file with more than %d #includes.
#
# Each line below represents a single exception that the tracker should
# _ignore_. Each line has four parts:
#  1. The word "problem".
#  2. The kind of problem.
#  3. The location of the problem: either a filename, or a
#     filename:functionname pair.
#  4. The magnitude of the problem to ignore.
#
# So for example, consider this line:
#    problem file-size /src/core/connection.c 3200
#
# It tells the tracker to allow the mentioned file to be up to 3200 lines
# long, even though ordinarily it would warn about any file with more than
# %d lines.
#
# You can either edit this file by hand, or regenerate it completely by
# running 'practracker regen'.
#
# Remember: it is better to fix the problem than to add a new exception!

`, t.MaxFunctionLength, t.MaxFileLength, t.MaxIncludeCount, t.MaxFileLength)
}
