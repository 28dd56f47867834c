package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/practracker/practracker/internal/config"
	"github.com/practracker/practracker/internal/files"
	"github.com/practracker/practracker/internal/metrics"
	"github.com/practracker/practracker/internal/problem"
	"github.com/practracker/practracker/internal/scan"
)

// AdviceEnvVar suppresses the advisory block printed after new problems are
// found. The exit status is unaffected, so CI gating still works.
const AdviceEnvVar = "PRACTRACKER_DISABLE_ADVICE"

var (
	// exceptionsFlag overrides the ledger file location.
	exceptionsFlag string
)

var rootCmd = &cobra.Command{
	Use:   "practracker [topdir]",
	Short: "Track best-practices metrics violations in a source tree",
	Long: `Scan a C-like source tree, compute size metrics (file length, function
length, #include count), and report violations that are not already
whitelisted in the exceptions ledger.

The ledger lets a codebase carry historical debt without failing CI on
pre-existing problems, while still catching newly introduced ones.

Exit status is the number of new problems found; 0 means clean.

Examples:
  # Check the current tree against ./exceptions.txt
  practracker .

  # Check without tolerance inflation
  practracker --strict .

  # Rebuild the ledger to match current reality
  practracker regen .

  # List ledger entries that are stricter than the code now needs
  practracker list-overstrict .`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		strict, _ := cmd.Flags().GetBool("strict")
		runCheck(topdirArg(args), strict)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&exceptionsFlag, "exceptions", "",
		"Override the location of the exceptions ledger file")
	rootCmd.Flags().Bool("strict", false,
		"Disable tolerance inflation: any regression past a ledger entry is new")
}

// topdirArg resolves the optional positional topdir argument.
func topdirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// fatal prints an error and terminates with status 1.
func fatal(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(os.Stderr, "%s %v\n", red("✗"), err)
	os.Exit(1)
}

// runSetup loads the tree config, resolves the ledger path, and enumerates
// candidate files. Shared by every mode.
func runSetup(topdir string) (*config.Config, string, []string) {
	cfg, err := config.LoadConfig(topdir)
	if err != nil {
		fatal(err)
	}

	exceptionsPath := exceptionsFlag
	if exceptionsPath == "" {
		exceptionsPath = cfg.ExceptionsPath(topdir)
	}

	fileList, err := files.List(topdir, files.ListOptions{
		Extensions:      cfg.Extensions,
		ExcludePatterns: cfg.ExcludePaths,
	})
	if err != nil {
		fatal(err)
	}

	return cfg, exceptionsPath, fileList
}

// loadVault reads the ledger, tolerating a missing file (empty vault) but
// treating a corrupt one as fatal. Duplicate-key warnings go to stderr.
func loadVault(path string) *problem.Vault {
	vault, err := problem.LoadVault(path)
	if errors.Is(err, os.ErrNotExist) {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Fprintf(os.Stderr, "%s No exceptions file at %s; treating every problem as new\n",
			yellow("⚠"), path)
		return problem.NewVault()
	}
	if err != nil {
		fatal(err)
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	for _, w := range vault.Warnings() {
		fmt.Fprintf(os.Stderr, "%s %s\n", yellow("⚠"), w)
	}
	return vault
}

// thresholdsFromConfig applies config overrides on top of the built-in
// policy limits.
func thresholdsFromConfig(cfg *config.Config) scan.Thresholds {
	t := scan.DefaultThresholds()
	if cfg.MaxFileLength > 0 {
		t.MaxFileLength = cfg.MaxFileLength
	}
	if cfg.MaxFunctionLength > 0 {
		t.MaxFunctionLength = cfg.MaxFunctionLength
	}
	if cfg.MaxIncludeCount > 0 {
		t.MaxIncludeCount = cfg.MaxIncludeCount
	}
	return t
}

// runCheck is the normal mode: report new problems and exit with their count.
func runCheck(topdir string, strict bool) {
	cfg, exceptionsPath, fileList := runSetup(topdir)

	vault := loadVault(exceptionsPath)
	scanner := scan.New(vault, metrics.BraceExtractor{}, thresholdsFromConfig(cfg), topdir, scan.Options{
		ApplyTolerance: !strict,
		Strict:         strict,
	})

	result, err := scanner.ScanFiles(fileList)
	if err != nil {
		fatal(err)
	}

	printProblems(result, scanner.Thresholds())

	if result.NewCount() > 0 && os.Getenv(AdviceEnvVar) == "" {
		fmt.Printf(`
FAILURE: practracker found %d new problem(s) in the code: see warnings above.

Please fix the problems if you can, and update the exceptions file
(%s) if you can't.

You can disable this message by setting the %s
environment variable.
`, result.NewCount(), exceptionsPath, AdviceEnvVar)
	}

	if result.NewCount() == 0 {
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s %d file(s) scanned, no new problems\n", green("✓"), result.FilesScanned)
	}

	os.Exit(result.NewCount())
}

// printProblems renders every new problem with enough information to locate
// and optionally except it.
func printProblems(result *scan.Result, thresholds scan.Thresholds) {
	red := color.New(color.FgRed).SprintFunc()
	for _, p := range result.NewProblems {
		fmt.Printf("%s %s (recommended max: %d)\n", red("✗"), p, thresholds.ForKind(p.Kind))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
