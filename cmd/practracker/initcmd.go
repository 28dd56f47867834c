package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/practracker/practracker/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [topdir]",
	Short: "Write a default .practracker.yaml for a source tree",
	Long: `Create a default configuration file at the scan root. The file controls
which extensions are scanned, which paths are excluded, where the
exceptions ledger lives, and optional threshold overrides.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		runInit(topdirArg(args), force)
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(topdir string, force bool) {
	path := filepath.Join(topdir, config.ConfigFileName)

	if _, err := os.Stat(path); err == nil && !force {
		fatal(fmt.Errorf("%s already exists (use --force to overwrite)", path))
	}

	if err := config.SaveDefaultConfig(path); err != nil {
		fatal(err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Wrote %s\n", green("✓"), path)
}
