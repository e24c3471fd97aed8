package main

import (
	"github.com/spf13/cobra"
)

var (
	infoJSON        bool
	infoAllVersions bool
)

var infoCmd = &cobra.Command{
	Use:   "info <pkg>",
	Short: "Show a formula's metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, err := app.resolveUserFormula(ctx, args[0])
		if err != nil {
			printError(err)
			return err
		}

		if infoJSON {
			printJSON(f)
			return nil
		}

		installed, _, _ := app.registry.Get(ctx, f.Name)
		printInfof("%s: %s\n", f.Name, f.Version)
		if f.Description != "" {
			printInfo(f.Description)
		}
		if f.Homepage != "" {
			printInfo(f.Homepage)
		}
		if f.License != "" {
			printInfof("License: %s\n", f.License)
		}
		if installed != nil {
			printInfof("Installed: %s at %s\n", installed.Version, installed.InstallPath)
		} else {
			printInfo("Not installed")
		}
		if len(f.Dependencies) > 0 {
			printInfo("Dependencies:")
			for _, d := range f.Dependencies {
				printInfof("  %s\n", d.Name)
			}
		}
		if f.Caveats != "" {
			printInfof("Caveats:\n%s\n", f.Caveats)
		}
		if infoAllVersions {
			printInfo("Note: --all-versions requested, but only the tap's current formula version is tracked")
		}
		return nil
	},
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Print the parsed Formula as JSON")
	infoCmd.Flags().BoolVar(&infoAllVersions, "all-versions", false, "Show every known version (the tap only tracks the current one)")
}
