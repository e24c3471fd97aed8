package main

import (
	"github.com/spf13/cobra"

	"github.com/brewkeg/brewkeg/internal/brewerr"
)

var (
	uninstallForce       bool
	uninstallAllVersions bool
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <pkg...>",
	Short: "Remove installed formulae and unlink their binaries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		for _, name := range args {
			entry, ok, err := app.registry.Get(ctx, name)
			if err != nil {
				printError(err)
				return err
			}
			if !ok {
				printError(brewerr.NewPackageNotFound(name))
				continue
			}

			if !uninstallForce {
				dependents, err := app.registry.FindDependents(ctx, name)
				if err != nil {
					printError(err)
					return err
				}
				if len(dependents) > 0 {
					printInfof("Skipping %s: still required by %d installed package(s) (use --force to override)\n", name, len(dependents))
					continue
				}
			}

			if err := app.installer.Uninstall(name, entry.InstallPath); err != nil {
				printError(err)
				return err
			}
			if err := app.registry.MarkUninstalled(ctx, name); err != nil {
				printError(err)
				return err
			}
			printInfof("Uninstalled %s %s\n", entry.Name, entry.Version)

			if uninstallAllVersions {
				printInfof("Note: --all-versions requested, but only the registry-tracked install of %s is removed\n", name)
			}
		}
		return nil
	},
}

func init() {
	uninstallCmd.Flags().BoolVar(&uninstallForce, "force", false, "Remove even if other installed packages depend on it")
	uninstallCmd.Flags().BoolVar(&uninstallAllVersions, "all-versions", false, "Remove every installed version (the registry tracks one version per name)")
}
