package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/brewkeg/brewkeg/internal/formula"
	"github.com/brewkeg/brewkeg/internal/searchindex"
)

var (
	installForce           bool
	installBuildFromSource bool
	installOnlyDeps        bool
	installSkipDeps        bool
	installVersion         string
)

var installCmd = &cobra.Command{
	Use:   "install <pkg...>",
	Short: "Resolve and install one or more formulae",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		for _, name := range args {
			f, err := app.resolveUserFormula(ctx, name)
			if err != nil {
				printError(err)
				return err
			}
			if installVersion != "" && f.Version != installVersion {
				printInfof("Warning: %s has version %s, requested %s; installing %s\n", f.Name, f.Version, installVersion, f.Version)
			}

			if !installSkipDeps {
				if err := installDependencies(ctx, f); err != nil {
					printError(err)
					return err
				}
			}

			if installOnlyDeps {
				continue
			}
			if err := installOne(ctx, f); err != nil {
				printError(err)
				return err
			}
		}
		return nil
	},
}

func init() {
	installCmd.Flags().BoolVar(&installForce, "force", false, "Reinstall even if already installed")
	installCmd.Flags().BoolVar(&installBuildFromSource, "build-from-source", false, "Skip the binary package and build from source")
	installCmd.Flags().BoolVar(&installOnlyDeps, "only-deps", false, "Install only the dependencies, not the named formula")
	installCmd.Flags().BoolVar(&installSkipDeps, "skip-deps", false, "Skip dependency resolution entirely")
	installCmd.Flags().StringVar(&installVersion, "version", "", "Requested version (informational; the tap's current formula version is what actually installs)")
}

// installDependencies resolves f's dependency graph in topological order
// and installs each entry not already present in the registry.
func installDependencies(ctx context.Context, f *formula.Formula) error {
	deps, err := app.resolver.Resolve(ctx, f)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		installed, err := app.registry.IsInstalled(ctx, dep.Name)
		if err != nil {
			return err
		}
		if installed && !installForce {
			continue
		}
		if err := installOne(ctx, dep); err != nil {
			return err
		}
	}
	return nil
}

// installOne runs the Installer state machine for f and records the
// result in the package registry.
func installOne(ctx context.Context, f *formula.Formula) error {
	app.installer.Progress = newProgressFunc(f.Name)
	result, err := app.installer.Install(ctx, f, installBuildFromSource, installForce)
	if err != nil {
		return err
	}
	if err := app.registry.MarkInstalled(ctx, f, result.InstallPath); err != nil {
		return err
	}
	record := searchindex.Record{
		Name:        f.Name,
		Description: f.Description,
		Version:     f.Version,
		Tap:         app.tapNameFor(ctx, f.Name),
	}
	if err := app.index.IndexFormula(record); err != nil {
		printInfof("Warning: search index update failed: %v\n", err)
	}

	origin := "binary package"
	if result.FromSource {
		origin = "source"
	}
	printInfof("Installed %s %s from %s\n", result.Name, result.Version, origin)
	return nil
}
