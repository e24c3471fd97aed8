package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/brewkeg/brewkeg/internal/formula"
)

var (
	updateFormulae bool
	updateUpgrade  bool
	updateDryRun   bool
)

var updateCmd = &cobra.Command{
	Use:   "update [pkg...]",
	Short: "Refresh taps and optionally upgrade outdated packages",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := refreshTaps(ctx); err != nil {
			printError(err)
			return err
		}
		printInfo("Taps refreshed.")

		if updateFormulae || !updateUpgrade {
			return nil
		}
		return runUpgrade(ctx, args)
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateFormulae, "formulae", false, "Only refresh taps/formula cache, do not upgrade")
	updateCmd.Flags().BoolVar(&updateUpgrade, "upgrade", false, "Reinstall every outdated package (or just those named)")
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "With --upgrade, only report what would change")
}

// refreshTaps fast-forward pulls every tap, invalidates the formula
// cache, and rebuilds the search index from the fresh checkouts.
func refreshTaps(ctx context.Context) error {
	if err := app.cache.UpdateFormulae(func() error {
		return app.taps.UpdateAll(ctx)
	}); err != nil {
		return err
	}
	sources, err := app.tapSources(ctx)
	if err != nil {
		return err
	}
	return app.index.Rebuild(ctx, sources)
}

// runUpgrade finds every installed package (filtered to names, if given)
// whose tap version outranks what's registered, and reinstalls it unless
// updateDryRun is set.
func runUpgrade(ctx context.Context, names []string) error {
	latest := func(name string) (*formula.Formula, error) { return app.lookupFormula(ctx, name) }
	updates, err := app.registry.CheckUpdates(ctx, names, latest)
	if err != nil {
		printError(err)
		return err
	}
	if len(updates) == 0 {
		printInfo("Everything up to date.")
		return nil
	}

	for _, u := range updates {
		if updateDryRun {
			printInfof("%s: %s -> %s\n", u.Name, u.Installed, u.Available)
			continue
		}
		f, err := app.lookupFormula(ctx, u.Name)
		if err != nil {
			printError(err)
			continue
		}
		app.installer.Progress = newProgressFunc(f.Name)
		result, err := app.installer.Install(ctx, f, false, true)
		if err != nil {
			printError(err)
			continue
		}
		if err := app.registry.MarkInstalled(ctx, f, result.InstallPath); err != nil {
			printError(err)
			continue
		}
		printInfof("Upgraded %s %s -> %s\n", u.Name, u.Installed, u.Available)
	}
	return nil
}
