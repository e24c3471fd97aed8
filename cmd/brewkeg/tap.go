package main

import (
	"github.com/spf13/cobra"
)

var tapAddURL string

var tapCmd = &cobra.Command{
	Use:   "tap",
	Short: "Manage registered formula taps",
}

var tapAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Clone and register a tap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		t, err := app.taps.Add(ctx, args[0], tapAddURL)
		if err != nil {
			printError(err)
			return err
		}
		printInfof("Tapped %s (%s)\n", t.Name, t.URL)
		return nil
	},
}

var tapRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Untap and delete its local checkout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.taps.Remove(cmd.Context(), args[0]); err != nil {
			printError(err)
			return err
		}
		printInfof("Untapped %s\n", args[0])
		return nil
	},
}

var tapListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered taps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		taps, err := app.taps.List(cmd.Context())
		if err != nil {
			printError(err)
			return err
		}
		if len(taps) == 0 {
			printInfo("No taps registered.")
			return nil
		}
		for _, t := range taps {
			printInfof("%s\t%s\n", t.Name, t.URL)
		}
		return nil
	},
}

var tapUpdateCmd = &cobra.Command{
	Use:   "update [name]",
	Short: "Fast-forward pull one tap, or every tap if none is named",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(args) == 0 {
			if err := app.taps.UpdateAll(ctx); err != nil {
				printError(err)
				return err
			}
			printInfo("All taps updated.")
			return nil
		}
		if err := app.taps.Update(ctx, args[0]); err != nil {
			printError(err)
			return err
		}
		printInfof("Updated %s\n", args[0])
		return nil
	},
}

func init() {
	tapAddCmd.Flags().StringVar(&tapAddURL, "url", "", "Override the derived clone URL")
	tapCmd.AddCommand(tapAddCmd, tapRemoveCmd, tapListCmd, tapUpdateCmd)
}
