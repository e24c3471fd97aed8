package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/brewkeg/brewkeg/internal/searchindex"
)

var (
	searchDescription bool
	searchFuzzy       bool
	searchLimit       int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search taps for a formula by name or description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := resolveAlias(args[0])

		results, err := app.index.Search(ctx, query, searchindex.Options{
			Description: searchDescription,
			Fuzzy:       searchFuzzy,
			Limit:       searchLimit,
		})
		if err != nil {
			printError(err)
			return err
		}

		if len(results) == 0 {
			path, err := app.taps.FindFormula(ctx, strings.ToLower(args[0]))
			if err == nil {
				printInfof("%s\t(matched by filename, not indexed)\n", path)
				return nil
			}
			printInfo("No formulae found for", args[0])
			return nil
		}

		maxName := 4
		for _, r := range results {
			if len(r.Name) > maxName {
				maxName = len(r.Name)
			}
		}
		printInfof("%-*s  %s\n", maxName, "NAME", "DESCRIPTION")
		for _, r := range results {
			printInfof("%-*s  %s\n", maxName, r.Name, r.Description)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchDescription, "description", false, "Also match against the formula description")
	searchCmd.Flags().BoolVar(&searchFuzzy, "fuzzy", false, "Allow edit-distance-1 fuzzy matching")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum number of results")
}
