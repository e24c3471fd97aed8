package main

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	listVersions  bool
	listInstalled bool
	listSize      bool
	listPrefix    string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Enumerate installed formulae",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		entries, err := app.registry.List(ctx, listPrefix)
		if err != nil {
			printError(err)
			return err
		}
		if len(entries) == 0 {
			printInfo("No formulae installed.")
			return nil
		}

		for _, e := range entries {
			line := e.Name
			if listVersions {
				line += " " + e.Version
			}
			if listSize {
				line += " " + humanSize(dirSize(e.InstallPath))
			}
			printInfo(line)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listVersions, "versions", false, "Show each package's installed version")
	listCmd.Flags().BoolVar(&listInstalled, "installed", false, "Limit to installed packages (the registry never tracks anything else)")
	listCmd.Flags().BoolVar(&listSize, "size", false, "Show each package's on-disk size")
	listCmd.Flags().StringVar(&listPrefix, "prefix", "", "Only list names starting with this prefix")
}

// dirSize sums the apparent size of every regular file under root.
func dirSize(root string) int64 {
	var total int64
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// humanSize renders bytes using binary (KiB/MiB/...) units.
func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%dB", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
