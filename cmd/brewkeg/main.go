// Command brewkeg is a Homebrew-tap-compatible package manager: it
// resolves, downloads, builds, and links formulae from registered taps
// into a local prefix.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brewkeg/brewkeg/internal/log"
)

var (
	quietFlag   bool
	verboseFlag bool
	debugFlag   bool
)

var globalCtx context.Context
var globalCancel context.CancelFunc

var rootCmd = &cobra.Command{
	Use:   "brewkeg",
	Short: "A Homebrew-tap-compatible package manager",
	Long: `brewkeg resolves, builds, and installs formulae from Homebrew-style
taps into a local prefix, reusing the Homebrew formula DSL and bottle
layout without depending on the Homebrew toolchain itself.`,
	// Command bodies already report their own errors via printError;
	// cobra's default usage/error dump on a returned error would repeat it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Show errors only")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show verbose output (INFO level)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Show debug output")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		initLogger()
		return initApp()
	}

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(tapCmd)
}

func main() {
	globalCtx, globalCancel = context.WithCancel(context.Background())
	defer globalCancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived %s, canceling operation...\n", sig)
		globalCancel()
		<-sigChan
		fmt.Fprintln(os.Stderr, "Forced exit")
		exitWithCode(ExitGeneral)
	}()

	rootCmd.SetContext(globalCtx)
	if err := rootCmd.Execute(); err != nil {
		if globalCtx.Err() == context.Canceled {
			exitWithCode(ExitGeneral)
		}
		fmt.Fprintln(os.Stderr, err)
		exitWithCode(exitCodeFor(err))
	}
	closeApp()
}

func initLogger() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: determineLogLevel()})
	log.SetDefault(log.New(handler))
}

// determineLogLevel maps the --debug/--verbose/--quiet
// flags to a slog level, most verbose wins when more than one is set.
func determineLogLevel() slog.Level {
	switch {
	case debugFlag:
		return slog.LevelDebug
	case verboseFlag:
		return slog.LevelInfo
	case quietFlag:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
