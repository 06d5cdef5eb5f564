package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"papyrus/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "papyrus",
	Short: "Inspect and clean the Papyrus section of game saves",
	Long: `papyrus decodes the script VM section of Skyrim and Fallout 4 saves,
reports dead or broken objects, and writes cleaned sections back byte-exactly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		stopProfiling, err := setupProfiling(cmd)
		if err != nil {
			return err
		}
		profileCleanup = stopProfiling
		cleanup, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		traceCleanup = cleanup
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		runCleanup()
	},
}

var profileCleanup func()

// runCleanup stops the tracer and profilers. PersistentPostRun is not called
// when RunE fails, so main calls it too.
func runCleanup() {
	runTraceCleanup()
	if profileCleanup != nil {
		profileCleanup()
		profileCleanup = nil
	}
}

// exitCodeError ends the process with code without printing anything more.
type exitCodeError struct{ code int }

func (e exitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// main registers subcommands and persistent flags, then executes the root command.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to papyrus.toml (default: search upward from the working directory)")
	flags.String("game", "", "engine variant (skyrim-le|skyrim-se|fallout4)")
	flags.Bool("str32", false, "string table uses 32-bit indices")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.String("ui", "auto", "progress UI for batch commands (auto|on|off)")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-findings", 512, "maximum number of findings kept per file")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "", "trace storage mode (stream|ring); ring prints only documents that fail")
	flags.String("trace-format", "", "trace format (auto|text|ndjson)")
	flags.Int("trace-ring-size", 4096, "events kept by --trace-mode ring")
	flags.Duration("trace-heartbeat", 0, "emit heartbeat events at this interval (0 disables)")
	flags.String("cpu-profile", "", "write a CPU profile to this file")
	flags.String("mem-profile", "", "write a heap profile to this file on exit")
	flags.String("runtime-trace", "", "write a Go runtime trace to this file")

	if err := rootCmd.Execute(); err != nil {
		runCleanup()
		var exit exitCodeError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
