package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <section>...",
	Short: "Summarize papyrus sections",
	Long:  `Load each section and print table sizes and the elements a clean would touch.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().Int("jobs", 0, "max parallel files (0=auto)")
	infoCmd.Flags().Bool("cache", true, "reuse summaries cached by content hash")
	infoCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runInfo(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	useCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return fmt.Errorf("failed to get cache flag: %w", err)
	}

	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	dc, err := s.openCache(useCache)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	opts := s.pipelineOptions()
	opts.Jobs = jobs
	opts.Cache = dc
	results, err := runBatch(cmd.Context(), "info", args, opts, s.ui)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		payload := make([]resultPayload, len(results))
		for i, r := range results {
			payload[i] = toPayload(r)
		}
		if err := renderJSON(out, payload); err != nil {
			return err
		}
	} else {
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(out)
			}
			renderResultPretty(out, r, s.timings)
		}
	}
	if failed(results) > 0 {
		return exitCodeError{code: 1}
	}
	return nil
}
