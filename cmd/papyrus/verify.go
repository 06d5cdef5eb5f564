package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <section>...",
	Short: "Check that sections re-encode byte-for-byte",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().Int("jobs", 0, "max parallel files (0=auto)")
	verifyCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	opts := s.pipelineOptions()
	opts.Jobs = jobs
	opts.Verify = true
	results, err := runBatch(cmd.Context(), "verify", args, opts, s.ui)
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
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(out, "%s  %s\n", errorColor.Sprint("FAIL"), r.File)
				fmt.Fprintf(out, "      %s\n", r.Err)
				continue
			}
			fmt.Fprintf(out, "%s  %s (%d bytes)\n", okColor.Sprint("ok  "), r.File, r.Summary.Bytes)
			if s.timings {
				printStageTimings(out, r.Timings)
			}
		}
	}
	if failed(results) > 0 {
		return exitCodeError{code: 1}
	}
	return nil
}
