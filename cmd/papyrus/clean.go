package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"papyrus/internal/pipeline"
)

var cleanCmd = &cobra.Command{
	Use:   "clean <section> -o <out>",
	Short: "Remove dead elements and write the cleaned section",
	Long: `Remove unattached script instances and undefined elements, zero the
instructions of terminated threads, and write the result. Truncated sections
and sections read with the string-table correction are refused.`,
	Args: cobra.ExactArgs(1),
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringP("output", "o", "", "where to write the cleaned section")
	cleanCmd.Flags().Bool("unattached", true, "remove script instances not attached to a reference")
	cleanCmd.Flags().Bool("undefined", true, "remove elements whose definition is missing")
	cleanCmd.Flags().Bool("terminated", true, "zero threads whose top frame is all NOP")
	cleanCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	_ = cleanCmd.MarkFlagRequired("output")
}

func runClean(cmd *cobra.Command, args []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	if same, err := samePath(args[0], output); err != nil {
		return err
	} else if same {
		return fmt.Errorf("refusing to overwrite the input %s", args[0])
	}

	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	policy, err := cleanPolicy(cmd, s)
	if err != nil {
		return err
	}

	opts := s.pipelineOptions()
	opts.Clean = &policy
	opts.Output = func(string) string { return output }
	results, err := pipeline.Run(cmd.Context(), args, opts)
	if err != nil {
		return err
	}
	res := results[0]

	out := cmd.OutOrStdout()
	if format == "json" {
		p := toPayload(res)
		if res.Err == nil {
			p.Cleaned = &res.Cleaned
		}
		if err := renderJSON(out, p); err != nil {
			return err
		}
	} else if res.Err != nil {
		fmt.Fprintf(out, "%s  %s\n", fileColor.Sprint(res.File), errorColor.Sprint(res.Err.Error()))
	} else {
		fmt.Fprintf(out, "%s -> %s\n", fileColor.Sprint(res.File), output)
		writeRows(out, []row{
			{label: "unattached removed", value: fmt.Sprint(res.Cleaned.Unattached)},
			{label: "undefined removed", value: fmt.Sprint(res.Cleaned.Undefined)},
			{label: "threads zeroed", value: fmt.Sprint(res.Cleaned.Zeroed)},
			{label: "bytes saved", value: fmt.Sprint(res.Cleaned.Saved), style: okColor},
		})
	}
	if s.timings {
		printStageTimings(cmd.ErrOrStderr(), res.Timings)
	}
	if res.Err != nil {
		return exitCodeError{code: 1}
	}
	return nil
}

// cleanPolicy starts from [clean] in papyrus.toml; flags given explicitly win.
func cleanPolicy(cmd *cobra.Command, s *settings) (pipeline.CleanPolicy, error) {
	policy := pipeline.CleanPolicy{
		Unattached: s.cfg.Clean.Unattached,
		Undefined:  s.cfg.Clean.Undefined,
		Terminated: s.cfg.Clean.Terminated,
	}
	for name, dst := range map[string]*bool{
		"unattached": &policy.Unattached,
		"undefined":  &policy.Undefined,
		"terminated": &policy.Terminated,
	} {
		if !cmd.Flags().Changed(name) {
			continue
		}
		v, err := cmd.Flags().GetBool(name)
		if err != nil {
			return policy, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		*dst = v
	}
	return policy, nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}
