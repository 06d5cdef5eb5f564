package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"papyrus/internal/diag"
	"papyrus/internal/pipeline"
)

var checkCmd = &cobra.Command{
	Use:   "check <section>",
	Short: "Report structural findings for a papyrus section",
	Long: `Load a section and print every finding made while decoding it: unresolved
definitions, inheritance cycles, member-count mismatches, truncation and
string-table corrections. Exits with status 1 when any finding is an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("format", "short", "output format (short|json)")
	checkCmd.Flags().Bool("with-notes", false, "include notes attached to findings")
	checkCmd.Flags().Bool("warnings-as-errors", false, "exit with status 1 on warnings too")
	checkCmd.Flags().String("min-severity", "info", "hide findings below this severity (info|warning|error)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	warningsAsErrors, err := cmd.Flags().GetBool("warnings-as-errors")
	if err != nil {
		return fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}
	minStr, err := cmd.Flags().GetString("min-severity")
	if err != nil {
		return fmt.Errorf("failed to get min-severity flag: %w", err)
	}
	minSev, err := diag.ParseSeverity(strings.ToLower(minStr))
	if err != nil {
		return err
	}

	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	opts := s.pipelineOptions()
	opts.KeepFindings = true
	results, err := pipeline.Run(cmd.Context(), args, opts)
	if err != nil {
		return err
	}
	res := results[0]
	out := cmd.OutOrStdout()

	var items []diag.Diagnostic
	if res.Bag != nil {
		res.Bag.Sort()
		items = diag.Filter(res.Bag.Items(), minSev)
	}

	switch strings.ToLower(format) {
	case "short":
		if text := diag.FormatShort(items, withNotes); text != "" {
			fmt.Fprintln(out, text)
		}
		if res.Err != nil {
			fmt.Fprintf(out, "%s %s\n", errorColor.Sprint("error"), res.Err)
		}
	case "json":
		if err := renderJSON(out, checkPayload(res, items)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q (must be short or json)", format)
	}

	if s.timings {
		printStageTimings(cmd.ErrOrStderr(), res.Timings)
		printSectionTimings(cmd.ErrOrStderr(), res.Timing)
	}

	if res.Err != nil || (res.Bag != nil && res.Bag.HasErrors()) {
		return exitCodeError{code: 1}
	}
	if warningsAsErrors && res.Bag != nil && res.Bag.HasWarnings() {
		return exitCodeError{code: 1}
	}
	return nil
}

type findingPayload struct {
	Severity diag.Severity `json:"severity"`
	Code     string        `json:"code"`
	Section  string        `json:"section,omitempty"`
	Offset   int           `json:"offset"`
	Message  string        `json:"message"`
	Notes    []string      `json:"notes,omitempty"`
}

func checkPayload(res pipeline.Result, items []diag.Diagnostic) map[string]any {
	findings := make([]findingPayload, 0, len(items))
	for _, d := range items {
		f := findingPayload{
			Severity: d.Severity,
			Code:     d.Code.ID(),
			Section:  d.Section,
			Offset:   d.Offset,
			Message:  d.Message,
		}
		for _, n := range d.Notes {
			f.Notes = append(f.Notes, n.Msg)
		}
		findings = append(findings, f)
	}
	payload := map[string]any{
		"file":     res.File,
		"findings": findings,
	}
	if res.Err != nil {
		payload["error"] = res.Err.Error()
	}
	return payload
}
