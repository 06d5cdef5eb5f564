package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"papyrus/internal/papyrus"
	"papyrus/internal/pipeline"
)

var (
	fileColor  = color.New(color.Bold)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed, color.Bold)
	okColor    = color.New(color.FgGreen)
)

type row struct {
	label string
	value string
	style *color.Color
}

func writeRows(out io.Writer, rows []row) {
	width := 0
	for _, r := range rows {
		width = max(width, runewidth.StringWidth(r.label))
	}
	for _, r := range rows {
		value := r.value
		if r.style != nil {
			value = r.style.Sprint(value)
		}
		fmt.Fprintf(out, "  %s  %s\n", runewidth.FillRight(r.label, width), value)
	}
}

// problem colors non-zero counts of things a clean would remove.
func problem(n int, style *color.Color) row {
	r := row{value: strconv.Itoa(n)}
	if n > 0 {
		r.style = style
	}
	return r
}

func summaryRows(s papyrus.Summary) []row {
	rows := []row{
		{label: "header", value: strconv.Itoa(int(s.Header))},
		{label: "strings", value: fmt.Sprintf("%d (%s)", s.Strings, s.StringMode)},
		{label: "scripts", value: strconv.Itoa(s.Scripts)},
	}
	if s.Structs > 0 || s.StructInstances > 0 {
		rows = append(rows, row{label: "structs", value: strconv.Itoa(s.Structs)})
	}
	rows = append(rows,
		row{label: "script instances", value: strconv.Itoa(s.ScriptInstances)},
		row{label: "references", value: strconv.Itoa(s.References)},
	)
	if s.Structs > 0 || s.StructInstances > 0 {
		rows = append(rows, row{label: "struct instances", value: strconv.Itoa(s.StructInstances)})
	}
	rows = append(rows,
		row{label: "arrays", value: strconv.Itoa(s.Arrays)},
		row{label: "active scripts", value: strconv.Itoa(s.ActiveScripts)},
		row{label: "function messages", value: strconv.Itoa(s.Messages)},
		row{label: "suspended stacks", value: strconv.Itoa(s.Suspended)},
		row{label: "unbinds", value: strconv.Itoa(s.Unbinds)},
	)
	if s.SaveVersion != 0 {
		rows = append(rows, row{label: "save version", value: fmt.Sprintf("%#04x", s.SaveVersion)})
	}

	undef := problem(s.Undefined.Total(), warnColor)
	undef.label = "undefined elements"
	unatt := problem(s.Unattached, warnColor)
	unatt.label = "unattached instances"
	term := problem(s.Terminated, warnColor)
	term.label = "terminated threads"
	rows = append(rows, undef, unatt, term,
		row{label: "suspended threads", value: strconv.Itoa(s.Waiting)})

	if s.Truncated {
		value := "yes"
		if s.TruncationCause != "" {
			value += ": " + s.TruncationCause
		}
		rows = append(rows, row{label: "truncated", value: value, style: errorColor})
	}
	if s.MissingStrings > 0 {
		rows = append(rows, row{label: "missing strings", value: strconv.Itoa(s.MissingStrings), style: errorColor})
	}
	if s.StringTableFixed {
		rows = append(rows, row{label: "string table", value: "count overflow corrected (read-only)", style: errorColor})
	}
	if s.RemainingBytes > 0 {
		rows = append(rows, row{label: "trailing bytes", value: strconv.Itoa(s.RemainingBytes)})
	}
	return rows
}

func renderResultPretty(out io.Writer, res pipeline.Result, showTimings bool) {
	if res.Err != nil {
		fmt.Fprintf(out, "%s  %s\n", fileColor.Sprint(res.File), errorColor.Sprint(res.Err.Error()))
		return
	}
	s := res.Summary
	note := fmt.Sprintf("%s, %d bytes", s.Game, s.Bytes)
	if res.Cached {
		note += ", cached"
	}
	fmt.Fprintf(out, "%s  (%s)\n", fileColor.Sprint(res.File), note)
	writeRows(out, summaryRows(s))
	if showTimings {
		printStageTimings(out, res.Timings)
		printSectionTimings(out, res.Timing)
	}
}

// resultPayload is the JSON shape of one pipeline result.
type resultPayload struct {
	File     string                `json:"file"`
	Error    string                `json:"error,omitempty"`
	Cached   bool                  `json:"cached,omitempty"`
	Summary  *papyrus.Summary      `json:"summary,omitempty"`
	Findings map[string]int        `json:"findings,omitempty"`
	Mismatch *int                  `json:"mismatch,omitempty"`
	Cleaned  *pipeline.CleanReport `json:"cleaned,omitempty"`
}

func toPayload(res pipeline.Result) resultPayload {
	p := resultPayload{File: res.File, Cached: res.Cached, Findings: res.Findings}
	if res.Err != nil {
		p.Error = res.Err.Error()
	}
	if res.Summary.Game != "" {
		s := res.Summary
		p.Summary = &s
	}
	if res.Mismatch >= 0 {
		m := res.Mismatch
		p.Mismatch = &m
	}
	return p
}

func renderJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// failed counts results with a per-file error.
func failed(results []pipeline.Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
