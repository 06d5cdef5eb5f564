package main

import (
	"fmt"
	"io"
	"time"

	"papyrus/internal/observ"
	"papyrus/internal/pipeline"
)

var timedStages = []struct {
	stage pipeline.Stage
	verb  string
}{
	{pipeline.StageRead, "read"},
	{pipeline.StageLoad, "loaded"},
	{pipeline.StageVerify, "verified"},
	{pipeline.StageClean, "cleaned"},
	{pipeline.StageWrite, "wrote"},
}

func printStageTimings(out io.Writer, timings pipeline.Timings) {
	if out == nil {
		return
	}
	for _, ts := range timedStages {
		if !timings.Has(ts.stage) {
			continue
		}
		if _, err := fmt.Fprintf(out, "%s %.1f ms\n", ts.verb, toMillis(timings.Duration(ts.stage))); err != nil {
			panic(err)
		}
	}
}

// printSectionTimings lists per-section load phases when --timings is set.
func printSectionTimings(out io.Writer, report observ.Report) {
	if out == nil || len(report.Phases) == 0 {
		return
	}
	for _, p := range report.Phases {
		fmt.Fprintf(out, "  %-28s %9.3f ms %10d B\n", p.Name, p.DurationMS, p.Bytes)
	}
	fmt.Fprintf(out, "  %-28s %9.3f ms %10d B\n", "total", report.TotalMS, report.TotalBytes)
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
