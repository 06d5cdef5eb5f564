package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"papyrus/internal/pipeline"
	"papyrus/internal/ui"
)

type batchOutcome struct {
	results []pipeline.Result
	err     error
}

// runBatch runs the pipeline, behind the progress view when mode asks for it.
func runBatch(ctx context.Context, title string, files []string, opts pipeline.Options, mode uiMode) ([]pipeline.Result, error) {
	if !shouldUseTUI(mode, len(files)) {
		return pipeline.Run(ctx, files, opts)
	}

	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan batchOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = pipeline.ChannelSink{Ch: events}
		res, err := pipeline.Run(ctx, files, optsCopy)
		outcomeCh <- batchOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
