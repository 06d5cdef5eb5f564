package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"papyrus/internal/pipeline"
	"papyrus/internal/trace"
)

var watchCmd = &cobra.Command{
	Use:   "watch <section>",
	Short: "Re-summarize a section whenever it is written",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().Duration("debounce", 250*time.Millisecond, "wait this long after the last write before reloading")
}

func runWatch(cmd *cobra.Command, args []string) error {
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return fmt.Errorf("failed to get debounce flag: %w", err)
	}
	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	dc, err := s.openCache(true)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	opts := s.pipelineOptions()
	opts.Cache = dc

	target, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// Watch the directory: tools that save by rename replace the file's inode.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	report := func() {
		results, err := pipeline.Run(ctx, []string{target}, opts)
		if err != nil {
			return
		}
		fmt.Fprintf(out, "--- %s\n", time.Now().Format(time.TimeOnly))
		renderResultPretty(out, results[0], s.timings)
	}
	report()
	return watchLoop(ctx, watcher, target, debounce, report, cmd.ErrOrStderr())
}

// watchLoop calls onChange once per burst of writes to target.
func watchLoop(ctx context.Context, w *fsnotify.Watcher, target string, debounce time.Duration, onChange func(), errOut io.Writer) error {
	tracer := trace.FromContext(ctx)
	parent := trace.ParentFrom(ctx)

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				trace.Point(tracer, trace.ScopeCommand, "change", event.Op.String(), parent)
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(errOut, "watch: %v\n", err)
		case <-timer.C:
			onChange()
		}
	}
}
