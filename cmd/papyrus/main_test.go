package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"papyrus/internal/config"
	"papyrus/internal/papyrus"
	"papyrus/internal/pipeline"
)

func TestReadUIMode(t *testing.T) {
	tests := []struct {
		in      string
		want    uiMode
		wantErr bool
	}{
		{"", uiModeAuto, false},
		{"AUTO", uiModeAuto, false},
		{" on ", uiModeOn, false},
		{"off", uiModeOff, false},
		{"sometimes", "", true},
	}
	for _, tt := range tests {
		got, err := readUIMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("readUIMode(%q) = %q, %v", tt.in, got, err)
		}
	}
	if shouldUseTUI(uiModeOff, 10) || !shouldUseTUI(uiModeOn, 1) {
		t.Fatal("explicit modes ignored")
	}
}

func TestReadColorMode(t *testing.T) {
	if on, err := readColorMode("on"); err != nil || !on {
		t.Fatal("on")
	}
	if on, err := readColorMode("off"); err != nil || on {
		t.Fatal("off")
	}
	if _, err := readColorMode("rainbow"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestCleanPolicyFlagsOverrideConfig(t *testing.T) {
	cmd := &cobra.Command{Use: "clean"}
	cmd.Flags().Bool("unattached", true, "")
	cmd.Flags().Bool("undefined", true, "")
	cmd.Flags().Bool("terminated", true, "")
	if err := cmd.Flags().Parse([]string{"--undefined=false"}); err != nil {
		t.Fatal(err)
	}

	s := &settings{cfg: config.Default()}
	s.cfg.Clean.Terminated = false
	policy, err := cleanPolicy(cmd, s)
	if err != nil {
		t.Fatal(err)
	}
	want := pipeline.CleanPolicy{Unattached: true, Undefined: false, Terminated: false}
	if policy != want {
		t.Fatalf("policy = %+v, want %+v", policy, want)
	}
}

func TestRenderResultPretty(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	res := pipeline.Result{
		File:   "save.bin",
		Cached: true,
		Summary: papyrus.Summary{
			Game:            "skyrim-se",
			Bytes:           52,
			Header:          3,
			StringMode:      "16",
			ScriptInstances: 4,
			Unattached:      2,
			Truncated:       true,
			TruncationCause: "arrays: unexpected end of data",
		},
		Mismatch: -1,
	}
	var buf bytes.Buffer
	renderResultPretty(&buf, res, false)
	text := buf.String()
	for _, want := range []string{
		"save.bin  (skyrim-se, 52 bytes, cached)",
		"script instances      4",
		"unattached instances  2",
		"truncated             yes: arrays",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "struct instances") {
		t.Error("struct rows shown for a game without structs")
	}
}

func TestToPayload(t *testing.T) {
	p := toPayload(pipeline.Result{File: "x", Mismatch: 7})
	if p.Summary != nil || p.Mismatch == nil || *p.Mismatch != 7 {
		t.Fatalf("payload = %+v", p)
	}
	if failed([]pipeline.Result{{}, {Err: os.ErrNotExist}}) != 1 {
		t.Fatal("failed count wrong")
	}
}

func TestSamePath(t *testing.T) {
	dir := t.TempDir()
	same, err := samePath(filepath.Join(dir, "a", "..", "x"), filepath.Join(dir, "x"))
	if err != nil || !same {
		t.Fatalf("samePath = %v, %v", same, err)
	}
}

func TestWatchLoopDebounces(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "save.bin")
	if err := os.WriteFile(target, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, w, target, 50*time.Millisecond, func() { calls.Add(1) }, &bytes.Buffer{})
	}()

	// Writes to other files are ignored.
	_ = os.WriteFile(filepath.Join(dir, "other.bin"), []byte("x"), 0o644)
	for i := range 3 {
		if err := os.WriteFile(target, []byte{byte(i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	// Give a second (wrong) callback time to fire.
	time.Sleep(150 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watchLoop: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("onChange called %d times, want 1", got)
	}
}
