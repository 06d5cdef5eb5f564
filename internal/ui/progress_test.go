package ui

import (
	"errors"
	"strings"
	"testing"

	"papyrus/internal/pipeline"
)

func TestApplyEventTracksStatus(t *testing.T) {
	events := make(chan pipeline.Event)
	m := NewProgressModel("info", []string{"a.bin", "b.bin"}, events).(*progressModel)

	m.applyEvent(pipeline.Event{File: "a.bin", Stage: pipeline.StageLoad, Status: pipeline.StatusWorking})
	m.applyEvent(pipeline.Event{File: "b.bin", Stage: pipeline.StageRead, Status: pipeline.StatusError, Err: errors.New("boom")})
	m.applyEvent(pipeline.Event{File: "unknown.bin", Status: pipeline.StatusDone})

	if m.items[0].status != "loading" || m.items[1].status != "error" {
		t.Fatalf("statuses = %q, %q", m.items[0].status, m.items[1].status)
	}
	view := m.View()
	if !strings.Contains(view, "a.bin") || !strings.Contains(view, "loading") {
		t.Fatalf("view missing file row:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"a-long-file-name.bin", 10, "a-long-..."},
		{"abcdef", 2, "ab"},
		{"存档文件名称.ess", 7, "存档..."},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
