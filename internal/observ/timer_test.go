package observ

import (
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	a := tm.Begin("strings")
	tm.EndBytes(a, 120, "")
	b := tm.Begin("scripts")
	tm.EndBytes(b, 80, "12 scripts")
	tm.End(99, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 || r.TotalBytes != 200 {
		t.Fatalf("report = %+v", r)
	}
	if r.Phases[1].Note != "12 scripts" {
		t.Fatalf("note = %q", r.Phases[1].Note)
	}
	if s := tm.Summary(); !strings.Contains(s, "scripts") || !strings.Contains(s, "total") {
		t.Fatalf("summary missing rows:\n%s", s)
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	idx := tm.Begin("x")
	tm.EndBytes(idx, 1, "")
	if len(tm.Report().Phases) != 0 {
		t.Fatalf("nil timer produced phases")
	}
}
