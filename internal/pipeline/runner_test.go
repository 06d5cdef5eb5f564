package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"papyrus/internal/binio"
	"papyrus/internal/cache"
	"papyrus/internal/game"
	"papyrus/internal/papyrus"
)

// section builds a skyrim-se section (8-byte ids). With orphan set it holds
// one script instance of a script that is never defined.
func section(orphan bool) []byte {
	w := binio.NewWriter(128)
	w.PutU16(3)
	if orphan {
		w.PutU16(1)
		w.PutU16(7)
		w.PutBytes([]byte("Missing"))
	} else {
		w.PutU16(0)
	}
	w.PutU32(0) // scripts
	if orphan {
		w.PutU32(1)
		w.PutU64(0x10)
		w.PutU16(0)
		w.PutU16(0)
		w.PutU16(0)
		w.PutU32(0x14)
		w.PutU8(0)
	} else {
		w.PutU32(0)
	}
	w.PutU32(0)      // references
	w.PutU32(0)      // arrays
	w.PutU32(0x1234) // runtime id
	w.PutU32(0)      // active scripts
	if orphan {
		w.PutU64(0x10)
		w.PutU8(0)
		w.PutU16(0)
		w.PutU32(0)
		w.PutU32(0)
	}
	for range 6 {
		w.PutU32(0)
	}
	return w.Bytes()
}

func writeFiles(t *testing.T, blobs map[string][]byte) map[string]string {
	t.Helper()
	dir := t.TempDir()
	paths := make(map[string]string, len(blobs))
	for name, data := range blobs {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
		paths[name] = p
	}
	return paths
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) count(file string, status Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.File == file && ev.Status == status {
			n++
		}
	}
	return n
}

func TestRunSummaries(t *testing.T) {
	paths := writeFiles(t, map[string][]byte{
		"empty.bin":  section(false),
		"orphan.bin": section(true),
	})
	missing := filepath.Join(t.TempDir(), "missing.bin")
	files := []string{paths["empty.bin"], missing, paths["orphan.bin"]}

	rec := &recorder{}
	results, err := Run(context.Background(), files, Options{Variant: game.SkyrimSE, Jobs: 2, Progress: rec})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	for i, res := range results {
		if res.File != files[i] {
			t.Fatalf("result %d is for %s, want %s", i, res.File, files[i])
		}
	}
	if results[0].Err != nil || results[0].Summary.RuntimeID != 0x1234 {
		t.Fatalf("empty: %+v", results[0])
	}
	if !errors.Is(results[1].Err, os.ErrNotExist) {
		t.Fatalf("missing: err = %v", results[1].Err)
	}
	orphan := results[2]
	if orphan.Err != nil || orphan.Summary.ScriptInstances != 1 || orphan.Summary.Undefined.ScriptInstances != 1 {
		t.Fatalf("orphan: %+v", orphan)
	}
	if orphan.Findings == nil || !orphan.Timings.Has(StageLoad) {
		t.Fatalf("orphan findings/timings missing: %+v", orphan)
	}

	for _, f := range files {
		if rec.count(f, StatusQueued) != 1 {
			t.Fatalf("%s: no queued event", f)
		}
	}
	if rec.count(files[0], StatusDone) != 1 || rec.count(files[1], StatusError) != 1 {
		t.Fatal("terminal events wrong")
	}
}

func TestRunUsesCache(t *testing.T) {
	paths := writeFiles(t, map[string][]byte{"orphan.bin": section(true)})
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Variant: game.SkyrimSE, Cache: c}
	files := []string{paths["orphan.bin"]}

	first, err := Run(context.Background(), files, opts)
	if err != nil || first[0].Err != nil || first[0].Cached {
		t.Fatalf("first run: %v %+v", err, first)
	}
	second, err := Run(context.Background(), files, opts)
	if err != nil || second[0].Err != nil {
		t.Fatalf("second run: %v %+v", err, second)
	}
	if !second[0].Cached || second[0].Summary != first[0].Summary {
		t.Fatalf("second run not served from cache: %+v", second[0])
	}

	// A different variant hashes to a different key.
	opts.Variant = game.SkyrimLE
	third, _ := Run(context.Background(), files, opts)
	if third[0].Cached {
		t.Fatal("cache hit across variants")
	}
}

func TestRunVerify(t *testing.T) {
	full := section(true)
	paths := writeFiles(t, map[string][]byte{
		"good.bin": full,
		"cut.bin":  full[:len(full)-6],
	})
	files := []string{paths["good.bin"], paths["cut.bin"]}
	results, err := Run(context.Background(), files, Options{Variant: game.SkyrimSE, Verify: true})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Err != nil || results[0].Mismatch != -1 {
		t.Fatalf("good: %+v", results[0])
	}
	if !results[1].Summary.Truncated || !errors.Is(results[1].Err, papyrus.ErrTruncatedDocument) {
		t.Fatalf("cut: err = %v, summary %+v", results[1].Err, results[1].Summary)
	}
}

func TestRunClean(t *testing.T) {
	paths := writeFiles(t, map[string][]byte{"orphan.bin": section(true)})
	outDir := t.TempDir()
	output := func(file string) string { return filepath.Join(outDir, filepath.Base(file)) }

	results, err := Run(context.Background(), []string{paths["orphan.bin"]}, Options{
		Variant: game.SkyrimSE,
		Clean:   &CleanPolicy{Unattached: true, Undefined: true, Terminated: true},
		Output:  output,
	})
	if err != nil || results[0].Err != nil {
		t.Fatalf("Run: %v %v", err, results[0].Err)
	}
	res := results[0]
	if res.Cleaned.Undefined != 1 || res.Cleaned.Saved <= 0 || res.Summary.ScriptInstances != 0 {
		t.Fatalf("cleaned = %+v, summary %+v", res.Cleaned, res.Summary)
	}
	for _, stage := range []Stage{StageRead, StageLoad, StageClean, StageWrite} {
		if !res.Timings.Has(stage) {
			t.Fatalf("no timing for %s", stage)
		}
	}

	data, err := os.ReadFile(output(paths["orphan.bin"]))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := papyrus.Load(data, game.SkyrimSE)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if doc.ScriptInstances().Len() != 0 || doc.IsTruncated() {
		t.Fatal("cleaned output still holds the orphan")
	}
}

func TestRunCleanNeedsOutput(t *testing.T) {
	_, err := Run(context.Background(), []string{"x"}, Options{Variant: game.SkyrimSE, Clean: &CleanPolicy{}})
	if err == nil {
		t.Fatal("expected an error without an output path")
	}
}

func TestRunCancelled(t *testing.T) {
	paths := writeFiles(t, map[string][]byte{"empty.bin": section(false)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, []string{paths["empty.bin"]}, Options{Variant: game.SkyrimSE}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestFirstDiff(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", -1},
		{"abc", "abc", -1},
		{"abc", "abd", 2},
		{"abc", "ab", 2},
		{"", "x", 0},
	}
	for _, tt := range tests {
		if got := firstDiff([]byte(tt.a), []byte(tt.b)); got != tt.want {
			t.Errorf("firstDiff(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTimingsSum(t *testing.T) {
	var tm Timings
	if tm.Has(StageLoad) || tm.Sum(StageLoad) != 0 {
		t.Fatal("zero Timings not empty")
	}
	tm.Set(StageRead, time.Millisecond)
	tm.Set(StageLoad, 2*time.Millisecond)
	if tm.Sum(StageRead, StageLoad, StageWrite) != 3*time.Millisecond {
		t.Fatalf("Sum = %v", tm.Sum(StageRead, StageLoad))
	}
	if tm.Duration(StageLoad) != 2*time.Millisecond {
		t.Fatal("Duration wrong")
	}
}
