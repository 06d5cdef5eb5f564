package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"papyrus/internal/cache"
	"papyrus/internal/diag"
	"papyrus/internal/game"
	"papyrus/internal/observ"
	"papyrus/internal/papyrus"
	"papyrus/internal/trace"
)

const defaultMaxFindings = 512

// CleanPolicy selects which passes a clean run applies, in this order:
// unattached instances, undefined elements, terminated threads.
type CleanPolicy struct {
	Unattached bool
	Undefined  bool
	Terminated bool
}

// CleanReport counts what a clean run changed.
type CleanReport struct {
	Unattached int `json:"unattached"`
	Undefined  int `json:"undefined"`
	Zeroed     int `json:"zeroed_threads"`
	Saved      int `json:"bytes_saved"`
}

// Options configures a batch run.
type Options struct {
	Variant game.Variant
	// Jobs limits concurrent files; zero means GOMAXPROCS.
	Jobs        int
	MaxFindings int
	Cache       *cache.DiskCache
	Tracer      trace.Tracer
	Progress    ProgressSink
	Timings     bool

	// Verify re-encodes every document and compares it with its input.
	Verify bool
	// Clean applies the policy before writing to Output(file).
	Clean  *CleanPolicy
	Output func(file string) string
	// KeepFindings retains the diagnostic bag even when nothing else needs the document.
	KeepFindings bool
}

// Result is the outcome for one file. Err is per file: a failing file does
// not stop the batch.
type Result struct {
	File     string
	Summary  papyrus.Summary
	Bag      *diag.Bag
	Findings map[string]int
	Cached   bool
	// Mismatch is the first offset where re-encoding differs, or -1.
	Mismatch int
	Cleaned  CleanReport
	Timing   observ.Report
	Timings  Timings
	Err      error
}

// Run processes files concurrently, one document per goroutine. Results are
// returned in input order; the error is non-nil only when ctx is cancelled.
func Run(ctx context.Context, files []string, opts Options) ([]Result, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if err := opts.Variant.Validate(); err != nil {
		return nil, err
	}
	if opts.Clean != nil && opts.Output == nil {
		return nil, errors.New("pipeline: clean requires an output path")
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.FromContext(ctx)
	}
	if opts.MaxFindings <= 0 {
		opts.MaxFindings = defaultMaxFindings
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	emitQueued(opts.Progress, files)

	span := trace.Begin(opts.Tracer, trace.ScopeCommand, "batch", trace.ParentFrom(ctx))
	span.Consumed(0, len(files)).WithExtra("jobs", strconv.Itoa(jobs))

	// индексы уникальны для каждой горутины, мьютекс не нужен
	results := make([]Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, file := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = process(file, &opts, span.ID())
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		span.Fail(err)
	} else {
		span.End("")
	}
	return results, err
}

type proc struct {
	opts *Options
	res  Result
}

func (p *proc) stage(stage Stage, fn func() error) error {
	emit(p.opts.Progress, Event{File: p.res.File, Stage: stage, Status: StatusWorking})
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	p.res.Timings.Set(stage, elapsed)
	if err != nil {
		emit(p.opts.Progress, Event{File: p.res.File, Stage: stage, Status: StatusError, Err: err, Elapsed: elapsed})
	}
	return err
}

func process(file string, opts *Options, parent uint64) Result {
	p := &proc{opts: opts, res: Result{File: file, Mismatch: -1}}
	start := time.Now()
	span := trace.Begin(opts.Tracer, trace.ScopeDocument, "file", parent)
	span.WithExtra("path", file)

	err := p.run(span.ID())
	p.res.Err = err
	if err != nil {
		span.Fail(err)
		return p.res
	}
	span.End("")
	emit(opts.Progress, Event{File: file, Status: StatusDone, Elapsed: time.Since(start)})
	return p.res
}

func (p *proc) run(spanID uint64) error {
	opts := p.opts
	var data []byte
	err := p.stage(StageRead, func() error {
		var err error
		data, err = os.ReadFile(p.res.File)
		return err
	})
	if err != nil {
		return err
	}

	key := cache.Key(data, opts.Variant)
	needDoc := opts.Verify || opts.Clean != nil || opts.KeepFindings || opts.Timings
	if !needDoc {
		if e, ok, err := opts.Cache.Get(key); err == nil && ok {
			p.res.Summary = e.Summary
			p.res.Findings = e.Findings
			p.res.Cached = true
			return nil
		} else if err != nil {
			trace.Point(opts.Tracer, trace.ScopeDocument, "cache", err.Error(), spanID)
		}
	}

	var doc *papyrus.Document
	err = p.stage(StageLoad, func() error {
		bag := diag.NewBag(opts.MaxFindings)
		loadOpts := []papyrus.Option{
			papyrus.WithTracer(opts.Tracer),
			papyrus.WithParentSpan(spanID),
			papyrus.WithReporter(diag.NewDedupReporter(diag.BagReporter{Bag: bag})),
		}
		var timer *observ.Timer
		if opts.Timings {
			timer = observ.NewTimer()
			loadOpts = append(loadOpts, papyrus.WithTimer(timer))
		}
		var err error
		doc, err = papyrus.Load(data, opts.Variant, loadOpts...)
		p.res.Bag = bag
		p.res.Findings = countFindings(bag)
		p.res.Timing = timer.Report()
		return err
	})
	if err != nil {
		return err
	}
	p.res.Summary = doc.Summary()
	entry := &cache.Entry{Source: p.res.File, Stored: time.Now(), Summary: p.res.Summary, Findings: p.res.Findings}
	if err := opts.Cache.Put(key, entry); err != nil {
		trace.Point(opts.Tracer, trace.ScopeDocument, "cache", err.Error(), spanID)
	}

	if opts.Verify {
		if err := p.stage(StageVerify, func() error { return p.verify(doc, data) }); err != nil {
			return err
		}
	}
	if opts.Clean != nil {
		if err := p.stage(StageClean, func() error { return p.clean(doc) }); err != nil {
			return err
		}
		return p.stage(StageWrite, func() error { return p.write(doc) })
	}
	return nil
}

func (p *proc) verify(doc *papyrus.Document, data []byte) error {
	out, err := doc.Bytes()
	if err != nil {
		return err
	}
	p.res.Mismatch = firstDiff(data, out)
	if p.res.Mismatch >= 0 {
		return fmt.Errorf("re-encoded section differs at offset %#x (%d bytes in, %d out)", p.res.Mismatch, len(data), len(out))
	}
	return nil
}

func (p *proc) clean(doc *papyrus.Document) error {
	if err := doc.CheckWritable(); err != nil {
		return err
	}
	before := doc.Size()
	policy := p.opts.Clean
	if policy.Unattached {
		p.res.Cleaned.Unattached = len(doc.RemoveUnattachedInstances())
	}
	if policy.Undefined {
		removed, zeroed := doc.RemoveUndefinedElements()
		p.res.Cleaned.Undefined = len(removed)
		p.res.Cleaned.Zeroed += len(zeroed)
	}
	if policy.Terminated {
		p.res.Cleaned.Zeroed += len(doc.ZeroTerminated())
	}
	p.res.Cleaned.Saved = before - doc.Size()
	p.res.Summary = doc.Summary()
	return nil
}

func (p *proc) write(doc *papyrus.Document) error {
	out, err := doc.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(p.opts.Output(p.res.File), out, 0o644)
}

func countFindings(bag *diag.Bag) map[string]int {
	counts := make(map[string]int)
	for _, d := range bag.Items() {
		counts[d.Severity.String()]++
	}
	return counts
}

// firstDiff returns the first offset where a and b differ, or -1.
func firstDiff(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
