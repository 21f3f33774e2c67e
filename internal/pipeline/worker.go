package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docdiff/internal/doctree"
	"github.com/dgallion1/docdiff/internal/parser"
	"github.com/dgallion1/docdiff/internal/patch"
	"github.com/dgallion1/docdiff/internal/stats"
	"github.com/dgallion1/docdiff/internal/treediff"
)

// Worker processes diff jobs one at a time.
type Worker struct {
	opts       treediff.Options
	parserOpts parser.Options
	stats      *stats.Window
	log        *slog.Logger
}

func NewWorker(opts treediff.Options, parserOpts parser.Options, window *stats.Window, log *slog.Logger) *Worker {
	return &Worker{
		opts:       opts,
		parserOpts: parserOpts,
		stats:      window,
		log:        log,
	}
}

// Process parses both documents of job and diffs them.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "from", job.From.Filename, "to", job.To.Filename)
	defer job.ReleaseData()

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	fromData, toData := job.Data()

	from, err := w.parse(job.From.Filename, fromData)
	if err != nil {
		w.fail(log, job, "parsing", err)
		return
	}
	to, err := w.parse(job.To.Filename, toData)
	if err != nil {
		w.fail(log, job, "parsing", err)
		return
	}
	job.SetTitles(from.Title, to.Title)

	if err := ctx.Err(); err != nil {
		w.fail(log, job, "parsing", err)
		return
	}

	// Phase 2: Diff
	job.SetStatus(StatusDiffing, "diffing")
	opts := w.opts
	if len(job.IgnoredAttributes) > 0 {
		opts = opts.Merge(job.IgnoredAttributes...)
	}
	opts.InPlace = true

	start := time.Now()
	res := treediff.Diff(from.Root, to.Root, opts)
	elapsed := time.Since(start)
	if w.stats != nil {
		w.stats.Record(elapsed, len(res.Patches))
	}

	job.SetResult(patch.Encode(res.Patches), res.Truncated)
	log.Info("diff complete", "patches", len(res.Patches), "truncated", res.Truncated, "duration_ms", elapsed.Milliseconds())
	job.SetStatus(StatusCompleted, "done")
}

func (w *Worker) parse(filename string, data []byte) (*doctree.DocTree, error) {
	p, err := parser.ForFile(filename, w.parserOpts)
	if err != nil {
		return nil, err
	}
	tree, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return tree, nil
}

func (w *Worker) fail(log *slog.Logger, job *Job, phase string, err error) {
	log.Error("diff job failed", "phase", phase, "error", err)
	job.AddError(err.Error())
	job.SetStatus(StatusFailed, phase)
}
