package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docdiff/internal/config"
	"github.com/dgallion1/docdiff/internal/match"
	"github.com/dgallion1/docdiff/internal/parser"
	"github.com/dgallion1/docdiff/internal/stats"
	"github.com/dgallion1/docdiff/internal/treediff"
)

// Orchestrator manages the queued diff pipeline.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	stats *stats.Window
	log   *slog.Logger
	cfg   config.Config
	opts  treediff.Options

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch its workers.
func NewOrchestrator(cfg config.Config, window *stats.Window, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		stats: window,
		log:   log,
		cfg:   cfg,
		opts:  DiffOptions(cfg),
	}
}

// DiffOptions derives engine options from the service configuration.
func DiffOptions(cfg config.Config) treediff.Options {
	t := match.DefaultThresholds()
	if cfg.MatchMinimumScore > 0 {
		t.Minimum = cfg.MatchMinimumScore
	}
	if cfg.MatchHighScore > 0 {
		t.High = cfg.MatchHighScore
	}
	opts := treediff.DefaultOptions().Merge(cfg.IgnoredAttributes...)
	opts.Thresholds = t
	if cfg.MaxDiffDepth > 0 {
		opts.MaxDepth = cfg.MaxDiffDepth
	}
	return opts
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	parserOpts := parser.Options{PDFFallbackPdftotext: o.cfg.PDFFallbackPdftotext}
	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.opts, parserOpts, o.stats, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Options returns the engine options jobs are diffed with.
func (o *Orchestrator) Options() treediff.Options {
	return o.opts
}

// Stats returns the latency window shared with the synchronous endpoints.
func (o *Orchestrator) Stats() *stats.Window {
	return o.stats
}
