// Package async runs archive jobs through the pipeline one at a time. The
// queue exists for watch mode: archives keep arriving while the previous one
// is still being processed.
package async

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Hk-V1/consignee-renamer/internal/entity"
	"github.com/Hk-V1/consignee-renamer/internal/pipeline"
)

// OutputSuffix marks archives this queue produced, so they are never
// re-enqueued as inputs.
const OutputSuffix = ".renamed.zip"

// Job is one archive to process.
type Job struct {
	ArchivePath string
	OutDir      string // destination for the output archive; empty -> alongside the input
	SubmittedAt time.Time
	TraceID     string
}

// OutputPath returns where the job's renamed archive will be written.
func (j Job) OutputPath() string {
	dir := j.OutDir
	if dir == "" {
		dir = filepath.Dir(j.ArchivePath)
	}
	base := filepath.Base(j.ArchivePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+OutputSuffix)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// DoneFunc receives each finished job with its records and outcome.
type DoneFunc func(job Job, records []entity.AuditRecord, summary entity.RunSummary, err error)

type ArchiveQueue struct {
	proc    *pipeline.Processor
	logger  *zap.Logger
	workers int
	timeout time.Duration
	onDone  DoneFunc
	opts    pipeline.ProcessOptions

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ArchiveQueue)

func WithWorkers(n int) Option {
	return func(q *ArchiveQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ArchiveQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(q *ArchiveQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}
func WithDoneFunc(fn DoneFunc) Option {
	return func(q *ArchiveQueue) {
		q.onDone = fn
	}
}

// WithProcessOptions applies the same processing options to every job.
func WithProcessOptions(opts pipeline.ProcessOptions) Option {
	return func(q *ArchiveQueue) {
		q.opts = opts
	}
}

// NewArchiveQueue starts the workers immediately. One worker is the default:
// each run is sequential, and archives queue behind each other.
func NewArchiveQueue(proc *pipeline.Processor, logger *zap.Logger, opts ...Option) *ArchiveQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &ArchiveQueue{
		proc:    proc,
		logger:  logger,
		workers: 1,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ArchiveQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", zap.Int("worker_id", workerID))

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					records, summary, err := q.proc.Execute(ctx, job.ArchivePath, job.OutputPath(), q.opts)
					cancel()

					if err != nil {
						q.logger.Error("archive processing failed",
							zap.Int("worker_id", workerID),
							zap.String("archive", job.ArchivePath),
							zap.Error(err))
					} else {
						q.logger.Info("archive processed",
							zap.Int("worker_id", workerID),
							zap.String("archive", job.ArchivePath),
							zap.String("output", job.OutputPath()),
							zap.Int("entries", summary.Entries),
							zap.Int("found", summary.Found))
					}
					if q.onDone != nil {
						q.onDone(job, records, summary, err)
					}
				}

				q.logger.Info("worker stopped", zap.Int("worker_id", workerID))
			}(i + 1)
		}
	})
}

func (q *ArchiveQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", zap.String("archive", job.ArchivePath))
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued archive for processing", zap.String("archive", job.ArchivePath))
	default:
		q.logger.Warn("queue full, applying backpressure", zap.String("archive", job.ArchivePath))
		q.ch <- job
	}
	return nil
}

func (q *ArchiveQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
