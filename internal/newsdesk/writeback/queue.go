// Package writeback persists freshly fetched articles off the request path.
package writeback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/metrics"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

// Upserter is the store capability the queue writes through.
type Upserter interface {
	Upsert(ctx context.Context, articles []news.Article) (int, error)
}

// Config sizes the queue.
type Config struct {
	Workers   int           `yaml:"workers" env:"NEWSDESK_WRITEBACK_WORKERS"`
	QueueSize int           `yaml:"queue_size" env:"NEWSDESK_WRITEBACK_QUEUE"`
	Timeout   time.Duration `yaml:"timeout" env:"NEWSDESK_WRITEBACK_TIMEOUT"`
}

// DefaultConfig returns a small queue suited to a single process.
func DefaultConfig() Config {
	return Config{Workers: 2, QueueSize: 64, Timeout: 15 * time.Second}
}

type job struct {
	id       string
	label    string
	articles []news.Article
	queued   time.Time
}

// Queue runs upserts on background workers. Jobs are detached from the
// context of whoever enqueued them and fail silently.
type Queue struct {
	store   Upserter
	timeout time.Duration
	logger  *slog.Logger

	jobs chan job
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New starts a queue with cfg.Workers workers.
func New(store Upserter, cfg Config, logger *slog.Logger) *Queue {
	d := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = d.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = d.QueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	q := &Queue{
		store:   store,
		timeout: cfg.Timeout,
		logger:  logger.With("component", "writeback"),
		jobs:    make(chan job, cfg.QueueSize),
	}
	q.wg.Add(cfg.Workers)
	for range cfg.Workers {
		go q.worker()
	}
	return q
}

// Enqueue schedules articles for persistence and returns immediately. It
// reports false when the job was dropped because the queue is full or
// closed.
func (q *Queue) Enqueue(label string, articles []news.Article) bool {
	if len(articles) == 0 {
		return true
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		metrics.Writebacks.WithLabelValues("dropped").Inc()
		q.logger.Warn("write-back dropped, queue closed", "label", label, "articles", len(articles))
		return false
	}

	j := job{
		id:       uuid.NewString(),
		label:    label,
		articles: append([]news.Article(nil), articles...),
		queued:   time.Now(),
	}
	select {
	case q.jobs <- j:
		return true
	default:
		metrics.Writebacks.WithLabelValues("dropped").Inc()
		q.logger.Warn("write-back dropped, queue full", "label", label, "articles", len(articles))
		return false
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.run(j)
	}
}

func (q *Queue) run(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	start := time.Now()
	n, err := q.store.Upsert(ctx, j.articles)
	if err != nil {
		metrics.Writebacks.WithLabelValues("failed").Inc()
		q.logger.Error("write-back failed", "job", j.id, "label", j.label, "articles", len(j.articles), "error", err)
		return
	}
	metrics.Writebacks.WithLabelValues("ok").Inc()
	q.logger.Debug("write-back complete", "job", j.id, "label", j.label, "upserted", n,
		"waited", start.Sub(j.queued), "duration", time.Since(start))
}

// Close stops accepting jobs and waits for queued ones to finish, or for
// ctx to expire.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
