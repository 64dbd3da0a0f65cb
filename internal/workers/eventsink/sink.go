// Package eventsink delivers analytics and feedback records in the background.
// Delivery is best effort and at most once: a full queue drops the record and
// a failed write is handed to the processor's fallback, never retried.
package eventsink

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"hireflow/internal/domain"
)

// Job carries exactly one of Event or Feedback.
type Job struct {
	Event    *domain.AnalyticsEvent
	Feedback *domain.Feedback
}

func (j Job) kind() string {
	if j.Feedback != nil {
		return "feedback"
	}
	return "event"
}

// Processor persists one job.
type Processor interface {
	Process(ctx context.Context, job Job) error
}

type ProcessorFunc func(ctx context.Context, job Job) error

func (f ProcessorFunc) Process(ctx context.Context, job Job) error { return f(ctx, job) }

type Sink struct {
	jobs      chan Job
	processor Processor
	log       *zap.Logger

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
	failed  atomic.Int64
}

// Start launches concurrency workers draining a queue of queueSize jobs.
// Workers write with ctx; cancelling it makes pending writes fail fast.
func Start(ctx context.Context, processor Processor, concurrency, queueSize int, log *zap.Logger) *Sink {
	if concurrency < 1 {
		concurrency = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	s := &Sink{jobs: make(chan Job, queueSize), processor: processor, log: log}
	for i := 0; i < concurrency; i++ {
		s.wg.Add(1)
		go func(idx int) {
			defer s.wg.Done()
			for job := range s.jobs {
				if err := processor.Process(ctx, job); err != nil {
					s.failed.Add(1)
					log.Warn("event sink write failed",
						zap.Int("worker", idx), zap.String("kind", job.kind()), zap.Error(err))
				}
			}
		}(i)
	}
	return s
}

// Enqueue never blocks. It reports false when the job was dropped because the
// queue was full or the sink is stopped.
func (s *Sink) Enqueue(job Job) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return false
	}
	select {
	case s.jobs <- job:
		return true
	default:
		s.dropped.Add(1)
		s.log.Debug("event sink queue full, dropping", zap.String("kind", job.kind()))
		return false
	}
}

// Stop refuses new jobs, lets the workers drain the queue and waits for them.
func (s *Sink) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()
	s.wg.Wait()
}

type Stats struct {
	Queued  int   `json:"queued"`
	Dropped int64 `json:"dropped"`
	Failed  int64 `json:"failed"`
}

func (s *Sink) Stats() Stats {
	return Stats{Queued: len(s.jobs), Dropped: s.dropped.Load(), Failed: s.failed.Load()}
}

// ProcessInline runs a job synchronously with the same processor the workers use.
func ProcessInline(ctx context.Context, processor Processor, job Job) error {
	return processor.Process(ctx, job)
}
