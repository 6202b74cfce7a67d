package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/shared/goroutine"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

// Handler processes one job payload. Errors wrapping usecases.ErrNonRetryable
// dead-letter the job immediately.
type Handler func(ctx context.Context, payload []byte) error

// Worker consumes registered queues with a fixed number of goroutines each.
type Worker struct {
	queue        *RedisQueue
	handlers     map[string]Handler
	concurrency  int
	pollInterval time.Duration
	logger       logger.Interface
}

func NewWorker(queue *RedisQueue, log logger.Interface) *Worker {
	concurrency := queue.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	poll := queue.cfg.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	return &Worker{
		queue:        queue,
		handlers:     make(map[string]Handler),
		concurrency:  concurrency,
		pollInterval: poll,
		logger:       log.With("component", "queue.worker"),
	}
}

// Register binds a handler to a queue. Call before Run.
func (w *Worker) Register(queue string, h Handler) {
	w.handlers[queue] = h
}

// Queues returns the registered queue names.
func (w *Worker) Queues() []string {
	names := make([]string, 0, len(w.handlers))
	for name := range w.handlers {
		names = append(names, name)
	}
	return names
}

// Run consumes until ctx is cancelled and waits for in-flight jobs.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for name, h := range w.handlers {
		for i := 0; i < w.concurrency; i++ {
			name, h := name, h
			goroutine.SafeGoGroup(&wg, w.logger, fmt.Sprintf("%s-%d", name, i), func() {
				w.consume(ctx, name, h)
			})
		}
	}
	w.logger.Infow("queue worker started", "queues", w.Queues(), "concurrency", w.concurrency)
	wg.Wait()
	w.logger.Infow("queue worker stopped")
}

func (w *Worker) consume(ctx context.Context, queue string, h Handler) {
	for {
		if ctx.Err() != nil {
			return
		}
		processed, err := w.ProcessOne(ctx, queue, h)
		if err != nil {
			w.logger.Errorw("queue poll failed", "queue", queue, "error", err)
		}
		if processed && err == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pollInterval):
		}
	}
}

// ProcessOne claims and handles a single job. It returns false when the
// queue was empty.
func (w *Worker) ProcessOne(ctx context.Context, queue string, h Handler) (bool, error) {
	msg, err := w.queue.Claim(ctx, queue)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, nil
	}

	handleErr := w.invoke(ctx, h, msg)
	if handleErr == nil {
		if err := w.queue.Ack(ctx, msg); err != nil {
			return true, err
		}
		w.logger.Debugw("job completed", "queue", queue, "job_id", msg.ID, "attempt", msg.Attempts)
		return true, nil
	}

	retryable := !errors.Is(handleErr, usecases.ErrNonRetryable)
	dead, err := w.queue.Nack(ctx, msg, handleErr, retryable)
	if err != nil {
		return true, err
	}
	if dead {
		w.logger.Errorw("job dead-lettered",
			"queue", queue,
			"job_id", msg.ID,
			"attempt", msg.Attempts,
			"error", handleErr,
		)
	} else {
		w.logger.Warnw("job failed, retry scheduled",
			"queue", queue,
			"job_id", msg.ID,
			"attempt", msg.Attempts,
			"backoff", w.queue.Backoff(msg.Attempts),
			"error", handleErr,
		)
	}
	return true, nil
}

// invoke runs the handler and converts a panic into a retryable error.
func (w *Worker) invoke(ctx context.Context, h Handler, msg *Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()
	return h(ctx, msg.Payload)
}

// Promoter adapts RedisQueue.Promote to the scheduler's batch job shape.
type Promoter struct {
	queue  *RedisQueue
	queues []string
}

func NewPromoter(queue *RedisQueue, queues ...string) *Promoter {
	return &Promoter{queue: queue, queues: queues}
}

func (p *Promoter) Execute(ctx context.Context) (int, error) {
	return p.queue.Promote(ctx, p.queues...)
}
