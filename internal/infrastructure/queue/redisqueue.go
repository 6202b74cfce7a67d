// Package queue is an at-least-once job queue on Redis. Jobs carry a caller
// chosen ID; enqueueing a known ID is a no-op until the finished job expires.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/shared/biztime"
	sharedConfig "github.com/orris-inc/payrecon/internal/shared/config"
)

const keyPrefix = "queue:"

// Job states stored in the job hash.
const (
	StateReady      = "ready"
	StateProcessing = "processing"
	StateDelayed    = "delayed"
	StateDone       = "done"
	StateDead       = "dead"
)

// enqueueScript stores the job and pushes it unless the ID is already known.
var enqueueScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return 0
	end
	redis.call('HSET', KEYS[1], 'payload', ARGV[2], 'attempts', 0, 'state', 'ready', 'enqueued_at', ARGV[3])
	redis.call('LPUSH', KEYS[2], ARGV[1])
	return 1
`)

// claimScript moves the oldest ready job into the processing set.
var claimScript = redis.NewScript(`
	local id = redis.call('RPOP', KEYS[1])
	if not id then
		return nil
	end
	local jobKey = ARGV[2] .. id
	if redis.call('EXISTS', jobKey) == 0 then
		return nil
	end
	redis.call('ZADD', KEYS[2], ARGV[1], id)
	local attempts = redis.call('HINCRBY', jobKey, 'attempts', 1)
	redis.call('HSET', jobKey, 'state', 'processing')
	return {id, redis.call('HGET', jobKey, 'payload'), attempts}
`)

// promoteScript requeues due delayed jobs and processing jobs whose
// visibility timeout has passed.
var promoteScript = redis.NewScript(`
	local moved = 0
	for _, src in ipairs({KEYS[1], KEYS[2]}) do
		local ids = redis.call('ZRANGEBYSCORE', src, '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
		for _, id in ipairs(ids) do
			if redis.call('ZREM', src, id) == 1 then
				redis.call('HSET', ARGV[3] .. id, 'state', 'ready')
				redis.call('LPUSH', KEYS[3], id)
				moved = moved + 1
			end
		end
	end
	return moved
`)

// Message is a claimed job.
type Message struct {
	Queue    string
	ID       string
	Payload  []byte
	Attempts int
}

// RedisQueue implements usecases.JobQueue.
type RedisQueue struct {
	client *redis.Client
	cfg    sharedConfig.QueueConfig
}

var _ usecases.JobQueue = (*RedisQueue)(nil)

func NewRedisQueue(client *redis.Client, cfg sharedConfig.QueueConfig) *RedisQueue {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 5 * time.Second
	}
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = 2 * time.Minute
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 24 * time.Hour
	}
	return &RedisQueue{client: client, cfg: cfg}
}

func readyKey(queue string) string      { return keyPrefix + queue + ":ready" }
func processingKey(queue string) string { return keyPrefix + queue + ":processing" }
func delayedKey(queue string) string    { return keyPrefix + queue + ":delayed" }
func deadKey(queue string) string       { return keyPrefix + queue + ":dead" }
func jobKeyPrefix(queue string) string  { return keyPrefix + queue + ":job:" }
func jobKey(queue, id string) string    { return jobKeyPrefix(queue) + id }

// Enqueue adds job. It returns false when a job with the same ID exists.
func (q *RedisQueue) Enqueue(ctx context.Context, job usecases.Job) (bool, error) {
	if job.Queue == "" || job.ID == "" {
		return false, fmt.Errorf("queue and job ID are required")
	}
	added, err := enqueueScript.Run(ctx, q.client,
		[]string{jobKey(job.Queue, job.ID), readyKey(job.Queue)},
		job.ID, job.Payload, biztime.NowUTC().Unix(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	return added == 1, nil
}

// Claim takes the next ready job. It returns nil when the queue is empty.
func (q *RedisQueue) Claim(ctx context.Context, queue string) (*Message, error) {
	deadline := biztime.NowUTC().Add(q.cfg.VisibilityTimeout).UnixMilli()
	res, err := claimScript.Run(ctx, q.client,
		[]string{readyKey(queue), processingKey(queue)},
		deadline, jobKeyPrefix(queue),
	).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("unexpected claim result length %d", len(res))
	}

	id, _ := res[0].(string)
	payload, _ := res[1].(string)
	attempts, _ := res[2].(int64)
	return &Message{Queue: queue, ID: id, Payload: []byte(payload), Attempts: int(attempts)}, nil
}

// Ack marks the job done. The job record is kept for the job TTL so a
// redelivery with the same ID is still collapsed.
func (q *RedisQueue) Ack(ctx context.Context, msg *Message) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, processingKey(msg.Queue), msg.ID)
		pipe.HSet(ctx, jobKey(msg.Queue, msg.ID), "state", StateDone)
		pipe.Expire(ctx, jobKey(msg.Queue, msg.ID), q.cfg.JobTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to ack job %s: %w", msg.ID, err)
	}
	return nil
}

// Nack schedules a retry with exponential backoff, or dead-letters the job
// when it is out of attempts or retryable is false. It reports whether the
// job was dead-lettered.
func (q *RedisQueue) Nack(ctx context.Context, msg *Message, cause error, retryable bool) (bool, error) {
	key := jobKey(msg.Queue, msg.ID)
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}

	if !retryable || msg.Attempts >= q.cfg.MaxAttempts {
		_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZRem(ctx, processingKey(msg.Queue), msg.ID)
			pipe.HSet(ctx, key, "state", StateDead, "last_error", lastError)
			pipe.Expire(ctx, key, q.cfg.JobTTL)
			pipe.LPush(ctx, deadKey(msg.Queue), msg.ID)
			return nil
		})
		if err != nil {
			return false, fmt.Errorf("failed to dead-letter job %s: %w", msg.ID, err)
		}
		return true, nil
	}

	runAt := biztime.NowUTC().Add(q.Backoff(msg.Attempts)).UnixMilli()
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, processingKey(msg.Queue), msg.ID)
		pipe.HSet(ctx, key, "state", StateDelayed, "last_error", lastError)
		pipe.ZAdd(ctx, delayedKey(msg.Queue), redis.Z{Score: float64(runAt), Member: msg.ID})
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to schedule retry for job %s: %w", msg.ID, err)
	}
	return false, nil
}

// Backoff is the delay after the given attempt: base, 2x base, 4x base...
func (q *RedisQueue) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return q.cfg.BackoffBase * time.Duration(1<<uint(attempt-1))
}

// Promote returns due delayed jobs and timed out processing jobs to the
// ready list of each queue.
func (q *RedisQueue) Promote(ctx context.Context, queues ...string) (int, error) {
	now := biztime.NowUTC().UnixMilli()
	total := 0
	for _, name := range queues {
		moved, err := promoteScript.Run(ctx, q.client,
			[]string{delayedKey(name), processingKey(name), readyKey(name)},
			now, 500, jobKeyPrefix(name),
		).Int()
		if err != nil {
			return total, fmt.Errorf("failed to promote jobs on %s: %w", name, err)
		}
		total += moved
	}
	return total, nil
}

// State returns the stored state of a job, or "" when unknown.
func (q *RedisQueue) State(ctx context.Context, queue, id string) (string, error) {
	state, err := q.client.HGet(ctx, jobKey(queue, id), "state").Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read job state: %w", err)
	}
	return state, nil
}

// DeadLetters lists dead-lettered job IDs, newest first.
func (q *RedisQueue) DeadLetters(ctx context.Context, queue string, limit int64) ([]string, error) {
	ids, err := q.client.LRange(ctx, deadKey(queue), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}
	return ids, nil
}
