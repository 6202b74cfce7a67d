package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	sharedConfig "github.com/orris-inc/payrecon/internal/shared/config"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

const testQueue = "payment-webhooks"

func setupTestQueue(t *testing.T, cfg sharedConfig.QueueConfig) (*RedisQueue, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return NewRedisQueue(client, cfg), mr
}

func fastConfig() sharedConfig.QueueConfig {
	return sharedConfig.QueueConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		VisibilityTimeout: time.Minute,
		PollInterval:      time.Millisecond,
		Concurrency:       1,
		JobTTL:            time.Hour,
	}
}

func job(id string) usecases.Job {
	return usecases.Job{Queue: testQueue, ID: id, Payload: []byte(`{"id":"` + id + `"}`)}
}

func TestRedisQueue_EnqueueCollapsesDuplicateIDs(t *testing.T) {
	q, _ := setupTestQueue(t, fastConfig())
	ctx := context.Background()

	added, err := q.Enqueue(ctx, job("stripe:evt_1"))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = q.Enqueue(ctx, job("stripe:evt_1"))
	require.NoError(t, err)
	assert.False(t, added)

	msg, err := q.Claim(ctx, testQueue)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "stripe:evt_1", msg.ID)
	assert.Equal(t, 1, msg.Attempts)
	assert.JSONEq(t, `{"id":"stripe:evt_1"}`, string(msg.Payload))

	empty, err := q.Claim(ctx, testQueue)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestRedisQueue_AckKeepsIDUntilTTL(t *testing.T) {
	q, mr := setupTestQueue(t, fastConfig())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, job("stripe:evt_1"))
	require.NoError(t, err)
	msg, err := q.Claim(ctx, testQueue)
	require.NoError(t, err)
	require.NoError(t, q.Ack(ctx, msg))

	state, err := q.State(ctx, testQueue, "stripe:evt_1")
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)

	added, err := q.Enqueue(ctx, job("stripe:evt_1"))
	require.NoError(t, err)
	assert.False(t, added)

	mr.FastForward(2 * time.Hour)
	added, err = q.Enqueue(ctx, job("stripe:evt_1"))
	require.NoError(t, err)
	assert.True(t, added)
}

func TestRedisQueue_RetriesThenDeadLetters(t *testing.T) {
	q, _ := setupTestQueue(t, fastConfig())
	ctx := context.Background()
	_, err := q.Enqueue(ctx, job("rzp:evt_9"))
	require.NoError(t, err)

	for attempt := 1; attempt <= 3; attempt++ {
		msg := claimEventually(t, q)
		require.Equal(t, attempt, msg.Attempts)

		dead, err := q.Nack(ctx, msg, errors.New("db down"), true)
		require.NoError(t, err)
		assert.Equal(t, attempt == 3, dead)
	}

	dead, err := q.DeadLetters(ctx, testQueue, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"rzp:evt_9"}, dead)

	state, err := q.State(ctx, testQueue, "rzp:evt_9")
	require.NoError(t, err)
	assert.Equal(t, StateDead, state)
}

func TestRedisQueue_NonRetryableGoesStraightToDeadLetter(t *testing.T) {
	q, _ := setupTestQueue(t, fastConfig())
	ctx := context.Background()
	_, err := q.Enqueue(ctx, job("stripe:evt_2"))
	require.NoError(t, err)

	msg, err := q.Claim(ctx, testQueue)
	require.NoError(t, err)
	dead, err := q.Nack(ctx, msg, usecases.ErrNonRetryable, false)
	require.NoError(t, err)
	assert.True(t, dead)
}

func TestRedisQueue_PromoteRequeuesTimedOutJobs(t *testing.T) {
	cfg := fastConfig()
	cfg.VisibilityTimeout = time.Millisecond
	q, _ := setupTestQueue(t, cfg)
	ctx := context.Background()
	_, err := q.Enqueue(ctx, job("stripe:evt_3"))
	require.NoError(t, err)

	_, err = q.Claim(ctx, testQueue)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	moved, err := q.Promote(ctx, testQueue)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	again, err := q.Claim(ctx, testQueue)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, 2, again.Attempts)
}

func TestRedisQueue_Backoff(t *testing.T) {
	q := NewRedisQueue(nil, sharedConfig.QueueConfig{BackoffBase: 5 * time.Second})

	assert.Equal(t, 5*time.Second, q.Backoff(1))
	assert.Equal(t, 10*time.Second, q.Backoff(2))
	assert.Equal(t, 20*time.Second, q.Backoff(3))
}

func TestWorker_ProcessOne(t *testing.T) {
	q, _ := setupTestQueue(t, fastConfig())
	ctx := context.Background()
	w := NewWorker(q, logger.NewNopLogger())

	var seen []string
	handler := func(_ context.Context, payload []byte) error {
		seen = append(seen, string(payload))
		if len(seen) == 1 {
			return fmt.Errorf("transient")
		}
		return nil
	}

	_, err := q.Enqueue(ctx, job("stripe:evt_4"))
	require.NoError(t, err)

	processed, err := w.ProcessOne(ctx, testQueue, handler)
	require.NoError(t, err)
	assert.True(t, processed)

	time.Sleep(5 * time.Millisecond)
	_, err = q.Promote(ctx, testQueue)
	require.NoError(t, err)

	processed, err = w.ProcessOne(ctx, testQueue, handler)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Len(t, seen, 2)

	state, err := q.State(ctx, testQueue, "stripe:evt_4")
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)

	processed, err = w.ProcessOne(ctx, testQueue, handler)
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestWorker_PanickingHandlerIsRetried(t *testing.T) {
	q, _ := setupTestQueue(t, fastConfig())
	ctx := context.Background()
	w := NewWorker(q, logger.NewNopLogger())

	_, err := q.Enqueue(ctx, job("stripe:evt_5"))
	require.NoError(t, err)

	processed, err := w.ProcessOne(ctx, testQueue, func(context.Context, []byte) error {
		panic("boom")
	})
	require.NoError(t, err)
	assert.True(t, processed)

	state, err := q.State(ctx, testQueue, "stripe:evt_5")
	require.NoError(t, err)
	assert.Equal(t, StateDelayed, state)
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	q, _ := setupTestQueue(t, fastConfig())
	w := NewWorker(q, logger.NewNopLogger())
	done := make(chan string, 1)
	w.Register(testQueue, func(_ context.Context, payload []byte) error {
		done <- string(payload)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	_, err := q.Enqueue(context.Background(), job("stripe:evt_6"))
	require.NoError(t, err)

	select {
	case payload := <-done:
		assert.JSONEq(t, `{"id":"stripe:evt_6"}`, payload)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not consumed")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

// claimEventually promotes delayed jobs until one can be claimed.
func claimEventually(t *testing.T, q *RedisQueue) *Message {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		_, err := q.Promote(ctx, testQueue)
		require.NoError(t, err)
		msg, err := q.Claim(ctx, testQueue)
		require.NoError(t, err)
		if msg != nil {
			return msg
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no job became ready")
	return nil
}
