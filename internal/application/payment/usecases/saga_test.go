package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSaga_UndoesCompletedStepsInReverse(t *testing.T) {
	var trail []string
	step := func(name string, fail bool) SagaStep {
		return SagaStep{
			Name: name,
			Do: func(ctx context.Context) error {
				trail = append(trail, "do:"+name)
				if fail {
					return errors.New(name + " failed")
				}
				return nil
			},
			Undo: func(ctx context.Context) error {
				trail = append(trail, "undo:"+name)
				return nil
			},
		}
	}

	err := runSaga(context.Background(), step("a", false), step("b", false), step("c", true), step("d", false))

	require.Error(t, err)
	sagaErr, ok := asSagaError(err)
	require.True(t, ok)
	assert.Equal(t, "c", sagaErr.Step)
	assert.True(t, sagaErr.Compensated())
	assert.Equal(t, []string{"do:a", "do:b", "do:c", "undo:b", "undo:a"}, trail)
}

func TestRunSaga_RecordsFailedCompensation(t *testing.T) {
	undoErr := errors.New("revert failed")
	err := runSaga(context.Background(),
		SagaStep{
			Name: "reserve",
			Do:   func(ctx context.Context) error { return nil },
			Undo: func(ctx context.Context) error { return undoErr },
		},
		SagaStep{
			Name: "gateway",
			Do:   func(ctx context.Context) error { return errors.New("declined") },
		},
	)

	sagaErr, ok := asSagaError(err)
	require.True(t, ok)
	assert.False(t, sagaErr.Compensated())
	assert.ErrorIs(t, sagaErr.UndoFailures["reserve"], undoErr)
	assert.EqualError(t, errors.Unwrap(err), "declined")
}

func TestRunSaga_Success(t *testing.T) {
	calls := 0
	err := runSaga(context.Background(), SagaStep{
		Name: "only",
		Do:   func(ctx context.Context) error { calls++; return nil },
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}
