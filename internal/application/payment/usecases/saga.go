package usecases

import (
	"context"
	"errors"
	"fmt"
)

// SagaStep is one forward action with its compensating undo.
type SagaStep struct {
	Name string
	Do   func(ctx context.Context) error
	Undo func(ctx context.Context) error
}

// SagaError reports the failed step and any compensation that also failed.
type SagaError struct {
	Step         string
	Err          error
	UndoFailures map[string]error
}

func (e *SagaError) Error() string {
	if len(e.UndoFailures) == 0 {
		return fmt.Sprintf("saga step %s failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("saga step %s failed: %v (%d compensations failed)", e.Step, e.Err, len(e.UndoFailures))
}

func (e *SagaError) Unwrap() error {
	return e.Err
}

// Compensated reports whether every completed step was undone.
func (e *SagaError) Compensated() bool {
	return len(e.UndoFailures) == 0
}

// runSaga executes steps in order. When a step fails, the steps completed
// before it are undone in reverse order.
func runSaga(ctx context.Context, steps ...SagaStep) error {
	for i, step := range steps {
		if err := step.Do(ctx); err != nil {
			sagaErr := &SagaError{Step: step.Name, Err: err}
			undoCtx := context.WithoutCancel(ctx)
			for j := i - 1; j >= 0; j-- {
				if steps[j].Undo == nil {
					continue
				}
				if undoErr := steps[j].Undo(undoCtx); undoErr != nil {
					if sagaErr.UndoFailures == nil {
						sagaErr.UndoFailures = make(map[string]error)
					}
					sagaErr.UndoFailures[steps[j].Name] = undoErr
				}
			}
			return sagaErr
		}
	}
	return nil
}

func asSagaError(err error) (*SagaError, bool) {
	var sagaErr *SagaError
	ok := errors.As(err, &sagaErr)
	return sagaErr, ok
}
