// Package audit persists audit records and forwards them to the event stream.
package audit

import (
	"context"
	"fmt"

	"github.com/orris-inc/payrecon/internal/domain/audit"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

// Publisher forwards audit records to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, record *audit.Record) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, *audit.Record) error { return nil }

// NopPublisher is used when no event stream is configured.
var NopPublisher Publisher = nopPublisher{}

type Recorder struct {
	repo      audit.Repository
	publisher Publisher
	logger    logger.Interface
}

var _ audit.Recorder = (*Recorder)(nil)

func NewRecorder(repo audit.Repository, publisher Publisher, logger logger.Interface) *Recorder {
	if publisher == nil {
		publisher = NopPublisher
	}
	return &Recorder{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Record stores the record first. A publish failure is logged and not
// returned since the table is the system of record.
func (r *Recorder) Record(ctx context.Context, record *audit.Record) error {
	if err := r.repo.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save audit record: %w", err)
	}
	if err := r.publisher.Publish(ctx, record); err != nil {
		r.logger.Warnw("failed to publish audit record", "audit_id", record.ID, "action", record.Action, "error", err)
	}
	return nil
}
