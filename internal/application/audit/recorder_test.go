package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditapp "github.com/orris-inc/payrecon/internal/application/audit"
	"github.com/orris-inc/payrecon/internal/domain/audit"
	"github.com/orris-inc/payrecon/internal/infrastructure/repository"
	"github.com/orris-inc/payrecon/internal/infrastructure/repository/repotest"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

type recordingPublisher struct {
	published []*audit.Record
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, record *audit.Record) error {
	p.published = append(p.published, record)
	return p.err
}

func TestRecorder_SavesThenPublishes(t *testing.T) {
	repo := repository.NewAuditLogRepository(repotest.OpenSQLite(t))
	pub := &recordingPublisher{}
	recorder := auditapp.NewRecorder(repo, pub, logger.NewNopLogger())

	rec := audit.NewRecord(audit.ActionPaymentSucceeded, "webhook")
	rec.PaymentID = 10
	require.NoError(t, recorder.Record(context.Background(), rec))

	stored, err := repo.ListByPayment(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Len(t, pub.published, 1)
}

func TestRecorder_PublishFailureIsNotReturned(t *testing.T) {
	repo := repository.NewAuditLogRepository(repotest.OpenSQLite(t))
	pub := &recordingPublisher{err: errors.New("broker down")}
	recorder := auditapp.NewRecorder(repo, pub, logger.NewNopLogger())

	rec := audit.NewRecord(audit.ActionRefundRequested, "user:1")
	rec.PaymentID = 10

	assert.NoError(t, recorder.Record(context.Background(), rec))
}

func TestRecorder_NilPublisherDefaultsToNop(t *testing.T) {
	repo := repository.NewAuditLogRepository(repotest.OpenSQLite(t))
	recorder := auditapp.NewRecorder(repo, nil, logger.NewNopLogger())

	assert.NoError(t, recorder.Record(context.Background(), audit.NewRecord(audit.ActionReviewOpened, "reconciler")))
}
