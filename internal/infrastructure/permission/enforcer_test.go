package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/payrecon/internal/infrastructure/repository/repotest"
	"github.com/orris-inc/payrecon/internal/shared/authorization"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

func newTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(repotest.OpenSQLite(t), logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, e.SeedDefaultPolicies())
	return e
}

func TestEnforcer_DefaultPolicies(t *testing.T) {
	e := newTestEnforcer(t)

	tests := []struct {
		role     authorization.UserRole
		resource string
		action   string
		allowed  bool
	}{
		{authorization.RoleAdmin, ResourceRefund, ActionCreate, true},
		{authorization.RoleAdmin, ResourceManualReview, ActionResolve, true},
		{authorization.RoleFinance, ResourceRefund, ActionCreate, true},
		{authorization.RoleFinance, ResourceManualReview, ActionRead, true},
		{authorization.RoleCustomer, ResourceRefund, ActionCreate, false},
		{authorization.RoleCustomer, ResourceManualReview, ActionRead, false},
		{authorization.RoleAdmin, ResourceRefund, "delete", false},
	}
	for _, tt := range tests {
		t.Run(tt.role.String()+"/"+tt.resource+"/"+tt.action, func(t *testing.T) {
			allowed, err := e.Enforce(tt.role.String(), tt.resource, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, allowed)
		})
	}
}

func TestEnforcer_SeedIsIdempotent(t *testing.T) {
	db := repotest.OpenSQLite(t)
	e, err := NewEnforcer(db, logger.NewNopLogger())
	require.NoError(t, err)

	require.NoError(t, e.SeedDefaultPolicies())
	require.NoError(t, e.SeedDefaultPolicies())

	var count int64
	require.NoError(t, db.Table("casbin_rule").Where("ptype = ?", "p").Count(&count).Error)
	assert.EqualValues(t, len(DefaultPolicies()), count)
}

func TestEnforcer_AddRemovePolicy(t *testing.T) {
	e := newTestEnforcer(t)

	require.NoError(t, e.AddPolicy("support", ResourceManualReview, ActionRead))
	allowed, err := e.Enforce("support", ResourceManualReview, ActionRead)
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, e.RemovePolicy("support", ResourceManualReview, ActionRead))
	require.NoError(t, e.LoadPolicy())
	allowed, err = e.Enforce("support", ResourceManualReview, ActionRead)
	require.NoError(t, err)
	assert.False(t, allowed)
}
