package permission

import (
	"fmt"

	"github.com/orris-inc/payrecon/internal/shared/authorization"
)

// Resources and actions checked by the payment use cases.
const (
	ResourceRefund       = "refund"
	ResourceManualReview = "manual_review"

	ActionCreate  = "create"
	ActionRead    = "read"
	ActionResolve = "resolve"
)

// DefaultPolicies grants staff roles the payment back office operations.
// Customers get nothing here; ownership checks cover their own orders.
func DefaultPolicies() [][]string {
	admin := authorization.RoleAdmin.String()
	finance := authorization.RoleFinance.String()
	return [][]string{
		{admin, ResourceRefund, ActionCreate},
		{admin, ResourceManualReview, ActionRead},
		{admin, ResourceManualReview, ActionResolve},
		{finance, ResourceRefund, ActionCreate},
		{finance, ResourceManualReview, ActionRead},
		{finance, ResourceManualReview, ActionResolve},
	}
}

// SeedDefaultPolicies adds any missing default policy. Existing rows are kept.
func (e *Enforcer) SeedDefaultPolicies() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	added := 0
	for _, p := range DefaultPolicies() {
		has, err := e.enforcer.HasPolicy(p[0], p[1], p[2])
		if err != nil {
			return fmt.Errorf("failed to check policy [%s, %s, %s]: %w", p[0], p[1], p[2], err)
		}
		if has {
			continue
		}
		if _, err := e.enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			e.logger.Errorw("failed to add default policy",
				"error", err,
				"role", p[0],
				"resource", p[1],
				"action", p[2])
			return fmt.Errorf("failed to add policy [%s, %s, %s]: %w", p[0], p[1], p[2], err)
		}
		added++
	}

	if added > 0 {
		e.logger.Infow("default permission policies seeded", "added", added)
	}
	return nil
}
