package authorization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeSupportIsReadOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "api_key:1", RoleSupport, ObjectSubscription, ActionSubscriptionView))
	assert.NoError(t, svc.Authorize(ctx, "api_key:1", RoleSupport, ObjectHealth, ActionHealthView))
	assert.ErrorIs(t, svc.Authorize(ctx, "api_key:1", RoleSupport, ObjectSubscription, ActionSubscriptionUpdate), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "api_key:1", RoleSupport, ObjectAuditLog, ActionAuditLogView), ErrForbidden)
}

func TestAuthorizeAdminCanMutate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "api_key:2", RoleAdmin, ObjectSubscription, ActionSubscriptionCreate))
	assert.NoError(t, svc.Authorize(ctx, "api_key:2", RoleAdmin, ObjectSubscription, ActionSubscriptionUpdate))
	assert.NoError(t, svc.Authorize(ctx, "api_key:2", RoleAdmin, ObjectAuditLog, ActionAuditLogView))
}

func TestAuthorizeRoleChangeDropsOldGrant(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, "api_key:3", RoleAdmin, ObjectSubscription, ActionSubscriptionUpdate))
	assert.ErrorIs(t, svc.Authorize(ctx, "api_key:3", RoleSupport, ObjectSubscription, ActionSubscriptionUpdate), ErrForbidden)
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", RoleAdmin, ObjectHealth, ActionHealthView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "system", RoleAdmin, ObjectHealth, ActionHealthView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "api_key:1", RoleAdmin, "", ActionHealthView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "api_key:1", RoleAdmin, ObjectHealth, " "), ErrInvalidAction)
	assert.NoError(t, svc.Authorize(ctx, "system", RoleSystem, ObjectSubscription, ActionSubscriptionExpire))
}
