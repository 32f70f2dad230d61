package authorization

import "context"

const (
	ObjectHealth       = "health"
	ObjectSubscription = "subscription"
	ObjectInvoice      = "invoice"
	ObjectAuditLog     = "audit_log"
	ObjectAPIKey       = "api_key"
)

const (
	ActionHealthView    = "health.view"
	ActionHealthCompute = "health.compute"

	ActionSubscriptionView   = "subscription.view"
	ActionSubscriptionCreate = "subscription.create"
	ActionSubscriptionUpdate = "subscription.update"
	ActionSubscriptionExpire = "subscription.expire"

	ActionInvoiceView = "invoice.view"

	ActionAuditLogView = "audit_log.view"

	ActionAPIKeyCreate = "api_key.create"
	ActionAPIKeyRevoke = "api_key.revoke"
)

// Roles an admin API key can carry. System is reserved for the scheduler and CLI.
const (
	RoleAdmin   = "admin"
	RoleSupport = "support"
	RoleSystem  = "system"
)

// Service decides whether an actor may perform action on object.
//
// Actors are formatted as "system" or "api_key:<id>".
type Service interface {
	Authorize(ctx context.Context, actor, role, object, action string) error
}

// IsValidRole reports whether role can be assigned to an API key.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleSupport:
		return true
	default:
		return false
	}
}
