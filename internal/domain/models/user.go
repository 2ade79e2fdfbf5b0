package models

import "github.com/google/uuid"

// Roles carried in JWT claims issued by the account service.
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleOperator = "operator"
)

// User is an account holder. For operators the payout-account fields cache
// the gateway onboarding state; charges are only routed to an operator whose
// account has charges enabled.
type User struct {
	ID                   uuid.UUID
	Email                string
	Role                 string
	PayoutAccountID      string // gateway connected-account id, empty until onboarding starts
	PayoutAccountStatus  string // "pending" or "active"
	PayoutChargesEnabled bool
	PayoutPayoutsEnabled bool
}
