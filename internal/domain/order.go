package domain

import "time"

// Order statuses. An order is created pending, completed at most once, and
// refunded is terminal.
const (
	OrderPending   = "pending"
	OrderCompleted = "completed"
	OrderRefunded  = "refunded"
)

// Plan types.
const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// ValidPlan reports whether the plan type is one we sell.
func ValidPlan(plan string) bool {
	return plan == PlanMonthly || plan == PlanYearly
}

// Order is the ledger record of one checkout attempt and its resolution.
type Order struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	SessionID       *string   `json:"sessionId,omitempty"`       // gateway checkout session id
	ProviderOrderID *string   `json:"providerOrderId,omitempty"` // gateway order id, set on completion
	Amount          int64     `json:"amount"`                    // smallest currency unit
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	PlanType        string    `json:"planType"`
	Metadata        string    `json:"metadata,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CheckoutRequest is the validated input for starting a checkout.
type CheckoutRequest struct {
	PlanType string `json:"planType" validate:"required,oneof=monthly yearly"`
}

// CheckoutResponse returns the gateway session to redirect the user to.
type CheckoutResponse struct {
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

// VerifyResponse is the result of the synchronous payment verification poll.
type VerifyResponse struct {
	Success          bool       `json:"success"`
	Message          string     `json:"message,omitempty"`
	IsPremium        bool       `json:"isPremium,omitempty"`
	PremiumExpiresAt *time.Time `json:"premiumExpiresAt,omitempty"`
	PlanType         string     `json:"planType,omitempty"`
}

// ActivateRequest is the input for the manual activation escape hatch.
type ActivateRequest struct {
	Months int `json:"months" validate:"omitempty,min=1,max=120"`
}

// ActivateResponse is returned after a manual or admin grant.
type ActivateResponse struct {
	Success          bool       `json:"success"`
	IsPremium        bool       `json:"isPremium"`
	PremiumExpiresAt *time.Time `json:"premiumExpiresAt"`
	UserID           string     `json:"userId"`
}

// AdminMembershipRequest is the admin-only grant for a target user.
type AdminMembershipRequest struct {
	UserID string `json:"userId" validate:"required"`
	Months int    `json:"months" validate:"omitempty,min=1,max=120"`
}
