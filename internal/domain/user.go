package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account with its premium entitlement and usage counters.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Password         string     `json:"-"` // bcrypt hash, never serialized
	Role             string     `json:"role"`
	IsPremium        bool       `json:"isPremium"`
	PremiumExpiresAt *time.Time `json:"premiumExpiresAt,omitempty"`
	FreeUsageCount   int        `json:"freeUsageCount"`
	TotalUsageCount  int        `json:"totalUsageCount"`
	CustomerID       *string    `json:"-"` // payment provider customer id
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// PremiumActive reports whether the user's premium entitlement is effective
// at the given time. A nil expiry means a lifetime grant.
func (u *User) PremiumActive(now time.Time) bool {
	if !u.IsPremium {
		return false
	}
	return u.PremiumExpiresAt == nil || u.PremiumExpiresAt.After(now)
}

// RegisterRequest is the validated input for creating an account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the validated input for logging in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginUser is the user part of a login response.
type LoginUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// JWTClaims represents the JWT payload.
type JWTClaims struct {
	Sub   string
	Email string
	Role  string
}

// UserResponse is the safe API response for a user (no password).
type UserResponse struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Role             string     `json:"role"`
	IsPremium        bool       `json:"isPremium"`
	PremiumExpiresAt *time.Time `json:"premiumExpiresAt,omitempty"`
	FreeUsageCount   int        `json:"freeUsageCount"`
	TotalUsageCount  int        `json:"totalUsageCount"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// PublicUser converts a User to its API representation.
func PublicUser(u *User) *UserResponse {
	return &UserResponse{
		ID:               u.ID,
		Email:            u.Email,
		Role:             u.Role,
		IsPremium:        u.IsPremium,
		PremiumExpiresAt: u.PremiumExpiresAt,
		FreeUsageCount:   u.FreeUsageCount,
		TotalUsageCount:  u.TotalUsageCount,
		CreatedAt:        u.CreatedAt,
	}
}

// UsageStatus is the read-only quota gate result.
type UsageStatus struct {
	CanUse           bool       `json:"canUse"`
	IsPremium        bool       `json:"isPremium"`
	FreeUsageCount   int        `json:"freeUsageCount"`
	TotalUsageCount  int        `json:"totalUsageCount"`
	PremiumExpiresAt *time.Time `json:"premiumExpiresAt,omitempty"`
}

// ConsumeResult is returned after a quota consumption attempt succeeds.
// RemainingCount is -1 for premium users (unlimited).
type ConsumeResult struct {
	Success        bool `json:"success"`
	IsPremium      bool `json:"isPremium"`
	RemainingCount int  `json:"remainingCount"`
}

// NewID generates a new UUID string for users and orders.
func NewID() string {
	return uuid.New().String()
}
