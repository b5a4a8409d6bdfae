// Package contextkeys holds the typed context keys the auth middleware
// populates and handlers read.
package contextkeys

type key string

// Keys for the authenticated caller's identity.
const (
	UserID    key = "user_id"
	UserEmail key = "user_email"
	UserRole  key = "user_role"
)
