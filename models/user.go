package models

// User is the read-only view of an account the engine needs: existence and a display name.
// Accounts are managed by the identity service.
type User struct {
	ID       int    `json:"id" db:"id"`
	Nickname string `json:"nickname" db:"nickname"`
}
