package domain

import "time"

// User represents an account that owns workspaces.
type User struct {
	ID        string
	Name      string
	Token     string
	IsActive  bool
	CreatedAt time.Time
}
