package domain

import "time"

// WorkspaceStatus represents the lifecycle status of a workspace.
type WorkspaceStatus string

const (
	WorkspaceStatusActive   WorkspaceStatus = "ACTIVE"
	WorkspaceStatusArchived WorkspaceStatus = "ARCHIVED"
)

// MinWorkspaceResources is the minimum membership a workspace must keep to
// stay usable for task creation. Enforced by the store on creation and on
// resource removal.
const MinWorkspaceResources = 2

// Workspace is a user-owned grouping of resources used as the unit of
// multi-resource analysis.
type Workspace struct {
	ID        string
	UserID    string
	Status    WorkspaceStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOwnedBy checks if the workspace belongs to the given user.
func (w *Workspace) IsOwnedBy(userID string) bool {
	return w.UserID == userID
}
