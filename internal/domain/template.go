package domain

import "time"

// ReportTemplate describes one report layout the AI service can render.
// Templates are seeded, not user-managed.
type ReportTemplate struct {
	ID          string
	Name        string
	Category    string
	Description string
	CreatedAt   time.Time
}
