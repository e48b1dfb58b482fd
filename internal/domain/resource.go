package domain

import "time"

// ResourceSnapshot is a read-only projection of an externally-owned resource's
// descriptive fields. The orchestrator never writes to the resources table.
type ResourceSnapshot struct {
	ID              string
	Type            string
	Title           string
	Abstract        *string
	AISummary       *string
	Content         *string
	SourceURL       *string
	Tags            []string
	PrimaryCategory *string
	Authors         []string
	PublishedAt     *time.Time
}

// BestSummary returns the best available summary text for the resource,
// preferring the precomputed AI summary over the abstract.
func (r *ResourceSnapshot) BestSummary() string {
	if r.AISummary != nil && *r.AISummary != "" {
		return *r.AISummary
	}
	if r.Abstract != nil && *r.Abstract != "" {
		return *r.Abstract
	}
	return "no summary available"
}

// WorkspaceResource is the membership relation between a workspace and a
// resource. Metadata is opaque key-value data attached by the caller and not
// interpreted here.
type WorkspaceResource struct {
	WorkspaceID string
	ResourceID  string
	Metadata    map[string]any
	AddedAt     time.Time
	Resource    ResourceSnapshot
}
