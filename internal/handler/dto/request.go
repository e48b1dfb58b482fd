package dto

// CreateWorkspaceRequest represents the request body for POST /workspaces.
type CreateWorkspaceRequest struct {
	ResourceIDs []string `json:"resource_ids"`
}

// UpdateWorkspaceResourcesRequest represents the request body for PATCH /workspaces/:id.
type UpdateWorkspaceResourcesRequest struct {
	AddResourceIDs    []string `json:"add_resource_ids,omitempty"`
	RemoveResourceIDs []string `json:"remove_resource_ids,omitempty"`
}

// CreateTaskRequest represents the request body for POST /workspaces/:id/tasks.
type CreateTaskRequest struct {
	TemplateID  string         `json:"template_id"`
	Model       string         `json:"model"`
	ResourceIDs []string       `json:"resource_ids,omitempty"`
	Question    string         `json:"question,omitempty"`
	Overrides   map[string]any `json:"overrides,omitempty"`
}
