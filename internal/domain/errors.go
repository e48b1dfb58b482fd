package domain

import "errors"

// Domain-specific errors for business logic validation.
var (
	// Workspace errors
	ErrWorkspaceNotFound      = errors.New("workspace not found")
	ErrForbidden              = errors.New("no access to workspace")
	ErrInsufficientResources  = errors.New("workspace needs at least 2 resources")
	ErrResourceNotInWorkspace = errors.New("resource does not belong to workspace")
	ErrResourceNotFound       = errors.New("resource not found")
	ErrEmptyResourceUpdate    = errors.New("provide resource ids to add or remove")

	// Task errors
	ErrTaskNotFound     = errors.New("task not found")
	ErrTemplateNotFound = errors.New("report template not found")
	ErrInvalidStatus    = errors.New("invalid task status")

	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrUserInactive = errors.New("user is inactive")
	ErrInvalidToken = errors.New("invalid authentication token")
)
