package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mtlprog/worklens/internal/handler/dto"
	"github.com/mtlprog/worklens/internal/middleware"
)

// handleCreateWorkspace creates a new workspace.
// @Summary Create a workspace
// @Description Creates a workspace grouping at least 2 resources for multi-resource analysis.
// @Tags workspaces
// @Accept json
// @Produce json
// @Param request body dto.CreateWorkspaceRequest true "Workspace creation request"
// @Success 201 {object} dto.WorkspaceDetailResponse
// @Failure 400 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /workspaces [post]
func (h *Handler) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := middleware.GetUserFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	var req dto.CreateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	detail, err := h.workspaceService.CreateWorkspace(ctx, user.ID, req.ResourceIDs)
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	respondJSON(w, http.StatusCreated, dto.ToWorkspaceDetailResponse(detail.Workspace, detail.Resources, detail.Tasks))
}

// handleGetWorkspace retrieves a workspace with resources and tasks.
// @Summary Get workspace details
// @Description Get a workspace with its resource membership and task history.
// @Tags workspaces
// @Produce json
// @Param id path string true "Workspace ID"
// @Success 200 {object} dto.WorkspaceDetailResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /workspaces/{id} [get]
func (h *Handler) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := middleware.GetUserFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	workspaceID, ok := extractUUIDParam(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.workspaceService.GetWorkspace(ctx, user.ID, workspaceID)
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToWorkspaceDetailResponse(detail.Workspace, detail.Resources, detail.Tasks))
}

// handleUpdateWorkspaceResources adds or removes workspace members.
// @Summary Update workspace resources
// @Description Adds and/or removes resources. Removal keeps at least 2 members.
// @Tags workspaces
// @Accept json
// @Produce json
// @Param id path string true "Workspace ID"
// @Param request body dto.UpdateWorkspaceResourcesRequest true "Resource update request"
// @Success 200 {object} dto.WorkspaceDetailResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /workspaces/{id} [patch]
func (h *Handler) handleUpdateWorkspaceResources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := middleware.GetUserFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	workspaceID, ok := extractUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req dto.UpdateWorkspaceResourcesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	detail, err := h.workspaceService.UpdateResources(ctx, user.ID, workspaceID, req.AddResourceIDs, req.RemoveResourceIDs)
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToWorkspaceDetailResponse(detail.Workspace, detail.Resources, detail.Tasks))
}

// handleListTemplates lists report templates.
// @Summary List report templates
// @Description Lists available report templates, optionally filtered by category.
// @Tags workspaces
// @Produce json
// @Param category query string false "Template category"
// @Success 200 {object} dto.TemplatesResponse
// @Security BearerAuth
// @Router /workspaces/templates [get]
func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := middleware.GetUserFromContext(ctx); err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	templates, err := h.workspaceService.ListTemplates(ctx, r.URL.Query().Get("category"))
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	resp := dto.TemplatesResponse{Templates: make([]dto.TemplateResponse, len(templates))}
	for i, template := range templates {
		resp.Templates[i] = dto.ToTemplateResponse(template)
	}

	respondJSON(w, http.StatusOK, resp)
}
