package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mtlprog/worklens/internal/handler/dto"
	"github.com/mtlprog/worklens/internal/middleware"
	"github.com/mtlprog/worklens/internal/service"
)

// handleCreateTask creates a new workspace analysis task.
// @Summary Create a workspace task
// @Description Dispatches an AI analysis job over the workspace's resources. If the AI service is unavailable the task completes with a locally generated fallback result.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Workspace ID"
// @Param request body dto.CreateTaskRequest true "Task creation request"
// @Success 201 {object} dto.TaskView
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /workspaces/{id}/tasks [post]
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
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

	var req dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if req.TemplateID == "" {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "template_id is required")
		return
	}
	if req.Model == "" {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "model is required")
		return
	}

	task, err := h.taskService.CreateTask(ctx, user.ID, workspaceID, service.CreateTaskParams{
		TemplateID:  req.TemplateID,
		Model:       req.Model,
		ResourceIDs: req.ResourceIDs,
		Question:    req.Question,
		Overrides:   req.Overrides,
	})
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	respondJSON(w, http.StatusCreated, dto.ToTaskView(task, false))
}

// handleGetTask retrieves a task, syncing it against the AI service first.
// @Summary Get task status
// @Description Returns the task's freshest available state. Pass include_result=true to receive the full result payload.
// @Tags tasks
// @Produce json
// @Param id path string true "Workspace ID"
// @Param taskId path string true "Task ID"
// @Param include_result query boolean false "Include the full result payload"
// @Success 200 {object} dto.TaskView
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /workspaces/{id}/tasks/{taskId} [get]
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
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
	taskID, ok := extractUUIDParam(w, r, "taskId")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(ctx, user.ID, workspaceID, taskID)
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	includeResult := r.URL.Query().Get("include_result") == "true"

	respondJSON(w, http.StatusOK, dto.ToTaskView(task, includeResult))
}

// handleGetTaskStats returns aggregated task statistics for a workspace.
// @Summary Get workspace task statistics
// @Description Task counts by status, fallback usage, and average completion time.
// @Tags tasks
// @Produce json
// @Param id path string true "Workspace ID"
// @Success 200 {object} dto.TaskStatsResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /workspaces/{id}/stats [get]
func (h *Handler) handleGetTaskStats(w http.ResponseWriter, r *http.Request) {
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

	stats, err := h.taskService.GetWorkspaceTaskStats(ctx, user.ID, workspaceID)
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskStatsResponse(stats))
}
