package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/mtlprog/worklens/docs" // Import generated docs
	"github.com/mtlprog/worklens/internal/handler/dto"
	"github.com/mtlprog/worklens/internal/middleware"
	"github.com/mtlprog/worklens/internal/repository"
	"github.com/mtlprog/worklens/internal/service"
	"github.com/mtlprog/worklens/internal/static"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	pool             *pgxpool.Pool
	workspaceService *service.WorkspaceService
	taskService      *service.TaskService
	authMiddleware   *middleware.AuthMiddleware
}

// New creates a new Handler instance with all dependencies. The dispatcher
// is injected so tests can run without a live AI service.
func New(pool *pgxpool.Pool, ai service.Dispatcher) *Handler {
	// Create repositories
	workspaceRepo := repository.NewWorkspaceRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// Create services
	workspaceService := service.NewWorkspaceService(pool, workspaceRepo, taskRepo, templateRepo)
	taskService := service.NewTaskService(taskRepo, workspaceRepo, templateRepo, ai)

	// Create middleware
	authMiddleware := middleware.NewAuthMiddleware(userRepo)

	return &Handler{
		pool:             pool,
		workspaceService: workspaceService,
		taskService:      taskService,
		authMiddleware:   authMiddleware,
	}
}

// TaskService exposes the orchestrator, e.g. for CLI sync passes.
func (h *Handler) TaskService() *service.TaskService {
	return h.taskService
}

// Close stops background task polling.
func (h *Handler) Close() {
	h.taskService.Close()
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /healthz", h.handleHealthz)

	// Embedded API usage doc
	mux.HandleFunc("GET /api.md", h.handleAPIMd)

	// Swagger UI
	mux.HandleFunc("GET /swagger/", httpSwagger.Handler())

	// API v1 routes with authentication
	mux.Handle("POST /api/v1/workspaces", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleCreateWorkspace)))
	mux.Handle("GET /api/v1/workspaces/templates", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleListTemplates)))
	mux.Handle("GET /api/v1/workspaces/{id}", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleGetWorkspace)))
	mux.Handle("PATCH /api/v1/workspaces/{id}", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleUpdateWorkspaceResources)))
	mux.Handle("GET /api/v1/workspaces/{id}/stats", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleGetTaskStats)))
	mux.Handle("POST /api/v1/workspaces/{id}/tasks", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleCreateTask)))
	mux.Handle("GET /api/v1/workspaces/{id}/tasks/{taskId}", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleGetTask)))
}

// handleHealthz returns 200 OK if the database is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.pool.Ping(ctx); err != nil {
		slog.Error("database health check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleAPIMd serves the embedded api.md usage doc.
func (h *Handler) handleAPIMd(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(static.APIMd))
}

// Ping checks if the database is reachable (used for testing).
func (h *Handler) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}

// extractUUIDParam extracts and validates a UUID path parameter.
// Returns (value, true) if valid, ("", false) if invalid (error already sent to client).
func extractUUIDParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", name+" is required")
		return "", false
	}

	if _, err := uuid.Parse(value); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", name+" must be a valid UUID")
		return "", false
	}

	return value, true
}
