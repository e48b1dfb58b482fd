// Package aiclient is a narrow HTTP client for the external AI compute
// service. It exposes submit and poll operations only; failures are returned
// verbatim and retry policy is left to the caller.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mtlprog/worklens/internal/domain"
)

// ResourcePayload is one selected resource as sent to the AI service: the
// membership metadata plus the frozen resource snapshot.
type ResourcePayload struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
	Resource ResourceFields `json:"resource"`
}

// ResourceFields mirrors the resource projection the AI service consumes.
type ResourceFields struct {
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	Title           string     `json:"title"`
	Abstract        *string    `json:"abstract,omitempty"`
	AISummary       *string    `json:"aiSummary,omitempty"`
	Content         *string    `json:"content,omitempty"`
	SourceURL       *string    `json:"sourceUrl,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	PrimaryCategory *string    `json:"primaryCategory,omitempty"`
	Authors         []string   `json:"authors,omitempty"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
}

// SubmitPayload is the body of a job submission.
type SubmitPayload struct {
	WorkspaceID string            `json:"workspaceId"`
	TemplateID  string            `json:"templateId"`
	Model       string            `json:"model"`
	Resources   []ResourcePayload `json:"resources"`
	Question    string            `json:"question,omitempty"`
	Overrides   map[string]any    `json:"overrides,omitempty"`
	ResourceIDs []string          `json:"resourceIds"`
}

// TaskStatus is the AI service's view of a job. Status uses the external
// vocabulary (running/success/failed); callers map it to internal statuses.
type TaskStatus struct {
	ID            string             `json:"id"`
	Status        string             `json:"status"`
	QueuePosition *int               `json:"queuePosition,omitempty"`
	EstimatedTime *int               `json:"estimatedTime,omitempty"`
	Result        *domain.TaskResult `json:"result,omitempty"`
	Error         *string            `json:"error,omitempty"`
	Metadata      map[string]any     `json:"metadata,omitempty"`
}

// Client calls the external AI compute service over HTTP.
type Client struct {
	apiBase string
	http    *http.Client
}

// New creates a Client for the given base URL. The timeout bounds a single
// submit or poll call end to end.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiBase: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: timeout},
	}
}

// Submit dispatches a new job to the AI service.
func (c *Client) Submit(ctx context.Context, payload SubmitPayload) (*TaskStatus, error) {
	slog.Debug("submitting AI workspace task",
		"workspace_id", payload.WorkspaceID,
		"template_id", payload.TemplateID,
	)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal submit payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/workspace-tasks", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// Status polls the AI service for the state of a dispatched job.
func (c *Client) Status(ctx context.Context, externalTaskID string) (*TaskStatus, error) {
	slog.Debug("fetching AI workspace task status", "external_task_id", externalTaskID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/workspace-tasks/"+externalTaskID, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*TaskStatus, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ai service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ai service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var status TaskStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode ai service response: %w", err)
	}

	return &status, nil
}
