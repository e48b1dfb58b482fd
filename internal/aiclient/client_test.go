package aiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mtlprog/worklens/internal/aiclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_Success(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/workspace-tasks", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "ext-1",
			"status":        "running",
			"queuePosition": 3,
		})
	}))
	defer server.Close()

	client := aiclient.New(server.URL, 5*time.Second)

	status, err := client.Submit(context.Background(), aiclient.SubmitPayload{
		WorkspaceID: "ws-1",
		TemplateID:  "comparison",
		Model:       "grok",
		ResourceIDs: []string{"r1", "r2"},
		Resources: []aiclient.ResourcePayload{
			{ID: "r1", Metadata: map[string]any{}, Resource: aiclient.ResourceFields{ID: "r1", Type: "paper", Title: "A"}},
			{ID: "r2", Metadata: map[string]any{}, Resource: aiclient.ResourceFields{ID: "r2", Type: "paper", Title: "B"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "ext-1", status.ID)
	assert.Equal(t, "running", status.Status)
	require.NotNil(t, status.QueuePosition)
	assert.Equal(t, 3, *status.QueuePosition)

	assert.Equal(t, "ws-1", gotBody["workspaceId"])
	assert.Equal(t, "comparison", gotBody["templateId"])
	assert.Len(t, gotBody["resources"], 2)
}

func TestSubmit_Non2xxReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workspace ai v2 disabled", http.StatusNotFound)
	}))
	defer server.Close()

	client := aiclient.New(server.URL, 5*time.Second)

	_, err := client.Submit(context.Background(), aiclient.SubmitPayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "workspace ai v2 disabled")
}

func TestSubmit_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := aiclient.New(server.URL, 20*time.Millisecond)

	_, err := client.Submit(context.Background(), aiclient.SubmitPayload{})
	assert.Error(t, err)
}

func TestStatus_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/workspace-tasks/ext-9", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "ext-9",
			"status": "success",
			"result": map[string]any{
				"summary": "done",
				"sections": []map[string]any{
					{"title": "Overview", "content": "all good"},
				},
			},
		})
	}))
	defer server.Close()

	client := aiclient.New(server.URL, 5*time.Second)

	status, err := client.Status(context.Background(), "ext-9")
	require.NoError(t, err)

	assert.Equal(t, "success", status.Status)
	require.NotNil(t, status.Result)
	assert.Equal(t, "done", status.Result.Summary)
	require.Len(t, status.Result.Sections, 1)
	assert.Equal(t, "Overview", status.Result.Sections[0].Title)
}

func TestStatus_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := aiclient.New(server.URL, 5*time.Second)

	_, err := client.Status(context.Background(), "ext-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode ai service response")
}
