package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sentineld/sentinel/internal/store"
)

type createTaskRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	TaskType     string `json:"task_type"`
	PriorityName string `json:"priority_name"`
}

// handleListTasks serves GET /tasks?status=, returning the matching
// tasks alongside the store-wide status summary.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := store.Status(r.URL.Query().Get("status"))

	tasks, err := s.deps.Store.GetAll(ctx, status, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	summary, err := s.deps.Store.Summary(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks":   tasks,
		"summary": queueSummaryJSON(summary),
	})
}

// handleCreateTask serves POST /tasks, enqueuing a user-authored task.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Title == "" {
		req.Title = "User task"
	}
	taskType := req.TaskType
	if taskType == "" {
		taskType = string(store.TaskCustom)
	}

	id, err := s.deps.Store.Add(r.Context(), store.NewTaskParams{
		Title:       req.Title,
		Description: req.Description,
		TaskType:    store.TaskType(taskType),
		Priority:    store.ParsePriority(req.PriorityName),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// handleCancelTask serves DELETE /tasks/{id}.
func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	if err := s.deps.Store.Cancel(r.Context(), id, "cancelled by user"); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleTaskSummary serves GET /tasks/summary.
func (s *Server) handleTaskSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Store.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, queueSummaryJSON(summary))
}
