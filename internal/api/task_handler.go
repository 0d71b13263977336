package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/phrazzld/venue-scraper/internal/api/shared"
	"github.com/phrazzld/venue-scraper/internal/domain"
	"github.com/phrazzld/venue-scraper/internal/platform/logger"
	"github.com/phrazzld/venue-scraper/internal/service"
)

// CreateTaskRequest is the request body for creating a scrape task.
type CreateTaskRequest struct {
	SourceURL string `json:"source_url" validate:"required,url"`
}

// TaskResponse is the API projection of a scrape task. Venue data and the
// error message are mutually exclusive in practice: one is set for ready
// tasks, the other for failed tasks.
type TaskResponse struct {
	ID              string            `json:"id"`
	SourceURL       string            `json:"source_url"`
	Status          string            `json:"status"`
	CancelRequested bool              `json:"cancel_requested"`
	VenueData       *domain.VenueData `json:"venue_data,omitempty"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
}

// newTaskResponse maps a domain task to its API projection.
func newTaskResponse(task *domain.ScrapeTask) TaskResponse {
	return TaskResponse{
		ID:              task.ID.String(),
		SourceURL:       task.SourceURL,
		Status:          string(task.Status),
		CancelRequested: task.CancelRequested,
		VenueData:       task.VenueData,
		ErrorMessage:    task.ErrorMessage,
		CreatedAt:       task.CreatedAt,
		UpdatedAt:       task.UpdatedAt,
		ProcessedAt:     task.ProcessedAt,
	}
}

// TaskHandler handles the task-related API endpoints.
type TaskHandler struct {
	taskService service.TaskService
	validator   *validator.Validate
}

// NewTaskHandler creates a new TaskHandler with the given task service.
func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		validator:   validator.New(),
	}
}

// CreateTask handles POST /api/tasks. Accepts a source URL, persists a
// pending scrape task, and responds 202 Accepted: processing happens
// asynchronously and clients poll GetTask for the outcome.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req CreateTaskRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	if !shared.ValidateRequest(w, r, h.validator, &req) {
		return
	}

	task, err := h.taskService.CreateTask(ctx, req.SourceURL)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, err,
			GetSafeErrorMessage(err), MapErrorToStatusCode(err))
		return
	}

	log.Info("scrape task accepted",
		"task_id", task.ID,
		"source_url", task.SourceURL,
	)

	shared.RespondWithJSON(w, http.StatusAccepted, newTaskResponse(task))
}

// GetTask handles GET /api/tasks/{id}. This is the polling endpoint: the
// response carries the current status plus venue data or an error message
// once the task reaches a terminal state.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := h.parseTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, err,
			GetSafeErrorMessage(err), MapErrorToStatusCode(err))
		return
	}

	shared.RespondWithJSON(w, http.StatusOK, newTaskResponse(task))
}

// CancelTask handles POST /api/tasks/{id}/cancel. Cancellation is
// cooperative and idempotent: pending tasks cancel immediately, in-flight
// tasks get a flag the worker checks at its checkpoints, and terminal tasks
// are left untouched. The response reflects the task state after the request.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := h.parseTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.CancelTask(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, err,
			GetSafeErrorMessage(err), MapErrorToStatusCode(err))
		return
	}

	logger.FromContext(r.Context()).Info("task cancellation requested",
		"task_id", task.ID,
		"status", task.Status,
	)

	shared.RespondWithJSON(w, http.StatusAccepted, newTaskResponse(task))
}

// parseTaskID extracts and validates the task ID path parameter. On failure
// it writes a 400 response and returns false.
func (h *TaskHandler) parseTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "id")
	taskID, err := uuid.Parse(idParam)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return uuid.Nil, false
	}
	return taskID, true
}
