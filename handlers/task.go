package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmarochko/go-task-api/db"
	"github.com/dmarochko/go-task-api/models"
	"github.com/google/uuid"
)

// field names a partial update may contain; anything else fails the
// whole request before the task is even looked up
var allowedUpdates = map[string]bool{
	"title":       true,
	"description": true,
	"completed":   true,
	"priority":    true,
	"dueDate":     true,
}

/*
handles routes:
- GET /tasks?completed={bool}&priority={high|medium|low} - list own tasks
- POST /tasks - create a new task
*/
func (h *Handler) HandleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTasks(w, r)

	case http.MethodPost:
		h.createTask(w, r)

	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(string)
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	filter := db.TaskFilter{}
	if raw := r.URL.Query().Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			sendError(w, "completed must be true or false", http.StatusBadRequest)
			return
		}
		filter.Completed = &completed
	}
	filter.Priority = r.URL.Query().Get("priority")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	tasks, err := h.TaskRepo.ListByOwner(ctx, userID, filter)
	if err != nil {
		log.Printf("list tasks for %s: %v", userID, err)
		sendError(w, "Failed to list tasks", http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	sendJSON(w, http.StatusOK, tasks)
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(string)
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	var input struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
		DueDate     string `json:"dueDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(input.Title) == "" {
		sendError(w, "Title is required", http.StatusBadRequest)
		return
	}

	dueDate, err := parseDueDate(input.DueDate)
	if err != nil {
		sendError(w, "dueDate must be an RFC 3339 or YYYY-MM-DD date", http.StatusBadRequest)
		return
	}

	// completed is always false at creation; a client-supplied value is ignored
	now := time.Now().UTC()
	task := &models.Task{
		ID:          uuid.New(),
		OwnerID:     uuid.MustParse(userID),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Completed:   false,
		Priority:    models.NormalizePriority(input.Priority),
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.TaskRepo.Create(ctx, task); err != nil {
		log.Printf("create task for %s: %v", userID, err)
		sendError(w, "Failed to create task", http.StatusInternalServerError)
		return
	}
	h.WSHub.BroadcastTaskEvent(task.OwnerID, "task_created", task)
	w.Header().Set("Location", "/tasks/"+task.ID.String())
	sendJSON(w, http.StatusCreated, task)
}

/*
routes:
- GET /tasks/stats,
- PUT/PATCH /tasks/{id},
- DELETE /tasks/{id}
*/
func (h *Handler) HandleTaskByID(w http.ResponseWriter, r *http.Request) {
	rest := r.URL.Path[len("/tasks/"):]
	if rest == "" {
		sendError(w, "task_id is required", http.StatusBadRequest)
		return
	}
	if rest == "stats" {
		if r.Method != http.MethodGet {
			sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.getTaskStats(w, r)
		return
	}
	taskID, err := uuid.Parse(rest)
	if err != nil {
		sendError(w, "task_id must be a valid uuid", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		h.updateTaskByID(w, r, taskID)
	case http.MethodDelete:
		h.deleteTaskByID(w, r, taskID)
	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) updateTaskByID(w http.ResponseWriter, r *http.Request, taskID uuid.UUID) {
	userID, _ := r.Context().Value("user_id").(string)
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	// all-or-nothing whitelist check over the submitted field names,
	// before any lookup or mutation
	for name := range fields {
		if !allowedUpdates[name] {
			sendError(w, "Invalid updates", http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	task, err := h.TaskRepo.GetByOwner(ctx, taskID.String(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendError(w, "Task not found", http.StatusNotFound)
			return
		}
		log.Printf("get task %s for %s: %v", taskID, userID, err)
		sendError(w, "Failed to update task", http.StatusInternalServerError)
		return
	}

	if err := applyTaskUpdates(task, fields); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	task.UpdatedAt = time.Now().UTC()

	if err := h.TaskRepo.Update(ctx, task); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendError(w, "Task not found", http.StatusNotFound)
			return
		}
		log.Printf("update task %s for %s: %v", taskID, userID, err)
		sendError(w, "Failed to update task", http.StatusInternalServerError)
		return
	}
	h.WSHub.BroadcastTaskEvent(task.OwnerID, "task_updated", task)
	sendJSON(w, http.StatusOK, task)
}

// applies whitelisted fields verbatim; absent fields stay untouched
func applyTaskUpdates(task *models.Task, fields map[string]json.RawMessage) error {
	if raw, ok := fields["title"]; ok {
		var title string
		if err := json.Unmarshal(raw, &title); err != nil {
			return errors.New("title must be a string")
		}
		title = strings.TrimSpace(title)
		if title == "" {
			return errors.New("title cannot be empty")
		}
		task.Title = title
	}
	if raw, ok := fields["description"]; ok {
		var desc string
		if err := json.Unmarshal(raw, &desc); err != nil {
			return errors.New("description must be a string")
		}
		task.Description = desc
	}
	if raw, ok := fields["completed"]; ok {
		var completed bool
		if err := json.Unmarshal(raw, &completed); err != nil {
			return errors.New("completed must be a boolean")
		}
		task.Completed = completed
	}
	if raw, ok := fields["priority"]; ok {
		var priority string
		if err := json.Unmarshal(raw, &priority); err != nil || !models.IsValidPriority(priority) {
			// unlike creation, an update never coerces a bad priority
			return errors.New("Invalid priority value")
		}
		task.Priority = models.TaskPriority(priority)
	}
	if raw, ok := fields["dueDate"]; ok {
		var s *string
		if err := json.Unmarshal(raw, &s); err != nil {
			return errors.New("dueDate must be a string or null")
		}
		if s == nil {
			task.DueDate = nil
		} else {
			due, err := parseDueDate(*s)
			if err != nil || due == nil {
				return errors.New("dueDate must be an RFC 3339 or YYYY-MM-DD date")
			}
			task.DueDate = due
		}
	}
	return nil
}

func (h *Handler) deleteTaskByID(w http.ResponseWriter, r *http.Request, taskID uuid.UUID) {
	userID, _ := r.Context().Value("user_id").(string)
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.TaskRepo.DeleteByOwner(ctx, taskID.String(), userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendError(w, "Task not found", http.StatusNotFound)
			return
		}
		log.Printf("delete task %s for %s: %v", taskID, userID, err)
		sendError(w, "Failed to delete task", http.StatusInternalServerError)
		return
	}
	h.WSHub.BroadcastTaskDeletion(uuid.MustParse(userID), taskID)
	sendJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
