package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/dmarochko/go-task-api/db"
	"github.com/dmarochko/go-task-api/models"
)

type PriorityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type Stats struct {
	Total       int            `json:"total"`
	Completed   int            `json:"completed"`
	Pending     int            `json:"pending"`
	Priorities  PriorityCounts `json:"priorities"`
	Overdue     int            `json:"overdue"`
	DueThisWeek int            `json:"dueThisWeek"`
}

// GET /tasks/stats - aggregate view over the owner's full task set
func (h *Handler) getTaskStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(string)
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	tasks, err := h.TaskRepo.ListByOwner(ctx, userID, db.TaskFilter{})
	if err != nil {
		log.Printf("load tasks for stats, owner %s: %v", userID, err)
		sendError(w, "Failed to get task statistics", http.StatusInternalServerError)
		return
	}
	sendJSON(w, http.StatusOK, computeStats(tasks, time.Now().UTC()))
}

// computeStats is a pure function over a task set; it never touches the
// store. A task without a due date, or a completed task, counts toward
// neither overdue nor dueThisWeek. The 7-day window is inclusive at both
// ends.
func computeStats(tasks []*models.Task, now time.Time) Stats {
	stats := Stats{Total: len(tasks)}
	weekEnd := now.Add(7 * 24 * time.Hour)

	for _, task := range tasks {
		if task.Completed {
			stats.Completed++
		} else {
			stats.Pending++
		}

		switch task.Priority {
		case models.PriorityHigh:
			stats.Priorities.High++
		case models.PriorityLow:
			stats.Priorities.Low++
		default:
			stats.Priorities.Medium++
		}

		if task.DueDate == nil || task.Completed {
			continue
		}
		due := *task.DueDate
		if due.Before(now) {
			stats.Overdue++
		} else if !due.After(weekEnd) {
			stats.DueThisWeek++
		}
	}
	return stats
}
