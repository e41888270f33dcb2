package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dmarochko/go-task-api/models"
	"github.com/google/uuid"
)

func statTask(completed bool, priority models.TaskPriority, due *time.Time) *models.Task {
	return &models.Task{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Title:     "t",
		Completed: completed,
		Priority:  priority,
		DueDate:   due,
	}
}

func TestComputeStats_Empty(t *testing.T) {
	stats := computeStats(nil, time.Now().UTC())
	if stats.Total != 0 || stats.Completed != 0 || stats.Pending != 0 ||
		stats.Overdue != 0 || stats.DueThisWeek != 0 {
		t.Errorf("empty set should yield all zeroes: %+v", stats)
	}
}

func TestComputeStats_CountsAndPriorities(t *testing.T) {
	tasks := []*models.Task{
		statTask(true, models.PriorityHigh, nil),
		statTask(false, models.PriorityMedium, nil),
		statTask(false, models.PriorityMedium, nil),
	}
	stats := computeStats(tasks, time.Now().UTC())

	if stats.Total != 3 || stats.Completed != 1 || stats.Pending != 2 {
		t.Errorf("counts wrong: %+v", stats)
	}
	if stats.Completed+stats.Pending != stats.Total {
		t.Errorf("completed+pending must equal total: %+v", stats)
	}
	want := PriorityCounts{High: 1, Medium: 2, Low: 0}
	if stats.Priorities != want {
		t.Errorf("priorities = %+v, want %+v", stats.Priorities, want)
	}
}

func TestComputeStats_OverdueAndDueThisWeek(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	inThreeDays := now.Add(3 * 24 * time.Hour)

	tasks := []*models.Task{
		statTask(false, models.PriorityMedium, &inThreeDays),
		statTask(false, models.PriorityMedium, &yesterday),
	}
	stats := computeStats(tasks, now)

	if stats.DueThisWeek != 1 {
		t.Errorf("dueThisWeek = %d, want 1 (due in 3 days)", stats.DueThisWeek)
	}
	if stats.Overdue != 1 {
		t.Errorf("overdue = %d, want 1 (due yesterday)", stats.Overdue)
	}
}

// a completed task never counts toward overdue or dueThisWeek, whatever
// its due date; a dateless task counts toward neither
func TestComputeStats_CompletedAndDatelessExcluded(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	soon := now.Add(24 * time.Hour)

	tasks := []*models.Task{
		statTask(true, models.PriorityHigh, &past),
		statTask(true, models.PriorityHigh, &soon),
		statTask(false, models.PriorityLow, nil),
	}
	stats := computeStats(tasks, now)

	if stats.Overdue != 0 || stats.DueThisWeek != 0 {
		t.Errorf("completed/dateless tasks leaked into due counts: %+v", stats)
	}
}

// the 7-day window is inclusive on both ends
func TestComputeStats_WindowBoundaries(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	atNow := now
	atWeekEnd := now.Add(7 * 24 * time.Hour)
	justBeyond := now.Add(7*24*time.Hour + time.Second)

	tasks := []*models.Task{
		statTask(false, models.PriorityMedium, &atNow),
		statTask(false, models.PriorityMedium, &atWeekEnd),
		statTask(false, models.PriorityMedium, &justBeyond),
	}
	stats := computeStats(tasks, now)

	if stats.DueThisWeek != 2 {
		t.Errorf("dueThisWeek = %d, want 2 (both boundaries inclusive)", stats.DueThisWeek)
	}
	if stats.Overdue != 0 {
		t.Errorf("overdue = %d, want 0", stats.Overdue)
	}
}

func TestTaskStats_Route(t *testing.T) {
	_, mux, dbx, secret := setupHTTP(t)
	defer dbx.Close()

	authz := bearerForUser(t, secret, uuid.New().String())

	bodies := []string{
		`{"title":"done","priority":"high"}`,
		`{"title":"open 1"}`,
		`{"title":"open 2"}`,
	}
	ids := make([]string, 0, len(bodies))
	for _, body := range bodies {
		rec := doJSON(t, mux, http.MethodPost, "/tasks", authz, body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status=%d body=%s", rec.Code, rec.Body.String())
		}
		ids = append(ids, decodeTask(t, rec.Body.Bytes()).ID.String())
	}
	rec := doJSON(t, mux, http.MethodPut, "/tasks/"+ids[0], authz, `{"completed":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete task status=%d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/tasks/stats", authz, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /tasks/stats status=%d body=%s", rec.Code, rec.Body.String())
	}
	var stats Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Total != 3 || stats.Completed != 1 || stats.Pending != 2 {
		t.Errorf("stats counts wrong: %+v", stats)
	}
	if (stats.Priorities != PriorityCounts{High: 1, Medium: 2, Low: 0}) {
		t.Errorf("stats priorities wrong: %+v", stats.Priorities)
	}

	// another owner sees an empty view, not this one
	other := bearerForUser(t, secret, uuid.New().String())
	rec = doJSON(t, mux, http.MethodGet, "/tasks/stats", other, "")
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Total != 0 {
		t.Errorf("stats leaked across owners: %+v", stats)
	}
}
