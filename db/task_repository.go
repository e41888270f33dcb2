package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmarochko/go-task-api/models"
)

// optional exact-match predicates, ANDed with the owner scope
type TaskFilter struct {
	Completed *bool
	Priority  string
}

// defines methods for task db operations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByOwner(ctx context.Context, taskID, ownerID string) (*models.Task, error)
	ListByOwner(ctx context.Context, ownerID string, filter TaskFilter) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	DeleteByOwner(ctx context.Context, taskID, ownerID string) error
}

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `INSERT INTO tasks (id, owner_id, title, description, completed, priority, due_date, created_at, updated_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(
		ctx, query, task.ID, task.OwnerID, task.Title, task.Description,
		task.Completed, task.Priority, task.DueDate, task.CreatedAt, task.UpdatedAt)
	return err
}

// GetByOwner looks a task up by id AND owner; a task belonging to another
// owner is indistinguishable from a missing one (sql.ErrNoRows either way).
func (r *TaskRepository) GetByOwner(ctx context.Context, taskID, ownerID string) (*models.Task, error) {
	query := `SELECT id, owner_id, title, description, completed, priority, due_date, created_at, updated_at
	 FROM tasks WHERE id = $1 AND owner_id = $2`
	task := &models.Task{}
	var due sql.NullTime
	err := r.db.QueryRowContext(ctx, query, taskID, ownerID).Scan(
		&task.ID, &task.OwnerID, &task.Title, &task.Description,
		&task.Completed, &task.Priority, &due, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if due.Valid {
		d := due.Time
		task.DueDate = &d
	}
	return task, nil
}

func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string, filter TaskFilter) ([]*models.Task, error) {
	query := `SELECT id, owner_id, title, description, completed, priority, due_date, created_at, updated_at
	 FROM tasks WHERE owner_id = $1`
	args := []any{ownerID}

	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		query += fmt.Sprintf(" AND completed = $%d", len(args))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		query += fmt.Sprintf(" AND priority = $%d", len(args))
	}
	// newest first is part of the contract, callers rely on it
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task := &models.Task{}
		var due sql.NullTime
		if err := rows.Scan(
			&task.ID, &task.OwnerID, &task.Title, &task.Description,
			&task.Completed, &task.Priority, &due, &task.CreatedAt, &task.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if due.Valid {
			d := due.Time
			task.DueDate = &d
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update persists every mutable column; owner_id, id and created_at are
// never touched. Returns sql.ErrNoRows when id+owner match nothing.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `UPDATE tasks SET title = $1, description = $2, completed = $3, priority = $4,
	 due_date = $5, updated_at = $6 WHERE id = $7 AND owner_id = $8`
	res, err := r.db.ExecContext(
		ctx, query, task.Title, task.Description, task.Completed, task.Priority,
		task.DueDate, task.UpdatedAt, task.ID, task.OwnerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *TaskRepository) DeleteByOwner(ctx context.Context, taskID, ownerID string) error {
	query := `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, query, taskID, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
