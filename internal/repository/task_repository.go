package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	ReporterID  string     `json:"reporterId"`
	AssigneeID  *string    `json:"assigneeId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	RemindedAt  *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id string) (*Task, error)
	FindByProjectID(ctx context.Context, projectID string, status *string) ([]*Task, error)
	FindByAssigneeID(ctx context.Context, assigneeID string) ([]*Task, error)
	Update(ctx context.Context, task *Task) error
	UpdateAssignee(ctx context.Context, taskID string, assigneeID *string) error
	Delete(ctx context.Context, id string) error

	// Scheduler
	FindDueForReminder(ctx context.Context, dueBefore, remindedBefore time.Time) ([]*Task, error)
	MarkReminded(ctx context.Context, taskID string, at time.Time) error
}

type pgTaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &pgTaskRepository{pool: pool}
}

const taskColumns = `id, project_id, title, description, status, priority, reporter_id, assignee_id,
	due_date, reminded_at, created_at, updated_at`

func (r *pgTaskRepository) Create(ctx context.Context, task *Task) error {
	query := `
		INSERT INTO tasks (project_id, title, description, status, priority, reporter_id, assignee_id, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		task.ProjectID, task.Title, task.Description, task.Status, task.Priority,
		task.ReporterID, task.AssigneeID, task.DueDate,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *pgTaskRepository) FindByID(ctx context.Context, id string) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	t, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if isNoRows(err) {
		return nil, nil
	}
	return t, err
}

func (r *pgTaskRepository) FindByProjectID(ctx context.Context, projectID string, status *string) ([]*Task, error) {
	query := `
		SELECT ` + taskColumns + ` FROM tasks
		WHERE project_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, projectID, status)
}

func (r *pgTaskRepository) FindByAssigneeID(ctx context.Context, assigneeID string) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE assignee_id = $1 ORDER BY due_date NULLS LAST, created_at DESC`
	return r.list(ctx, query, assigneeID)
}

func (r *pgTaskRepository) Update(ctx context.Context, task *Task) error {
	query := `
		UPDATE tasks SET
			title = $2, description = $3, status = $4, priority = $5,
			assignee_id = $6, due_date = $7, reminded_at = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	return r.pool.QueryRow(ctx, query,
		task.ID, task.Title, task.Description, task.Status, task.Priority, task.AssigneeID, task.DueDate, task.RemindedAt,
	).Scan(&task.UpdatedAt)
}

func (r *pgTaskRepository) UpdateAssignee(ctx context.Context, taskID string, assigneeID *string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tasks SET assignee_id = $2, reminded_at = NULL, updated_at = NOW() WHERE id = $1`,
		taskID, assigneeID,
	)
	return err
}

func (r *pgTaskRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

// FindDueForReminder returns open, assigned tasks due before dueBefore that
// have not been reminded since remindedBefore.
func (r *pgTaskRepository) FindDueForReminder(ctx context.Context, dueBefore, remindedBefore time.Time) ([]*Task, error) {
	query := `
		SELECT ` + taskColumns + ` FROM tasks
		WHERE assignee_id IS NOT NULL
		  AND status <> 'done'
		  AND due_date IS NOT NULL AND due_date > NOW() AND due_date <= $1
		  AND (reminded_at IS NULL OR reminded_at < $2)
		ORDER BY due_date
	`
	return r.list(ctx, query, dueBefore, remindedBefore)
}

func (r *pgTaskRepository) MarkReminded(ctx context.Context, taskID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE tasks SET reminded_at = $2 WHERE id = $1`, taskID, at)
	return err
}

func (r *pgTaskRepository) list(ctx context.Context, query string, args ...interface{}) ([]*Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (*Task, error) {
	t := &Task{}
	err := row.Scan(
		&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.ReporterID, &t.AssigneeID, &t.DueDate, &t.RemindedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
