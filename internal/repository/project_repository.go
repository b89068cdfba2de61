package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Project struct {
	ID          string
	Name        string
	Key         string // e.g. "PROJ"
	Description *string
	OwnerID     string
	TeamID      *string // members inherit their team role when set
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	FindByID(ctx context.Context, id string) (*Project, error)
	FindByKey(ctx context.Context, key string) (*Project, error)
	FindAccessible(ctx context.Context, userID string) ([]*Project, error)
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id string) error
}

type pgProjectRepository struct {
	pool *pgxpool.Pool
}

func NewProjectRepository(pool *pgxpool.Pool) ProjectRepository {
	return &pgProjectRepository{pool: pool}
}

const projectColumns = `id, name, key, description, owner_id, team_id, created_at, updated_at`

func (r *pgProjectRepository) Create(ctx context.Context, project *Project) error {
	query := `
		INSERT INTO projects (name, key, description, owner_id, team_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		project.Name, project.Key, project.Description, project.OwnerID, project.TeamID,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *pgProjectRepository) FindByID(ctx context.Context, id string) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProject(r.pool.QueryRow(ctx, query, id))
}

func (r *pgProjectRepository) FindByKey(ctx context.Context, key string) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE key = $1`
	return scanProject(r.pool.QueryRow(ctx, query, key))
}

// FindAccessible lists projects the user owns or reaches through the project's team.
func (r *pgProjectRepository) FindAccessible(ctx context.Context, userID string) ([]*Project, error) {
	query := `
		SELECT p.id, p.name, p.key, p.description, p.owner_id, p.team_id, p.created_at, p.updated_at
		FROM projects p
		LEFT JOIN team_members tm ON tm.team_id = p.team_id AND tm.user_id = $1
		WHERE p.owner_id = $1 OR tm.id IS NOT NULL
		ORDER BY p.name
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p := &Project{}
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Key, &p.Description, &p.OwnerID, &p.TeamID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *pgProjectRepository) Update(ctx context.Context, project *Project) error {
	query := `
		UPDATE projects
		SET name = $2, key = $3, description = $4, team_id = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	return r.pool.QueryRow(ctx, query,
		project.ID, project.Name, project.Key, project.Description, project.TeamID,
	).Scan(&project.UpdatedAt)
}

func (r *pgProjectRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return err
}

func scanProject(row pgx.Row) (*Project, error) {
	p := &Project{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Key, &p.Description, &p.OwnerID, &p.TeamID, &p.CreatedAt, &p.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
