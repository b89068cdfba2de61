package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// invalidTextRepresentation is raised when an id is not a valid UUID.
const invalidTextRepresentation = "22P02"

type Repositories struct {
	UserRepo         UserRepository
	TeamRepo         TeamRepository
	ProjectRepo      ProjectRepository
	TaskRepo         TaskRepository
	CommentRepo      CommentRepository
	AttachmentRepo   AttachmentRepository
	NotificationRepo NotificationRepository
}

func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepo:         NewUserRepository(pool),
		TeamRepo:         NewTeamRepository(pool),
		ProjectRepo:      NewProjectRepository(pool),
		TaskRepo:         NewTaskRepository(pool),
		CommentRepo:      NewCommentRepository(pool),
		AttachmentRepo:   NewAttachmentRepository(pool),
		NotificationRepo: NewNotificationRepository(pool),
	}
}

// isNoRows reports whether a single-row lookup matched nothing. A malformed
// UUID can never match a row, so it counts as missing too.
func isNoRows(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}
