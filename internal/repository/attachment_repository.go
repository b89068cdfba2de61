package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ============================================
// ATTACHMENTS
// ============================================

type TaskAttachment struct {
	ID         string
	TaskID     string
	UserID     string // uploader
	Filename   string
	StorageKey string
	FileSize   int64
	MimeType   string
	CreatedAt  time.Time
}

type AttachmentRepository interface {
	Create(ctx context.Context, attachment *TaskAttachment) error
	FindByID(ctx context.Context, id string) (*TaskAttachment, error)
	FindByTaskID(ctx context.Context, taskID string) ([]*TaskAttachment, error)
	Delete(ctx context.Context, id string) error
}

type pgAttachmentRepository struct {
	pool *pgxpool.Pool
}

func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &pgAttachmentRepository{pool: pool}
}

func (r *pgAttachmentRepository) Create(ctx context.Context, a *TaskAttachment) error {
	query := `
		INSERT INTO task_attachments (task_id, user_id, filename, storage_key, file_size, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	if err := r.pool.QueryRow(ctx, query,
		a.TaskID, a.UserID, a.Filename, a.StorageKey, a.FileSize, a.MimeType,
	).Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (r *pgAttachmentRepository) FindByID(ctx context.Context, id string) (*TaskAttachment, error) {
	query := `
		SELECT id, task_id, user_id, filename, storage_key, file_size, mime_type, created_at
		FROM task_attachments WHERE id = $1
	`
	a := &TaskAttachment{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.TaskID, &a.UserID, &a.Filename, &a.StorageKey, &a.FileSize, &a.MimeType, &a.CreatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *pgAttachmentRepository) FindByTaskID(ctx context.Context, taskID string) ([]*TaskAttachment, error) {
	query := `
		SELECT id, task_id, user_id, filename, storage_key, file_size, mime_type, created_at
		FROM task_attachments
		WHERE task_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []*TaskAttachment
	for rows.Next() {
		a := &TaskAttachment{}
		if err := rows.Scan(
			&a.ID, &a.TaskID, &a.UserID, &a.Filename, &a.StorageKey, &a.FileSize, &a.MimeType, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

func (r *pgAttachmentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM task_attachments WHERE id = $1`, id)
	return err
}
