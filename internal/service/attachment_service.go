package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
	"github.com/Marga-Ghale/ora-tasks-api/internal/socket"
	"github.com/Marga-Ghale/ora-tasks-api/internal/storage"
)

// ============================================
// Attachment Service
// ============================================

type AttachmentService interface {
	Upload(ctx context.Context, taskID, actorID string, file *UploadFile) (*repository.TaskAttachment, error)
	List(ctx context.Context, taskID, actorID string) ([]*repository.TaskAttachment, error)
	Open(ctx context.Context, attachmentID, actorID string) (*repository.TaskAttachment, io.ReadCloser, error)
	Delete(ctx context.Context, attachmentID, actorID string) error
	MaxBytes() int64
}

// UploadFile is an incoming upload. The stored content type is detected from
// the bytes; whatever the client declared is ignored.
type UploadFile struct {
	Filename string
	Content  io.Reader
}

// sniffLen is how much of an upload is read to detect its content type.
const sniffLen = 3072

type attachmentService struct {
	attachmentRepo repository.AttachmentRepository
	taskRepo       repository.TaskRepository
	permService    PermissionService
	files          storage.FileStore
	maxBytes       int64
	broadcaster    EventBroadcaster
}

func NewAttachmentService(
	attachmentRepo repository.AttachmentRepository,
	taskRepo repository.TaskRepository,
	permService PermissionService,
	files storage.FileStore,
	maxBytes int64,
	broadcaster EventBroadcaster,
) AttachmentService {
	return &attachmentService{
		attachmentRepo: attachmentRepo,
		taskRepo:       taskRepo,
		permService:    permService,
		files:          files,
		maxBytes:       maxBytes,
		broadcaster:    broadcasterOrNop(broadcaster),
	}
}

func (s *attachmentService) MaxBytes() int64 {
	return s.maxBytes
}

func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func (s *attachmentService) Upload(ctx context.Context, taskID, actorID string, file *UploadFile) (*repository.TaskAttachment, error) {
	filename := cleanFilename(file.Filename)
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}

	task, _, err := s.permService.LoadTask(ctx, taskID, actorID, access.TaskAttach)
	if err != nil {
		return nil, err
	}

	content := file.Content
	if s.maxBytes > 0 {
		content = io.LimitReader(file.Content, s.maxBytes+1)
	}
	content, mimeType, err := sniff(content)
	if err != nil {
		return nil, err
	}
	key, size, err := s.files.Save(ctx, filename, content)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		s.removeFile(ctx, key)
		return nil, ErrFileTooLarge
	}

	attachment := &repository.TaskAttachment{
		TaskID:     task.ID,
		UserID:     actorID,
		Filename:   filename,
		StorageKey: key,
		FileSize:   size,
		MimeType:   mimeType,
	}
	if err := s.attachmentRepo.Create(ctx, attachment); err != nil {
		s.removeFile(ctx, key)
		return nil, fmt.Errorf("failed to save attachment: %w", err)
	}

	s.broadcaster.ProjectEvent(task.ProjectID, socket.MessageAttachmentAdded, map[string]interface{}{
		"taskId":       task.ID,
		"attachmentId": attachment.ID,
		"filename":     attachment.Filename,
	}, actorID)
	return attachment, nil
}

// sniff detects the content type from the head of r and returns a reader
// that still yields every byte.
func sniff(r io.Reader) (io.Reader, string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	return io.MultiReader(bytes.NewReader(head), r), mimetype.Detect(head).String(), nil
}

func (s *attachmentService) removeFile(ctx context.Context, key string) {
	if err := s.files.Delete(ctx, key); err != nil {
		logger.Warn().Err(err).Str("storage_key", key).Msg("failed to remove attachment file")
	}
}

func (s *attachmentService) List(ctx context.Context, taskID, actorID string) ([]*repository.TaskAttachment, error) {
	task, _, err := s.permService.LoadTask(ctx, taskID, actorID, access.TaskRead)
	if err != nil {
		return nil, err
	}
	return s.attachmentRepo.FindByTaskID(ctx, task.ID)
}

// load returns the attachment and its task, both required to exist.
func (s *attachmentService) load(ctx context.Context, attachmentID string) (*repository.TaskAttachment, *repository.Task, error) {
	attachment, err := s.attachmentRepo.FindByID(ctx, attachmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load attachment: %w", err)
	}
	if attachment == nil {
		return nil, nil, ErrNotFound
	}
	task, err := s.taskRepo.FindByID(ctx, attachment.TaskID)
	if err != nil {
		return nil, nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, nil, ErrNotFound
	}
	return attachment, task, nil
}

// Open authorizes a read and returns the stored content. The caller closes it.
func (s *attachmentService) Open(ctx context.Context, attachmentID, actorID string) (*repository.TaskAttachment, io.ReadCloser, error) {
	attachment, task, err := s.load(ctx, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.permService.AuthorizeTask(ctx, task, actorID, access.TaskRead, false); err != nil {
		return nil, nil, err
	}

	rc, err := s.files.Open(ctx, attachment.StorageKey)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open attachment: %w", err)
	}
	return attachment, rc, nil
}

// Delete is allowed for the uploader or a project admin.
func (s *attachmentService) Delete(ctx context.Context, attachmentID, actorID string) error {
	attachment, task, err := s.load(ctx, attachmentID)
	if err != nil {
		return err
	}
	if _, err := s.permService.AuthorizeTask(ctx, task, actorID, access.TaskDeleteAttachment, attachment.UserID == actorID); err != nil {
		return err
	}

	if err := s.attachmentRepo.Delete(ctx, attachment.ID); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	s.removeFile(ctx, attachment.StorageKey)

	s.broadcaster.ProjectEvent(task.ProjectID, socket.MessageAttachmentDeleted, map[string]interface{}{
		"taskId":       task.ID,
		"attachmentId": attachment.ID,
	}, actorID)
	return nil
}
