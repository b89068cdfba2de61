package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
	"github.com/Marga-Ghale/ora-tasks-api/internal/socket"
)

// ============================================
// Comment Service
// ============================================

const maxCommentLength = 10000

type CommentService interface {
	Add(ctx context.Context, taskID, actorID, content string) (*repository.TaskComment, error)
	List(ctx context.Context, taskID, actorID string) ([]*repository.TaskComment, error)
	Delete(ctx context.Context, commentID, actorID string) error
}

type commentService struct {
	commentRepo repository.CommentRepository
	taskRepo    repository.TaskRepository
	permService PermissionService
	notifier    Notifier
	broadcaster EventBroadcaster
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	taskRepo repository.TaskRepository,
	permService PermissionService,
	notifier Notifier,
	broadcaster EventBroadcaster,
) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		taskRepo:    taskRepo,
		permService: permService,
		notifier:    notifier,
		broadcaster: broadcasterOrNop(broadcaster),
	}
}

func (s *commentService) Add(ctx context.Context, taskID, actorID, content string) (*repository.TaskComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: comment content is required", ErrInvalidInput)
	}
	if len(content) > maxCommentLength {
		return nil, fmt.Errorf("%w: comment is too long", ErrInvalidInput)
	}

	task, _, err := s.permService.LoadTask(ctx, taskID, actorID, access.TaskComment)
	if err != nil {
		return nil, err
	}

	comment := &repository.TaskComment{
		TaskID:  task.ID,
		UserID:  actorID,
		Content: content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.broadcaster.ProjectEvent(task.ProjectID, socket.MessageCommentAdded, map[string]interface{}{
		"taskId":  task.ID,
		"comment": comment,
	}, actorID)

	if s.notifier != nil {
		if err := s.notifier.TaskCommented(ctx, task, comment, actorID); err != nil {
			logger.Warn().Err(err).Str("task_id", task.ID).Msg("failed to send comment notification")
		}
	}
	return comment, nil
}

func (s *commentService) List(ctx context.Context, taskID, actorID string) ([]*repository.TaskComment, error) {
	task, _, err := s.permService.LoadTask(ctx, taskID, actorID, access.TaskRead)
	if err != nil {
		return nil, err
	}
	return s.commentRepo.FindByTaskID(ctx, task.ID)
}

// Delete is allowed for the comment author or a project admin.
func (s *commentService) Delete(ctx context.Context, commentID, actorID string) error {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("load comment: %w", err)
	}
	if comment == nil {
		return ErrNotFound
	}

	task, err := s.taskRepo.FindByID(ctx, comment.TaskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return ErrNotFound
	}
	if _, err := s.permService.AuthorizeTask(ctx, task, actorID, access.TaskDeleteComment, comment.UserID == actorID); err != nil {
		return err
	}

	if err := s.commentRepo.Delete(ctx, comment.ID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	s.broadcaster.ProjectEvent(task.ProjectID, socket.MessageCommentDeleted, map[string]interface{}{
		"taskId":    task.ID,
		"commentId": comment.ID,
	}, actorID)
	return nil
}
