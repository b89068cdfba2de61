package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
	"github.com/Marga-Ghale/ora-tasks-api/internal/socket"
	"github.com/Marga-Ghale/ora-tasks-api/internal/storage"
	"github.com/Marga-Ghale/ora-tasks-api/internal/types"
)

// ============================================
// Task Service
// ============================================

type TaskService interface {
	Create(ctx context.Context, projectID, actorID string, req *CreateTaskRequest) (*repository.Task, error)
	Get(ctx context.Context, taskID, actorID string) (*repository.Task, error)
	ListByProject(ctx context.Context, projectID, actorID, status string) ([]*repository.Task, error)
	ListMine(ctx context.Context, actorID string) ([]*repository.Task, error)
	Update(ctx context.Context, taskID, actorID string, req *UpdateTaskRequest) (*repository.Task, error)
	Assign(ctx context.Context, taskID, actorID string, assigneeID *string) (*repository.Task, error)
	Delete(ctx context.Context, taskID, actorID string) error
}

type CreateTaskRequest struct {
	Title       string
	Description *string
	Status      string
	Priority    string
	AssigneeID  *string
	DueDate     *time.Time
}

// UpdateTaskRequest holds optional changes. ClearDueDate removes the due date.
type UpdateTaskRequest struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	DueDate      *time.Time
	ClearDueDate bool
}

type taskService struct {
	taskRepo       repository.TaskRepository
	attachmentRepo repository.AttachmentRepository
	permService    PermissionService
	files          storage.FileStore
	notifier       Notifier
	broadcaster    EventBroadcaster
}

func NewTaskService(
	taskRepo repository.TaskRepository,
	attachmentRepo repository.AttachmentRepository,
	permService PermissionService,
	files storage.FileStore,
	notifier Notifier,
	broadcaster EventBroadcaster,
) TaskService {
	return &taskService{
		taskRepo:       taskRepo,
		attachmentRepo: attachmentRepo,
		permService:    permService,
		files:          files,
		notifier:       notifier,
		broadcaster:    broadcasterOrNop(broadcaster),
	}
}

func taskPayload(task *repository.Task) map[string]interface{} {
	return map[string]interface{}{
		"task": task,
	}
}

// ensureAssignable checks that the assignee holds a role in the project.
func (s *taskService) ensureAssignable(ctx context.Context, project *repository.Project, assigneeID string) error {
	role, err := s.permService.RoleIn(ctx, project, assigneeID)
	if err != nil {
		return err
	}
	if !role.IsResolved() {
		return fmt.Errorf("%w: assignee is not a member of this project", ErrInvalidInput)
	}
	return nil
}

func (s *taskService) notifyAssigned(ctx context.Context, task *repository.Task, actorID string) {
	if s.notifier == nil || task.AssigneeID == nil {
		return
	}
	if err := s.notifier.TaskAssigned(ctx, task, *task.AssigneeID, actorID); err != nil {
		logger.Warn().Err(err).Str("task_id", task.ID).Msg("failed to send assignment notification")
	}
}

// Create is open to any resolved role; the actor becomes the reporter.
func (s *taskService) Create(ctx context.Context, projectID, actorID string, req *CreateTaskRequest) (*repository.Task, error) {
	project, _, err := s.permService.AuthorizeProject(ctx, projectID, actorID, access.ProjectRead)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}

	status := req.Status
	if status == "" {
		status = types.StatusTodo
	}
	if !types.IsValidTaskStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	priority := req.Priority
	if priority == "" {
		priority = types.PriorityMedium
	}
	if !types.IsValidPriority(priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, priority)
	}

	var assigneeID *string
	if req.AssigneeID != nil && *req.AssigneeID != "" {
		if err := s.ensureAssignable(ctx, project, *req.AssigneeID); err != nil {
			return nil, err
		}
		assigneeID = req.AssigneeID
	}

	task := &repository.Task{
		ProjectID:   project.ID,
		Title:       title,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		ReporterID:  actorID,
		AssigneeID:  assigneeID,
		DueDate:     req.DueDate,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.broadcaster.ProjectEvent(project.ID, socket.MessageTaskCreated, taskPayload(task), actorID)
	s.notifyAssigned(ctx, task, actorID)
	return task, nil
}

func (s *taskService) Get(ctx context.Context, taskID, actorID string) (*repository.Task, error) {
	task, _, err := s.permService.LoadTask(ctx, taskID, actorID, access.TaskRead)
	return task, err
}

func (s *taskService) ListByProject(ctx context.Context, projectID, actorID, status string) ([]*repository.Task, error) {
	if _, _, err := s.permService.AuthorizeProject(ctx, projectID, actorID, access.ProjectRead); err != nil {
		return nil, err
	}

	var filter *string
	if status != "" {
		if !types.IsValidTaskStatus(status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
		}
		filter = &status
	}
	return s.taskRepo.FindByProjectID(ctx, projectID, filter)
}

// ListMine lists tasks assigned to the actor in projects the actor can still
// read. Leaving a project does not clear assignee_id.
func (s *taskService) ListMine(ctx context.Context, actorID string) ([]*repository.Task, error) {
	tasks, err := s.taskRepo.FindByAssigneeID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	readable := make(map[string]bool)
	visible := make([]*repository.Task, 0, len(tasks))
	for _, task := range tasks {
		ok, seen := readable[task.ProjectID]
		if !seen {
			_, _, err := s.permService.AuthorizeProject(ctx, task.ProjectID, actorID, access.ProjectRead)
			switch {
			case err == nil:
				ok = true
			case access.IsDenied(err) || errors.Is(err, ErrNotFound):
				ok = false
			default:
				return nil, err
			}
			readable[task.ProjectID] = ok
		}
		if ok {
			visible = append(visible, task)
		}
	}
	return visible, nil
}

func (s *taskService) Update(ctx context.Context, taskID, actorID string, req *UpdateTaskRequest) (*repository.Task, error) {
	task, _, err := s.permService.LoadTask(ctx, taskID, actorID, access.TaskUpdate)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: task title is required", ErrInvalidInput)
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = req.Description
	}
	if req.Status != nil {
		if !types.IsValidTaskStatus(*req.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *req.Status)
		}
		task.Status = *req.Status
	}
	if req.Priority != nil {
		if !types.IsValidPriority(*req.Priority) {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *req.Priority)
		}
		task.Priority = *req.Priority
	}
	switch {
	case req.ClearDueDate:
		task.DueDate = nil
		task.RemindedAt = nil
	case req.DueDate != nil:
		task.DueDate = req.DueDate
		task.RemindedAt = nil
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.broadcaster.ProjectEvent(task.ProjectID, socket.MessageTaskUpdated, taskPayload(task), actorID)
	return task, nil
}

// Assign sets or clears the assignee. It is authorized as an update.
func (s *taskService) Assign(ctx context.Context, taskID, actorID string, assigneeID *string) (*repository.Task, error) {
	task, project, err := s.permService.LoadTask(ctx, taskID, actorID, access.TaskUpdate)
	if err != nil {
		return nil, err
	}

	if assigneeID != nil && *assigneeID == "" {
		assigneeID = nil
	}
	if assigneeID != nil {
		if err := s.ensureAssignable(ctx, project, *assigneeID); err != nil {
			return nil, err
		}
	}
	if sameAssignee(task.AssigneeID, assigneeID) {
		return task, nil
	}

	if err := s.taskRepo.UpdateAssignee(ctx, task.ID, assigneeID); err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}
	task.AssigneeID = assigneeID

	s.broadcaster.ProjectEvent(task.ProjectID, socket.MessageTaskAssigned, taskPayload(task), actorID)
	s.notifyAssigned(ctx, task, actorID)
	return task, nil
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *taskService) Delete(ctx context.Context, taskID, actorID string) error {
	task, _, err := s.permService.LoadTask(ctx, taskID, actorID, access.TaskDelete)
	if err != nil {
		return err
	}

	var storageKeys []string
	if s.files != nil {
		attachments, err := s.attachmentRepo.FindByTaskID(ctx, task.ID)
		if err != nil {
			logger.Warn().Err(err).Str("task_id", task.ID).Msg("failed to list attachments for cleanup")
		}
		for _, a := range attachments {
			storageKeys = append(storageKeys, a.StorageKey)
		}
	}

	if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	for _, key := range storageKeys {
		if err := s.files.Delete(ctx, key); err != nil {
			logger.Warn().Err(err).Str("storage_key", key).Msg("failed to remove attachment file")
		}
	}

	s.broadcaster.ProjectEvent(task.ProjectID, socket.MessageTaskDeleted, map[string]interface{}{
		"id": task.ID,
	}, actorID)
	return nil
}
