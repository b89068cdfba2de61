package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
	"github.com/Marga-Ghale/ora-tasks-api/internal/email"
	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
	"github.com/Marga-Ghale/ora-tasks-api/internal/socket"
	"github.com/Marga-Ghale/ora-tasks-api/internal/types"
)

// Pusher delivers realtime events to a user's connections.
type Pusher interface {
	UserEvent(userID string, msgType socket.MessageType, payload map[string]interface{})
}

// Mailer queues templated email.
type Mailer interface {
	Enqueue(to []string, subject, templateName string, data interface{})
}

// RoleResolver reports a user's role in a project.
type RoleResolver interface {
	RoleIn(ctx context.Context, project *repository.Project, userID string) (access.Role, error)
}

// Service records notifications and fans them out over websocket and email.
type Service struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	projectRepo      repository.ProjectRepository
	roles            RoleResolver
	pusher           Pusher
	mailer           Mailer
	appURL           string
}

func NewService(
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	projectRepo repository.ProjectRepository,
	roles RoleResolver,
) *Service {
	return &Service{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		projectRepo:      projectRepo,
		roles:            roles,
	}
}

func (s *Service) SetPusher(p Pusher) {
	s.pusher = p
}

// SetMailer enables email for assignment and due-date notifications.
// appURL is used to build task links and may be empty.
func (s *Service) SetMailer(m Mailer, appURL string) {
	s.mailer = m
	s.appURL = appURL
}

// ============================================
// WebSocket Helper
// ============================================

func (s *Service) push(ctx context.Context, n *repository.Notification) {
	if s.pusher == nil || n == nil {
		return
	}

	s.pusher.UserEvent(n.UserID, socket.MessageNotification, map[string]interface{}{
		"id":        n.ID,
		"type":      n.Type,
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Data,
		"read":      n.Read,
		"createdAt": n.CreatedAt,
	})

	total, unread, err := s.notificationRepo.CountByUserID(ctx, n.UserID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", n.UserID).Msg("failed to count notifications")
		return
	}
	s.pusher.UserEvent(n.UserID, socket.MessageNotificationCount, map[string]interface{}{
		"total":  total,
		"unread": unread,
	})
}

func (s *Service) create(ctx context.Context, n *repository.Notification) error {
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	s.push(ctx, n)
	return nil
}

func taskData(task *repository.Task) map[string]interface{} {
	return map[string]interface{}{
		"taskId":    task.ID,
		"projectId": task.ProjectID,
		"action":    "view_task",
	}
}

func (s *Service) taskURL(task *repository.Task) string {
	if s.appURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/projects/%s/tasks/%s", s.appURL, task.ProjectID, task.ID)
}

func (s *Service) displayName(ctx context.Context, userID string) string {
	if userID == "" {
		return "Someone"
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil || user == nil {
		return "Someone"
	}
	return user.Name
}

func (s *Service) projectName(ctx context.Context, projectID string) string {
	if s.projectRepo == nil {
		return ""
	}
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil || project == nil {
		return ""
	}
	return project.Name
}

// canRead reports whether userID still resolves a role in the task's
// project. A nil resolver allows everyone.
func (s *Service) canRead(ctx context.Context, task *repository.Task, userID string) bool {
	if s.roles == nil {
		return true
	}
	if s.projectRepo == nil {
		return false
	}
	project, err := s.projectRepo.FindByID(ctx, task.ProjectID)
	if err != nil || project == nil {
		logger.Warn().Err(err).Str("project_id", task.ProjectID).Msg("notification project lookup failed")
		return false
	}
	role, err := s.roles.RoleIn(ctx, project, userID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Str("project_id", task.ProjectID).Msg("notification role lookup failed")
		return false
	}
	return role.IsResolved()
}

func formatDue(due *time.Time) string {
	if due == nil {
		return ""
	}
	return due.UTC().Format("Jan 2, 2006 15:04 MST")
}

// ============================================
// Task Notifications
// ============================================

// TaskAssigned notifies the new assignee. Self-assignment is silent.
func (s *Service) TaskAssigned(ctx context.Context, task *repository.Task, assigneeID, actorID string) error {
	if assigneeID == "" || assigneeID == actorID || !s.canRead(ctx, task, assigneeID) {
		return nil
	}

	n := &repository.Notification{
		UserID:  assigneeID,
		Type:    types.NotificationTaskAssigned,
		Title:   "Task Assigned",
		Message: fmt.Sprintf("You have been assigned to task: %s", task.Title),
		Data:    taskData(task),
	}
	if err := s.create(ctx, n); err != nil {
		return err
	}

	if s.mailer != nil {
		assignee, err := s.userRepo.FindByID(ctx, assigneeID)
		if err == nil && assignee != nil {
			s.mailer.Enqueue([]string{assignee.Email}, "[ORA] Task Assigned: "+task.Title, email.TemplateTaskAssigned, email.TaskAssignedData{
				AssigneeName: assignee.Name,
				AssignerName: s.displayName(ctx, actorID),
				TaskTitle:    task.Title,
				ProjectName:  s.projectName(ctx, task.ProjectID),
				Priority:     task.Priority,
				DueDate:      formatDue(task.DueDate),
				TaskURL:      s.taskURL(task),
			})
		}
	}
	return nil
}

// TaskCommented notifies the reporter and assignee, never the commenter.
// Recipients who have lost access to the project are skipped.
func (s *Service) TaskCommented(ctx context.Context, task *repository.Task, comment *repository.TaskComment, actorID string) error {
	recipients := []string{task.ReporterID}
	if task.AssigneeID != nil {
		recipients = append(recipients, *task.AssigneeID)
	}
	recipients = lo.Filter(lo.Without(lo.Uniq(lo.Compact(recipients)), actorID), func(userID string, _ int) bool {
		return s.canRead(ctx, task, userID)
	})
	if len(recipients) == 0 {
		return nil
	}

	commenter := s.displayName(ctx, actorID)
	data := taskData(task)
	data["commentId"] = comment.ID

	for _, userID := range recipients {
		n := &repository.Notification{
			UserID:  userID,
			Type:    types.NotificationTaskCommented,
			Title:   "New Comment",
			Message: fmt.Sprintf("%s commented on: %s", commenter, task.Title),
			Data:    lo.Assign(data),
		}
		if err := s.create(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// TaskDueSoon reminds the assignee of an upcoming due date.
func (s *Service) TaskDueSoon(ctx context.Context, task *repository.Task) error {
	if task.AssigneeID == nil || *task.AssigneeID == "" || task.DueDate == nil {
		return nil
	}
	assigneeID := *task.AssigneeID
	if !s.canRead(ctx, task, assigneeID) {
		logger.Debug().Str("task_id", task.ID).Str("user_id", assigneeID).Msg("due-soon reminder skipped, assignee has no access")
		return nil
	}

	n := &repository.Notification{
		UserID:  assigneeID,
		Type:    types.NotificationTaskDueSoon,
		Title:   "Task Due Soon",
		Message: fmt.Sprintf("Task %q is due %s", task.Title, formatDue(task.DueDate)),
		Data:    taskData(task),
	}
	if err := s.create(ctx, n); err != nil {
		return err
	}

	if s.mailer != nil {
		assignee, err := s.userRepo.FindByID(ctx, assigneeID)
		if err == nil && assignee != nil {
			s.mailer.Enqueue([]string{assignee.Email}, "[ORA] Due soon: "+task.Title, email.TemplateDueDateReminder, email.DueDateReminderData{
				UserName:    assignee.Name,
				TaskTitle:   task.Title,
				ProjectName: s.projectName(ctx, task.ProjectID),
				DueDate:     formatDue(task.DueDate),
				TaskURL:     s.taskURL(task),
			})
		}
	}
	return nil
}
