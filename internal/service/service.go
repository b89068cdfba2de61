package service

import (
	"context"
	"errors"
	"time"

	"github.com/Marga-Ghale/ora-tasks-api/internal/auth"
	"github.com/Marga-Ghale/ora-tasks-api/internal/config"
	"github.com/Marga-Ghale/ora-tasks-api/internal/notification"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
	"github.com/Marga-Ghale/ora-tasks-api/internal/socket"
	"github.com/Marga-Ghale/ora-tasks-api/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrFileTooLarge       = errors.New("file too large")
)

// EventBroadcaster pushes realtime events. *socket.Broadcaster satisfies it.
type EventBroadcaster interface {
	ProjectEvent(projectID string, msgType socket.MessageType, payload map[string]interface{}, actorID string)
	UserEvent(userID string, msgType socket.MessageType, payload map[string]interface{})
}

type nopBroadcaster struct{}

func (nopBroadcaster) ProjectEvent(string, socket.MessageType, map[string]interface{}, string) {}
func (nopBroadcaster) UserEvent(string, socket.MessageType, map[string]interface{})            {}

func broadcasterOrNop(b EventBroadcaster) EventBroadcaster {
	if b == nil {
		return nopBroadcaster{}
	}
	return b
}

// Notifier records user-facing notifications for task events.
// *notification.Service satisfies it.
type Notifier interface {
	TaskAssigned(ctx context.Context, task *repository.Task, assigneeID, actorID string) error
	TaskCommented(ctx context.Context, task *repository.Task, comment *repository.TaskComment, actorID string) error
}

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth         AuthService
	User         UserService
	Team         TeamService
	Permission   PermissionService
	Project      ProjectService
	Task         TaskService
	Comment      CommentService
	Attachment   AttachmentService
	Notification NotificationService
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Config      *config.Config
	Repos       *repository.Repositories
	Tokens      *auth.TokenManager
	Sessions    auth.TokenStore
	Files       storage.FileStore
	Notifier    *notification.Service
	Broadcaster EventBroadcaster
	// Permission is optional. main shares it with the websocket hub.
	Permission PermissionService
}

func NewServices(deps *ServiceDeps) *Services {
	repos := deps.Repos
	refreshTTL := time.Duration(deps.Config.RefreshExpiry) * 24 * time.Hour

	permissionService := deps.Permission
	if permissionService == nil {
		permissionService = NewPermissionService(repos.ProjectRepo, repos.TaskRepo, repos.TeamRepo)
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notification.NewService(repos.NotificationRepo, repos.UserRepo, repos.ProjectRepo, permissionService)
	}

	return &Services{
		Auth:       NewAuthService(repos.UserRepo, deps.Tokens, deps.Sessions, refreshTTL),
		User:       NewUserService(repos.UserRepo),
		Team:       NewTeamService(repos.TeamRepo, repos.UserRepo),
		Permission: permissionService,
		Project: NewProjectService(
			repos.ProjectRepo,
			repos.TeamRepo,
			repos.UserRepo,
			repos.TaskRepo,
			repos.AttachmentRepo,
			permissionService,
			deps.Files,
			deps.Broadcaster,
		),
		Task: NewTaskService(
			repos.TaskRepo,
			repos.AttachmentRepo,
			permissionService,
			deps.Files,
			notifier,
			deps.Broadcaster,
		),
		Comment: NewCommentService(repos.CommentRepo, repos.TaskRepo, permissionService, notifier, deps.Broadcaster),
		Attachment: NewAttachmentService(
			repos.AttachmentRepo,
			repos.TaskRepo,
			permissionService,
			deps.Files,
			int64(deps.Config.MaxUploadMB)<<20,
			deps.Broadcaster,
		),
		Notification: NewNotificationService(repos.NotificationRepo, deps.Broadcaster),
	}
}
