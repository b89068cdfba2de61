package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/models"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
	"github.com/Marga-Ghale/ora-tasks-api/internal/service"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Team         *TeamHandler
	Project      *ProjectHandler
	Task         *TaskHandler
	Comment      *CommentHandler
	Attachment   *AttachmentHandler
	Notification *NotificationHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Auth:         &AuthHandler{authService: services.Auth},
		User:         &UserHandler{userService: services.User},
		Team:         &TeamHandler{teamService: services.Team},
		Project:      &ProjectHandler{projectService: services.Project},
		Task:         &TaskHandler{taskService: services.Task},
		Comment:      &CommentHandler{commentService: services.Comment},
		Attachment:   &AttachmentHandler{attachmentService: services.Attachment},
		Notification: &NotificationHandler{notificationService: services.Notification},
	}
}

// ============================================
// Responses
// ============================================

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, models.Response{Success: true, Data: data})
}

func respondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, models.Response{Success: true, Message: message})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Success: false, Message: err.Error()})
}

// respondError maps service errors to HTTP responses.
func respondError(c *gin.Context, err error) {
	if denied, ok := access.AsDenied(err); ok {
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Success: false,
			Message: denied.Reason.Message(),
			Reason:  string(denied.Reason),
		})
		return
	}

	status, message := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, service.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found"
	case errors.Is(err, service.ErrUserExists):
		status, message = http.StatusConflict, "User already exists"
	case errors.Is(err, service.ErrConflict):
		status, message = http.StatusConflict, "Resource already exists"
	case errors.Is(err, service.ErrInvalidInput):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrFileTooLarge):
		status, message = http.StatusRequestEntityTooLarge, "File too large"
	case errors.Is(err, service.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, service.ErrInvalidToken):
		status, message = http.StatusUnauthorized, "Invalid or expired token"
	default:
		logger.Error().Err(err).Str("method", c.Request.Method).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, models.ErrorResponse{Success: false, Message: message})
}

// ============================================
// Response Mappers
// ============================================

func toUserResponse(u *repository.User) models.UserResponse {
	return models.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

func toTeamResponse(t *repository.Team) models.TeamResponse {
	return models.TeamResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
	}
}

func toTeamMemberResponse(m *repository.TeamMember) models.TeamMemberResponse {
	resp := models.TeamMemberResponse{
		ID:       m.ID,
		TeamID:   m.TeamID,
		UserID:   m.UserID,
		Role:     access.StoredTeamRole(m.Role).String(),
		JoinedAt: m.JoinedAt,
	}
	if m.User != nil {
		u := toUserResponse(m.User)
		resp.User = &u
	}
	return resp
}

func toProjectResponse(p *repository.Project) models.ProjectResponse {
	return models.ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Key:         p.Key,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		TeamID:      p.TeamID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProjectMemberResponse(m *service.ProjectMember) models.ProjectMemberResponse {
	return models.ProjectMemberResponse{
		UserID: m.UserID,
		Name:   m.Name,
		Email:  m.Email,
		Avatar: m.Avatar,
		Role:   m.Role.String(),
	}
}

func toTaskResponse(t *repository.Task) models.TaskResponse {
	return models.TaskResponse{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		ReporterID:  t.ReporterID,
		AssigneeID:  t.AssigneeID,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTaskResponses(tasks []*repository.Task) []models.TaskResponse {
	response := make([]models.TaskResponse, len(tasks))
	for i, t := range tasks {
		response[i] = toTaskResponse(t)
	}
	return response
}

func toCommentResponse(cm *repository.TaskComment) models.CommentResponse {
	resp := models.CommentResponse{
		ID:        cm.ID,
		TaskID:    cm.TaskID,
		UserID:    cm.UserID,
		Content:   cm.Content,
		CreatedAt: cm.CreatedAt,
	}
	if cm.User != nil {
		u := toUserResponse(cm.User)
		resp.User = &u
	}
	return resp
}

func toAttachmentResponse(a *repository.TaskAttachment) models.AttachmentResponse {
	return models.AttachmentResponse{
		ID:        a.ID,
		TaskID:    a.TaskID,
		UserID:    a.UserID,
		Filename:  a.Filename,
		FileSize:  a.FileSize,
		MimeType:  a.MimeType,
		CreatedAt: a.CreatedAt,
	}
}

func toNotificationResponse(n *repository.Notification) models.NotificationResponse {
	return models.NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		Data:      n.Data,
		CreatedAt: n.CreatedAt,
	}
}
