package models

import "time"

// ============================================
// Team DTOs
// ============================================

type CreateTeamRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

type AddMemberRequest struct {
	UserID string `json:"userId" binding:"required"`
	Role   string `json:"role" binding:"omitempty,oneof=admin member viewer"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin member viewer"`
}

type TeamResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description *string              `json:"description,omitempty"`
	CreatedBy   string               `json:"createdBy"`
	CreatedAt   time.Time            `json:"createdAt"`
	Members     []TeamMemberResponse `json:"members,omitempty"`
}

type TeamMemberResponse struct {
	ID       string        `json:"id"`
	TeamID   string        `json:"teamId"`
	UserID   string        `json:"userId"`
	Role     string        `json:"role"`
	JoinedAt time.Time     `json:"joinedAt"`
	User     *UserResponse `json:"user,omitempty"`
}

// ============================================
// Project DTOs
// ============================================

type CreateProjectRequest struct {
	Name        string  `json:"name" binding:"required"`
	Key         string  `json:"key" binding:"required"`
	Description *string `json:"description"`
	TeamID      *string `json:"teamId"`
}

// UpdateProjectRequest: a teamId of "" detaches the team.
type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Key         *string `json:"key"`
	Description *string `json:"description"`
	TeamID      *string `json:"teamId"`
}

type ProjectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Key         string    `json:"key"`
	Description *string   `json:"description,omitempty"`
	OwnerID     string    `json:"ownerId"`
	TeamID      *string   `json:"teamId,omitempty"`
	Role        string    `json:"role,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ProjectMemberResponse struct {
	UserID string  `json:"userId"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Avatar *string `json:"avatar,omitempty"`
	Role   string  `json:"role"`
}

type ProjectRoleResponse struct {
	ProjectID string `json:"projectId"`
	Role      string `json:"role"`
	IsMember  bool   `json:"isMember"`
}
