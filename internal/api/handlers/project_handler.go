package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
	"github.com/Marga-Ghale/ora-tasks-api/internal/api/middleware"
	"github.com/Marga-Ghale/ora-tasks-api/internal/models"
	"github.com/Marga-Ghale/ora-tasks-api/internal/service"
)

// ============================================
// Project Handler
// ============================================

type ProjectHandler struct {
	projectService service.ProjectService
}

func (h *ProjectHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), userID, &service.CreateProjectRequest{
		Name:        req.Name,
		Key:         req.Key,
		Description: req.Description,
		TeamID:      req.TeamID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := toProjectResponse(project)
	response.Role = access.NameOwner
	respond(c, http.StatusCreated, response)
}

func (h *ProjectHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	projects, err := h.projectService.ListMine(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.ProjectResponse, len(projects))
	for i, p := range projects {
		response[i] = toProjectResponse(p)
	}
	respond(c, http.StatusOK, response)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	project, role, err := h.projectService.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := toProjectResponse(project)
	response.Role = role.String()
	respond(c, http.StatusOK, response)
}

func (h *ProjectHandler) Update(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), c.Param("id"), userID, &service.UpdateProjectRequest{
		Name:        req.Name,
		Key:         req.Key,
		Description: req.Description,
		TeamID:      req.TeamID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, toProjectResponse(project))
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}

	respondMessage(c, "Project deleted")
}

// Role reports the caller's role. Non-members get 200 with role "none" so
// clients can render read-only or join prompts.
func (h *ProjectHandler) Role(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	projectID := c.Param("id")
	role, err := h.projectService.Role(c.Request.Context(), projectID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	name := role.String()
	if role == access.RoleNone {
		name = "none"
	}
	respond(c, http.StatusOK, models.ProjectRoleResponse{
		ProjectID: projectID,
		Role:      name,
		IsMember:  role.IsResolved(),
	})
}

// ============================================
// Members
// ============================================

func (h *ProjectHandler) ListMembers(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	members, err := h.projectService.ListMembers(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.ProjectMemberResponse, len(members))
	for i, m := range members {
		response[i] = toProjectMemberResponse(m)
	}
	respond(c, http.StatusOK, response)
}

func (h *ProjectHandler) AddMember(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	member, err := h.projectService.AddMember(c.Request.Context(), c.Param("id"), userID, &service.AddMemberRequest{
		UserID: req.UserID,
		Role:   req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, toProjectMemberResponse(member))
}

func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.projectService.RemoveMember(c.Request.Context(), c.Param("id"), userID, c.Param("userId")); err != nil {
		respondError(c, err)
		return
	}

	respondMessage(c, "Member removed")
}
