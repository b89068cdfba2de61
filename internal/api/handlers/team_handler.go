package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-tasks-api/internal/api/middleware"
	"github.com/Marga-Ghale/ora-tasks-api/internal/models"
	"github.com/Marga-Ghale/ora-tasks-api/internal/service"
)

// ============================================
// Team Handler
// ============================================

type TeamHandler struct {
	teamService service.TeamService
}

func (h *TeamHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	team, err := h.teamService.Create(c.Request.Context(), userID, &service.CreateTeamRequest{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, toTeamResponse(team))
}

func (h *TeamHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	teams, err := h.teamService.ListMine(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.TeamResponse, len(teams))
	for i, t := range teams {
		response[i] = toTeamResponse(t)
	}
	respond(c, http.StatusOK, response)
}

func (h *TeamHandler) Get(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	detail, err := h.teamService.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := toTeamResponse(detail.Team)
	response.Members = make([]models.TeamMemberResponse, len(detail.Members))
	for i, m := range detail.Members {
		response.Members[i] = toTeamMemberResponse(m)
	}
	respond(c, http.StatusOK, response)
}

func (h *TeamHandler) Delete(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.teamService.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}

	respondMessage(c, "Team deleted")
}

func (h *TeamHandler) AddMember(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	member, err := h.teamService.AddMember(c.Request.Context(), c.Param("id"), userID, &service.AddMemberRequest{
		UserID: req.UserID,
		Role:   req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, toTeamMemberResponse(member))
}

func (h *TeamHandler) UpdateMemberRole(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.teamService.UpdateMemberRole(c.Request.Context(), c.Param("id"), userID, c.Param("userId"), req.Role); err != nil {
		respondError(c, err)
		return
	}

	respondMessage(c, "Member role updated")
}

func (h *TeamHandler) RemoveMember(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.teamService.RemoveMember(c.Request.Context(), c.Param("id"), userID, c.Param("userId")); err != nil {
		respondError(c, err)
		return
	}

	respondMessage(c, "Member removed")
}
