package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	groupdomain "github.com/savingsapp/groupservice/internal/group/domain"
)

type createGroupRequest struct {
	Name                    string     `json:"name" binding:"required,min=3,max=100"`
	Description             string     `json:"description" binding:"omitempty,max=500"`
	ContributionAmountCents int64      `json:"contribution_amount_cents" binding:"required,gt=0"`
	Currency                string     `json:"currency" binding:"required,len=3"`
	CycleDurationMonths     int        `json:"cycle_duration_months" binding:"required,min=1,max=12"`
	MaxMembers              int        `json:"max_members" binding:"required,min=2,max=50"`
	StartDate               *time.Time `json:"start_date"`
}

type updateGroupRequest struct {
	Name                    *string    `json:"name" binding:"omitempty,min=3,max=100"`
	Description             *string    `json:"description" binding:"omitempty,max=500"`
	ContributionAmountCents *int64     `json:"contribution_amount_cents" binding:"omitempty,gt=0"`
	Currency                *string    `json:"currency" binding:"omitempty,len=3"`
	CycleDurationMonths     *int       `json:"cycle_duration_months" binding:"omitempty,min=1,max=12"`
	StartDate               *time.Time `json:"start_date"`
}

type respondToJoinRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

func (s *Server) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.groupSvc.Create(c.Request.Context(), groupdomain.CreateGroupRequest{
		Name:                    req.Name,
		Description:             req.Description,
		ContributionAmountCents: req.ContributionAmountCents,
		Currency:                req.Currency,
		CycleDurationMonths:     req.CycleDurationMonths,
		MaxMembers:              req.MaxMembers,
		StartDate:               req.StartDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListGroups(c *gin.Context) {
	resp, err := s.groupSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetGroupByID(c *gin.Context) {
	resp, err := s.groupSvc.Get(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOrganizerGroups(c *gin.Context) {
	resp, err := s.groupSvc.ListByOrganizer(c.Request.Context(), c.Param("organizerId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateGroup(c *gin.Context) {
	var req updateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.groupSvc.Update(c.Request.Context(), c.Param("groupId"), groupdomain.UpdateGroupRequest{
		Name:                    req.Name,
		Description:             req.Description,
		ContributionAmountCents: req.ContributionAmountCents,
		Currency:                req.Currency,
		CycleDurationMonths:     req.CycleDurationMonths,
		StartDate:               req.StartDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteGroup(c *gin.Context) {
	if err := s.groupSvc.Delete(c.Request.Context(), c.Param("groupId")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) RequestJoin(c *gin.Context) {
	resp, err := s.groupSvc.RequestJoin(c.Request.Context(), groupdomain.RequestJoinRequest{
		GroupID:  c.Param("groupId"),
		UserName: strings.TrimSpace(c.Query("userName")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RespondToJoin(c *gin.Context) {
	var req respondToJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("approved", "required", "approved is required"))
		return
	}

	resp, err := s.groupSvc.RespondToJoin(c.Request.Context(), groupdomain.RespondToJoinRequest{
		GroupID:  c.Param("groupId"),
		UserID:   c.Param("userId"),
		Approved: *req.Approved,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AssignNextRecipient(c *gin.Context) {
	resp, err := s.groupSvc.AssignNextRecipient(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CloseGroup(c *gin.Context) {
	resp, err := s.groupSvc.Close(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
