package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campushub/mentorhub/internal/middleware"
	"github.com/campushub/mentorhub/internal/models"
	"github.com/campushub/mentorhub/internal/services"
	appErrors "github.com/campushub/mentorhub/pkg/errors"
	"github.com/campushub/mentorhub/pkg/response"
)

// MatchingHandler exposes HTTP endpoints for pairing applications.
type MatchingHandler struct {
	service *services.MatchingService
}

// NewMatchingHandler constructs a matching handler.
func NewMatchingHandler(db *gorm.DB, alarms *services.AlarmService) (*MatchingHandler, error) {
	service, err := services.NewMatchingService(db, alarms)
	if err != nil {
		return nil, err
	}
	return &MatchingHandler{service: service}, nil
}

type matchRequest struct {
	RecruitmentID       string `json:"recruitment_id"`
	MentorApplicationID string `json:"mentor_application_id" validate:"required"`
	MenteeApplicationID string `json:"mentee_application_id" validate:"required"`
}

// Match pairs an approved mentor application with an approved mentee application.
func (h *MatchingHandler) Match(c *gin.Context) {
	var payload matchRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	matching, err := h.service.Match(requestContext(c), services.MatchInput{
		RecruitmentID:       payload.RecruitmentID,
		MentorApplicationID: payload.MentorApplicationID,
		MenteeApplicationID: payload.MenteeApplicationID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, matching)
}

// Dissolve ends an active matching.
func (h *MatchingHandler) Dissolve(c *gin.Context) {
	matching, err := h.service.Dissolve(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, matching)
}

// Get returns one matching to a matched party or an administrator.
func (h *MatchingHandler) Get(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountIDKey)
	if accountID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	matching, err := h.service.GetAuthorized(requestContext(c),
		strings.TrimSpace(c.Param("id")),
		accountID,
		c.GetString(middleware.CtxRoleKey) == models.RoleAdmin,
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, matching)
}

// List returns the authenticated account's matchings; administrators see
// every matching with ?all=1 plus optional recruitment/status filters.
func (h *MatchingHandler) List(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountIDKey)
	if accountID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	isAdmin := c.GetString(middleware.CtxRoleKey) == models.RoleAdmin
	if isAdmin && c.Query("all") == "1" {
		page, size := pageParams(c)
		rows, total, err := h.service.List(requestContext(c), services.ListMatchingsInput{
			RecruitmentID: strings.TrimSpace(c.Query("recruitment_id")),
			Status:        strings.TrimSpace(c.Query("status")),
			Page:          page,
			Size:          size,
		})
		if err != nil {
			response.Error(c, err)
			return
		}
		response.SuccessWithMeta(c, http.StatusOK, rows, response.NewMeta(page, size, total))
		return
	}

	rows, err := h.service.ListForAccount(requestContext(c), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}
