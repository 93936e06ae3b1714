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

// ApplicationHandler exposes HTTP endpoints for mentoring applications.
type ApplicationHandler struct {
	service *services.ApplicationService
}

// NewApplicationHandler constructs an application handler.
func NewApplicationHandler(db *gorm.DB, alarms *services.AlarmService) (*ApplicationHandler, error) {
	service, err := services.NewApplicationService(db, alarms)
	if err != nil {
		return nil, err
	}
	return &ApplicationHandler{service: service}, nil
}

type applyRequest struct {
	Role        string `json:"role" validate:"required,oneof=MENTOR MENTEE"`
	ApplyReason string `json:"apply_reason" validate:"max=4000"`
}

// Apply submits an application for the authenticated account.
func (h *ApplicationHandler) Apply(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountIDKey)
	if accountID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload applyRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	application, err := h.service.Apply(requestContext(c), services.ApplyInput{
		RecruitmentID: strings.TrimSpace(c.Param("id")),
		AccountID:     accountID,
		Role:          payload.Role,
		ApplyReason:   payload.ApplyReason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, application)
}

// Approve accepts an application.
func (h *ApplicationHandler) Approve(c *gin.Context) {
	application, err := h.service.Approve(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, application)
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=4000"`
}

// Reject declines an application with a reason.
func (h *ApplicationHandler) Reject(c *gin.Context) {
	var payload rejectRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	application, err := h.service.Reject(requestContext(c), strings.TrimSpace(c.Param("id")), payload.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, application)
}

// Cancel withdraws the authenticated account's own application.
func (h *ApplicationHandler) Cancel(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountIDKey)
	if accountID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	application, err := h.service.Cancel(requestContext(c), strings.TrimSpace(c.Param("id")), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, application)
}

// Get returns one application to its owner or an administrator.
func (h *ApplicationHandler) Get(c *gin.Context) {
	application, err := h.service.Get(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	if application.AccountID != c.GetString(middleware.CtxAccountIDKey) &&
		c.GetString(middleware.CtxRoleKey) != models.RoleAdmin {
		response.Error(c, appErrors.NewAuthorization("application belongs to another account"))
		return
	}
	response.Success(c, http.StatusOK, application)
}

// ListByRecruitment returns a page of a recruitment's applications.
func (h *ApplicationHandler) ListByRecruitment(c *gin.Context) {
	page, size := pageParams(c)

	rows, total, err := h.service.ListByRecruitment(requestContext(c), services.ListApplicationsInput{
		RecruitmentID: strings.TrimSpace(c.Param("id")),
		Role:          strings.TrimSpace(c.Query("role")),
		Status:        strings.TrimSpace(c.Query("status")),
		Page:          page,
		Size:          size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, rows, response.NewMeta(page, size, total))
}

// ListMine returns every application submitted by the authenticated account.
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountIDKey)
	if accountID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	rows, err := h.service.ListByAccount(requestContext(c), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}
