package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/campushub/mentorhub/internal/auth"
	"github.com/campushub/mentorhub/internal/middleware"
	"github.com/campushub/mentorhub/internal/notifications"
	"github.com/campushub/mentorhub/internal/services"
	appErrors "github.com/campushub/mentorhub/pkg/errors"
	"github.com/campushub/mentorhub/pkg/response"
)

// AlarmHandler exposes HTTP endpoints for workflow alarms.
type AlarmHandler struct {
	service *services.AlarmService
	hub     *notifications.Hub
	jwt     *iauth.JWTService
}

// NewAlarmHandler constructs an alarm handler on top of the shared alarm
// dispatcher. The caller owns the dispatcher's lifecycle (retry sweep
// included); the handler only serves its HTTP surface.
func NewAlarmHandler(service *services.AlarmService, hub *notifications.Hub, jwt *iauth.JWTService) (*AlarmHandler, error) {
	if service == nil {
		return nil, errors.New("alarm handler: service is required")
	}
	return &AlarmHandler{service: service, hub: hub, jwt: jwt}, nil
}

// List returns a page of the authenticated account's alarms.
func (h *AlarmHandler) List(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountIDKey)
	if accountID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, size := pageParams(c)
	rows, total, err := h.service.List(requestContext(c), services.ListAlarmsInput{
		AccountID: accountID,
		Page:      page,
		Size:      size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, rows, response.NewMeta(page, size, total))
}

// UnreadCount returns the number of unread alarms.
func (h *AlarmHandler) UnreadCount(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountIDKey)
	if accountID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(requestContext(c), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread": count})
}

// MarkRead flags one alarm as read.
func (h *AlarmHandler) MarkRead(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountIDKey)
	if accountID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := h.service.MarkRead(requestContext(c), accountID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"read": true})
}

// MarkAllRead flags every alarm as read.
func (h *AlarmHandler) MarkAllRead(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountIDKey)
	if accountID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.MarkAllRead(requestContext(c), accountID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// Delete removes one alarm.
func (h *AlarmHandler) Delete(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountIDKey)
	if accountID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := h.service.Delete(requestContext(c), accountID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// DeleteAll removes every alarm owned by the account.
func (h *AlarmHandler) DeleteAll(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountIDKey)
	if accountID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.DeleteAll(requestContext(c), accountID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Stream upgrades the connection to a WebSocket carrying alarm events. The
// browser WebSocket API cannot set headers, so the token also rides a query
// parameter.
func (h *AlarmHandler) Stream(c *gin.Context) {
	if h.jwt == nil || h.hub == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		authz := c.GetHeader("Authorization")
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			token = strings.TrimSpace(authz[7:])
		}
	}
	if token == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	h.hub.Serve(claims.AccountID, c.Writer, c.Request)
}
