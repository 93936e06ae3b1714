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

// ChatHandler exposes the per-matching question/answer log over HTTP.
type ChatHandler struct {
	service *services.ChatService
}

// NewChatHandler constructs a chat handler.
func NewChatHandler(db *gorm.DB, alarms *services.AlarmService) (*ChatHandler, error) {
	service, err := services.NewChatService(db, alarms)
	if err != nil {
		return nil, err
	}
	return &ChatHandler{service: service}, nil
}

type postMessageRequest struct {
	Type    string `json:"type" validate:"required,oneof=QUESTION ANSWER"`
	Content string `json:"content" validate:"required,max=4000"`
}

// Post appends a message to the matching's chat log.
func (h *ChatHandler) Post(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountIDKey)
	if accountID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload postMessageRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	message, err := h.service.PostMessage(requestContext(c), services.PostMessageInput{
		MatchingID: strings.TrimSpace(c.Param("id")),
		SenderID:   accountID,
		Type:       payload.Type,
		Content:    payload.Content,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, message)
}

// History returns a page of the matching's chat log in posting order.
func (h *ChatHandler) History(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountIDKey)
	if accountID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, size := pageParams(c)
	rows, total, err := h.service.History(requestContext(c), services.HistoryInput{
		MatchingID: strings.TrimSpace(c.Param("id")),
		AccountID:  accountID,
		IsAdmin:    c.GetString(middleware.CtxRoleKey) == models.RoleAdmin,
		Page:       page,
		Size:       size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, rows, response.NewMeta(page, size, total))
}
