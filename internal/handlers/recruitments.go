package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campushub/mentorhub/internal/middleware"
	"github.com/campushub/mentorhub/internal/services"
	"github.com/campushub/mentorhub/pkg/response"
)

// RecruitmentHandler exposes HTTP endpoints for recruitment administration.
type RecruitmentHandler struct {
	service *services.RecruitmentService
}

// NewRecruitmentHandler constructs a recruitment handler.
func NewRecruitmentHandler(db *gorm.DB) (*RecruitmentHandler, error) {
	service, err := services.NewRecruitmentService(db)
	if err != nil {
		return nil, err
	}
	return &RecruitmentHandler{service: service}, nil
}

type createRecruitmentRequest struct {
	Title          string    `json:"title" validate:"required,max=255"`
	Description    string    `json:"description"`
	SemesterID     string    `json:"semester_id"`
	RecruitStartAt time.Time `json:"recruit_start_at" validate:"required"`
	RecruitEndAt   time.Time `json:"recruit_end_at" validate:"required"`
}

// Create registers a new recruitment in draft.
func (h *RecruitmentHandler) Create(c *gin.Context) {
	var payload createRecruitmentRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	recruitment, err := h.service.Create(requestContext(c), services.CreateRecruitmentInput{
		Title:          payload.Title,
		Description:    payload.Description,
		SemesterID:     payload.SemesterID,
		RecruitStartAt: payload.RecruitStartAt,
		RecruitEndAt:   payload.RecruitEndAt,
		CreatedBy:      c.GetString(middleware.CtxAccountIDKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, recruitment)
}

// Open publishes a draft recruitment.
func (h *RecruitmentHandler) Open(c *gin.Context) {
	recruitment, err := h.service.Open(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, recruitment)
}

// Close ends a recruitment's application intake.
func (h *RecruitmentHandler) Close(c *gin.Context) {
	recruitment, err := h.service.Close(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, recruitment)
}

// Get returns one recruitment.
func (h *RecruitmentHandler) Get(c *gin.Context) {
	recruitment, err := h.service.Get(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, recruitment)
}

// List returns a page of recruitments, optionally filtered by status.
func (h *RecruitmentHandler) List(c *gin.Context) {
	page, size := pageParams(c)

	rows, total, err := h.service.List(requestContext(c), services.ListRecruitmentsInput{
		Status: strings.TrimSpace(c.Query("status")),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, rows, response.NewMeta(page, size, total))
}
