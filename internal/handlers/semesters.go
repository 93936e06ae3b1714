package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campushub/mentorhub/internal/models"
	"github.com/campushub/mentorhub/pkg/response"
)

// SemesterHandler lists the academic terms recruitments attach to.
type SemesterHandler struct {
	db *gorm.DB
}

// NewSemesterHandler constructs a semester handler.
func NewSemesterHandler(db *gorm.DB) (*SemesterHandler, error) {
	if db == nil {
		return nil, errors.New("semester handler: db is required")
	}
	return &SemesterHandler{db: db}, nil
}

// List returns every semester, most recent year first.
func (h *SemesterHandler) List(c *gin.Context) {
	var rows []models.Semester
	if err := h.db.WithContext(requestContext(c)).
		Order("year DESC, term ASC").
		Find(&rows).Error; err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}
