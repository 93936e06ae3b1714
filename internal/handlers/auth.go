package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	iauth "github.com/campushub/mentorhub/internal/auth"
	"github.com/campushub/mentorhub/internal/middleware"
	"github.com/campushub/mentorhub/internal/models"
	appErrors "github.com/campushub/mentorhub/pkg/errors"
	"github.com/campushub/mentorhub/pkg/response"
)

// AuthHandler authenticates accounts and issues access tokens.
type AuthHandler struct {
	db  *gorm.DB
	jwt *iauth.JWTService
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(db *gorm.DB, jwt *iauth.JWTService) (*AuthHandler, error) {
	if db == nil {
		return nil, errors.New("auth handler: db is required")
	}
	if jwt == nil {
		return nil, errors.New("auth handler: jwt service is required")
	}
	return &AuthHandler{db: db, jwt: jwt}, nil
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login exchanges valid credentials for a signed access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var payload loginRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	var account models.Account
	err := h.db.WithContext(requestContext(c)).
		Where("username = ?", strings.TrimSpace(payload.Username)).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, appErrors.ErrInvalidCredentials)
			return
		}
		response.Error(c, err)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(payload.Password)) != nil {
		response.Error(c, appErrors.ErrInvalidCredentials)
		return
	}

	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		AccountID: account.ID,
		Role:      account.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"account": gin.H{
			"id":           account.ID,
			"username":     account.Username,
			"display_name": account.DisplayName,
			"role":         account.Role,
		},
	})
}

// Me returns the authenticated account's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountIDKey)
	if accountID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var account models.Account
	err := h.db.WithContext(requestContext(c)).First(&account, "id = ?", accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, account)
}
