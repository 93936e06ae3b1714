package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestBindAndValidateRejectsMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))

	var payload struct {
		Name string `json:"name" validate:"required"`
	}
	require.False(t, bindAndValidate(c, &payload))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestBindAndValidateReportsMissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))

	var payload struct {
		Title string `json:"title" validate:"required"`
	}
	require.False(t, bindAndValidate(c, &payload))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Contains(t, recorder.Body.String(), "required")
}

func TestBindAndValidateAcceptsValidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"ok"}`))

	var payload struct {
		Title string `json:"title" validate:"required"`
	}
	require.True(t, bindAndValidate(c, &payload))
}

func TestParseIntQueryFallsBack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=abc&page_size=5", nil)

	page, size := pageParams(c)
	require.Equal(t, 1, page)
	require.Equal(t, 5, size)
}
