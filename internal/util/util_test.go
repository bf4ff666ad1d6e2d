package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"splitbill_backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		ErrSelfPaymentRequest:          http.StatusBadRequest,
		model.ErrInvalidPaymentStatus:  http.StatusBadRequest,
		ErrInvalidCredentials:          http.StatusUnauthorized,
		ErrNotFriends:                  http.StatusForbidden,
		ErrPaymentRequestNotFound:      http.StatusNotFound,
		ErrInvalidTransition:           http.StatusConflict,
		ErrLastAdmin:                   http.StatusConflict,
		ErrInvitationExpired:           http.StatusGone,
		errors.New("connection reset"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusFor(err), err.Error())
	}

	wrapped := fmt.Errorf("user 5: %w", ErrNotFriends)
	assert.Equal(t, http.StatusForbidden, StatusFor(wrapped))
}

func TestHandleServiceError_WritesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleServiceError(c, ErrInvitationUsed)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, ErrInvitationUsed.Error(), resp.Message)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	HandleServiceError(c, errors.New("db down"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{BaseModel: model.BaseModel{ID: 42}, Email: "a@example.com"}

	token, err := GenerateJWT(user, "secret-one", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret-one")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)

	_, err = ParseJWT(token, "secret-two")
	assert.Error(t, err)

	expired, err := GenerateJWT(user, "secret-one", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret-one")
	assert.Error(t, err)
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, "USD", NormalizeCurrency(" usd "))
	assert.Equal(t, "EUR", NormalizeCurrency("EUR"))
	assert.Equal(t, "", NormalizeCurrency("US"))
	assert.Equal(t, "", NormalizeCurrency("U5D"))
	assert.Equal(t, "", NormalizeCurrency(""))
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%alice%", ContainsPattern("alice"))
	assert.Equal(t, `%100\%%`, ContainsPattern("100%"))
	assert.Equal(t, `%a\_b%`, ContainsPattern("a_b"))
	assert.Equal(t, `%c:\\dir%`, ContainsPattern(`c:\dir`))
}

func TestPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name                string
		query               string
		page, limit, offset int
	}{
		{"clamps limit", "page=3&limit=500", 3, MaxPageSize, 2 * MaxPageSize},
		{"defaults", "", 1, DefaultPageSize, 0},
		{"negative page", "page=-1", 1, DefaultPageSize, 0},
		{"explicit", "page=2&limit=10", 2, 10, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)

			page, limit, offset := Pagination(c)
			assert.Equal(t, tc.page, page)
			assert.Equal(t, tc.limit, limit)
			assert.Equal(t, tc.offset, offset)
		})
	}
}

func TestValidateMimeType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n" + "rest of the image")
	mime, err := ValidateMimeType(bytes.NewReader(png), AllowedReceiptMimeTypes)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, err = ValidateMimeType(bytes.NewReader([]byte("#!/bin/sh\necho hi")), AllowedReceiptMimeTypes)
	assert.ErrorIs(t, err, ErrInvalidFile)

	assert.True(t, HasAllowedExtension(".JPG", AllowedReceiptExtensions))
	assert.False(t, HasAllowedExtension(".exe", AllowedReceiptExtensions))
}
