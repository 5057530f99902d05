package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"healthbridge-server/internal/apperr"
	"healthbridge-server/internal/config"
	"healthbridge-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:       http.StatusBadRequest,
		apperr.KindUnauthorized:     http.StatusUnauthorized,
		apperr.KindPermissionDenied: http.StatusForbidden,
		apperr.KindNotFound:         http.StatusNotFound,
		apperr.KindConflict:         http.StatusConflict,
		apperr.KindNoSpeech:         http.StatusUnprocessableEntity,
		apperr.KindUnsupported:      http.StatusNotImplemented,
		apperr.KindNetwork:          http.StatusBadGateway,
		apperr.KindInternal:         http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusFor(kind), kind)
	}
}

func respond(err error) (*httptest.ResponseRecorder, *gin.Context) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	FromError(c, err)
	return w, c
}

func TestFromError(t *testing.T) {
	w, _ := respond(apperr.Conflict("%s is already the preferred pharmacy", "CVS"))
	require.Equal(t, http.StatusConflict, w.Code)
	var body ResponseData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "conflict", body.Code)
	assert.Equal(t, "CVS is already the preferred pharmacy", body.Error)

	// unclassified errors are logged, not echoed
	w, c := respond(errors.New("dial tcp 10.0.0.3:3306: connection refused"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
	assert.Len(t, c.Errors, 1)
}

func TestGenerateAndValidateTokens(t *testing.T) {
	cfg := config.IdentityConfig{
		JWTSecret:                 "access",
		JWTRefreshSecret:          "refresh",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 1,
	}
	user := &models.User{BaseModel: models.BaseModel{ID: "u1"}, Role: models.RolePatient}
	now := time.Now()

	pair, err := GenerateTokens(user, cfg, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), pair.AccessExpiresAt)

	claims, err := ValidateToken(pair.AccessToken, cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RolePatient, claims.Role)

	_, err = ValidateToken(pair.RefreshToken, cfg.JWTSecret)
	assert.Error(t, err)

	again, err := GenerateTokens(user, cfg, now)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, again.RefreshToken)

	expired, err := GenerateTokens(user, cfg, now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = ValidateToken(expired.RefreshToken, cfg.JWTRefreshSecret)
	assert.Error(t, err)
}
