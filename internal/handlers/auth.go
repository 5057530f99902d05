package handlers

import (
	"healthbridge-server/internal/config"
	"healthbridge-server/internal/identity"
	"healthbridge-server/internal/middleware"
	"healthbridge-server/internal/scheduler"
	"healthbridge-server/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const refreshCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	Provider  identity.Provider
	Scheduler *scheduler.ReminderScheduler
	Cfg       *config.Config
	Log       *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(provider identity.Provider, sched *scheduler.ReminderScheduler, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Provider: provider, Scheduler: sched, Cfg: cfg, Log: log.Named("auth")}
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req identity.SignUpInput
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.Provider.SignUp(c.Request.Context(), req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Created(c, "User registered successfully", user)
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	session, err := h.Provider.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	h.setRefreshCookie(c, session.RefreshToken)
	utils.Success(c, "Login successful", session)
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken exchanges a refresh token, from the cookie or the body, for a new session.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token := h.refreshToken(c)
	if token == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	session, err := h.Provider.Refresh(c.Request.Context(), token)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	h.setRefreshCookie(c, session.RefreshToken)
	utils.Success(c, "Access token refreshed successfully", session)
}

// Logout revokes the session and stops the user's pending reminder notifications.
func (h *AuthHandler) Logout(c *gin.Context) {
	err := h.Provider.SignOut(c.Request.Context(), middleware.GetAccessTokenFromContext(c), h.refreshToken(c))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	if userID, ok := middleware.GetUserIDFromContext(c); ok && h.Scheduler != nil {
		h.Scheduler.Cancel(userID)
	}

	// Clear the refresh token cookie
	c.SetCookie(refreshCookie, "", -1, "/", "", h.secureCookies(), true)
	utils.Success(c, "Logged out successfully", nil)
}

// GetProfile returns the authenticated user.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, err := h.Provider.CurrentUser(c.Request.Context(), middleware.GetAccessTokenFromContext(c))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Profile fetched successfully", user)
}

func (h *AuthHandler) refreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshCookie); err == nil && token != "" {
		return token
	}
	var req RefreshTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.Log.Debug("refresh token body ignored", zap.Error(err))
		}
	}
	return req.RefreshToken
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	if token == "" {
		return
	}
	// HTTP-only, scoped to the current domain
	maxAge := h.Cfg.Identity.JWTRefreshExpirationHours * 60 * 60
	c.SetCookie(refreshCookie, token, maxAge, "/", "", h.secureCookies(), true)
}

func (h *AuthHandler) secureCookies() bool {
	return h.Cfg.Environment != "development"
}
