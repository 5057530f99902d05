// Package identity adapts an authentication backend: either the local
// user table or a remote GoTrue-style auth service.
package identity

import (
	"context"
	"time"

	"healthbridge-server/internal/models"
)

// Session is the result of a successful sign-in or refresh. The tokens are
// opaque to the rest of the app.
type Session struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	ExpiresAt    time.Time            `json:"expiresAt"`
	User         models.UserSanitized `json:"user"`
}

// SignUpInput is what a new account needs.
type SignUpInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName" binding:"required"`
}

// Provider is an identity backend.
//
// SignUp fails with a Conflict for a taken email; SignIn, Refresh and
// CurrentUser fail with Unauthorized for bad credentials or tokens. SignOut
// is idempotent: unknown or already revoked tokens are not an error.
type Provider interface {
	SignUp(ctx context.Context, in SignUpInput) (*models.UserSanitized, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken, refreshToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*models.UserSanitized, error)
}
