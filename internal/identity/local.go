package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"healthbridge-server/internal/apperr"
	"healthbridge-server/internal/config"
	"healthbridge-server/internal/models"
	"healthbridge-server/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LocalProvider keeps users and refresh tokens in the application database
// and issues HS256 JWTs.
type LocalProvider struct {
	db  *gorm.DB
	cfg config.IdentityConfig
	now func() time.Time
	log *zap.Logger
}

// NewLocalProvider creates a provider on db.
func NewLocalProvider(db *gorm.DB, cfg config.IdentityConfig, log *zap.Logger) *LocalProvider {
	return &LocalProvider{db: db, cfg: cfg, now: time.Now, log: log.Named("identity.local")}
}

func (p *LocalProvider) SignUp(ctx context.Context, in SignUpInput) (*models.UserSanitized, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	db := p.db.WithContext(ctx)

	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, apperr.Conflict("user with this email already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.KindInternal, err, "database error")
	}

	user := models.User{Email: email, FullName: in.FullName, Role: models.RolePatient}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to hash password")
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to create user")
	}
	p.log.Info("user registered", zap.String("user_id", user.ID))
	u := user.Sanitize()
	return &u, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	err := p.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "database error")
	}
	if !user.CheckPassword(password) {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	return p.issue(ctx, &user)
}

// Refresh rotates refreshToken: the old token is revoked and a new pair issued.
func (p *LocalProvider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := utils.ValidateToken(refreshToken, p.cfg.JWTRefreshSecret)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, err, "invalid refresh token")
	}
	db := p.db.WithContext(ctx)

	var stored models.RefreshToken
	err = db.Where("token_hash = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?",
		models.HashRefreshToken(refreshToken), claims.UserID, false, p.now()).
		First(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("refresh token not found, expired, or revoked")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "database error checking refresh token")
	}

	var user models.User
	if err := db.First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("user no longer exists")
		}
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to find user")
	}

	if err := db.Model(&models.RefreshToken{}).Where("id = ?", stored.ID).Update("is_revoked", true).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to revoke refresh token")
	}
	return p.issue(ctx, &user)
}

func (p *LocalProvider) SignOut(ctx context.Context, _ string, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	res := p.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ? AND is_revoked = ?", models.HashRefreshToken(refreshToken), false).
		Updates(map[string]any{"is_revoked": true, "expires_at": p.now()})
	if res.Error != nil {
		return apperr.Wrap(apperr.KindInternal, res.Error, "failed to revoke refresh token")
	}
	return nil
}

func (p *LocalProvider) CurrentUser(ctx context.Context, accessToken string) (*models.UserSanitized, error) {
	claims, err := utils.ValidateToken(accessToken, p.cfg.JWTSecret)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, err, "invalid access token")
	}
	var user models.User
	if err := p.db.WithContext(ctx).First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("user no longer exists")
		}
		return nil, apperr.Wrap(apperr.KindInternal, err, "database error")
	}
	u := user.Sanitize()
	return &u, nil
}

func (p *LocalProvider) issue(ctx context.Context, user *models.User) (*Session, error) {
	pair, err := utils.GenerateTokens(user, p.cfg, p.now())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to generate tokens")
	}
	rt := models.NewRefreshToken(user.ID, pair.RefreshToken, pair.RefreshExpiresAt)
	if err := p.db.WithContext(ctx).Create(&rt).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to store refresh token")
	}
	return &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExpiresAt,
		User:         user.Sanitize(),
	}, nil
}
