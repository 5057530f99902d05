package identity

import (
	"context"
	"net/http"
	"strings"
	"time"

	"healthbridge-server/internal/apperr"
	"healthbridge-server/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// RemoteProvider delegates to a GoTrue-compatible auth service.
type RemoteProvider struct {
	http *resty.Client
	now  func() time.Time
	log  *zap.Logger
}

type remoteUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	CreatedAt    time.Time      `json:"created_at"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type remoteSession struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	User         *remoteUser `json:"user"`
}

// signup answers with either a session (autoconfirm) or the bare user.
type remoteSignUp struct {
	remoteUser
	User *remoteUser `json:"user"`
}

type remoteError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Msg         string `json:"msg"`
	Message     string `json:"message"`
}

func (e *remoteError) text(fallback string) string {
	for _, s := range []string{e.Description, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return fallback
}

// NewRemoteProvider creates a provider talking to baseURL with the public anon key.
func NewRemoteProvider(baseURL, anonKey string, log *zap.Logger) *RemoteProvider {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("apikey", anonKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &RemoteProvider{http: client, now: time.Now, log: log.Named("identity.remote")}
}

func (p *RemoteProvider) SignUp(ctx context.Context, in SignUpInput) (*models.UserSanitized, error) {
	var out remoteSignUp
	var failure remoteError
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"email":    strings.ToLower(strings.TrimSpace(in.Email)),
			"password": in.Password,
			"data":     map[string]string{"full_name": in.FullName},
		}).
		SetResult(&out).
		SetError(&failure).
		Post("/auth/v1/signup")
	if err := p.check(ctx, resp, err, &failure, "sign up"); err != nil {
		return nil, err
	}

	u := out.remoteUser
	if out.User != nil {
		u = *out.User
	}
	if u.ID == "" {
		return nil, apperr.New(apperr.KindInternal, "sign up: response carried no user")
	}
	p.log.Info("user registered", zap.String("user_id", u.ID))
	su := u.sanitize()
	return &su, nil
}

func (p *RemoteProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return p.token(ctx, "password", map[string]string{
		"email":    strings.ToLower(strings.TrimSpace(email)),
		"password": password,
	})
}

func (p *RemoteProvider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, apperr.Unauthorized("refresh token required")
	}
	return p.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

// SignOut revokes the session behind accessToken. An expired or unknown
// session is already signed out.
func (p *RemoteProvider) SignOut(ctx context.Context, accessToken, _ string) error {
	if accessToken == "" {
		return nil
	}
	var failure remoteError
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetError(&failure).
		Post("/auth/v1/logout")
	err = p.check(ctx, resp, err, &failure, "sign out")
	if apperr.Is(err, apperr.KindUnauthorized) || apperr.Is(err, apperr.KindNotFound) {
		return nil
	}
	return err
}

func (p *RemoteProvider) CurrentUser(ctx context.Context, accessToken string) (*models.UserSanitized, error) {
	if accessToken == "" {
		return nil, apperr.Unauthorized("access token required")
	}
	var u remoteUser
	var failure remoteError
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&u).
		SetError(&failure).
		Get("/auth/v1/user")
	if err := p.check(ctx, resp, err, &failure, "current user"); err != nil {
		return nil, err
	}
	su := u.sanitize()
	return &su, nil
}

func (p *RemoteProvider) token(ctx context.Context, grant string, body map[string]string) (*Session, error) {
	var out remoteSession
	var failure remoteError
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", grant).
		SetBody(body).
		SetResult(&out).
		SetError(&failure).
		Post("/auth/v1/token")
	if err := p.check(ctx, resp, err, &failure, grant); err != nil {
		return nil, err
	}
	if out.AccessToken == "" || out.User == nil {
		return nil, apperr.New(apperr.KindInternal, "%s: incomplete session in response", grant)
	}

	expires := p.now().Add(time.Duration(out.ExpiresIn) * time.Second)
	if out.ExpiresAt > 0 {
		expires = time.Unix(out.ExpiresAt, 0)
	}
	return &Session{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    expires,
		User:         out.User.sanitize(),
	}, nil
}

// check classifies a transport failure or a non-2xx answer.
func (p *RemoteProvider) check(ctx context.Context, resp *resty.Response, err error, failure *remoteError, op string) error {
	if err != nil {
		if ctxErr := context.Cause(ctx); ctxErr != nil {
			return apperr.Wrap(apperr.KindNetwork, ctxErr, "%s: request aborted", op)
		}
		p.log.Warn("auth service unreachable", zap.String("op", op), zap.Error(err))
		return apperr.Wrap(apperr.KindNetwork, err, "%s: auth service unreachable", op)
	}
	if resp.IsSuccess() {
		return nil
	}

	status := resp.StatusCode()
	msg := failure.text(http.StatusText(status))
	p.log.Info("auth service rejected request",
		zap.String("op", op),
		zap.Int("status_code", status),
		zap.String("msg", msg),
	)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.Unauthorized("%s", msg)
	case status == http.StatusBadRequest && op != "sign up":
		// GoTrue answers a wrong password or dead refresh token with 400 invalid_grant.
		return apperr.Unauthorized("%s", msg)
	case status == http.StatusBadRequest:
		return apperr.Validation("%s", msg)
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return apperr.Conflict("%s", msg)
	case status == http.StatusNotFound:
		return apperr.NotFound("%s", msg)
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return apperr.New(apperr.KindNetwork, "%s: auth service returned %d: %s", op, status, msg)
	default:
		return apperr.New(apperr.KindInternal, "%s: unexpected status %d: %s", op, status, msg)
	}
}

func (u remoteUser) sanitize() models.UserSanitized {
	name, _ := u.UserMetadata["full_name"].(string)
	return models.UserSanitized{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    name,
		Role:        models.RolePatient,
		PhoneNumber: u.Phone,
		CreatedAt:   u.CreatedAt,
	}
}

var _ Provider = (*RemoteProvider)(nil)
var _ Provider = (*LocalProvider)(nil)
