package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"healthbridge-server/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUserJSON = `{"id":"9b2f","email":"alex@example.com","created_at":"2026-03-01T10:00:00Z","user_metadata":{"full_name":"Alex Doe"}}`

func setupRemote(t *testing.T, handler http.HandlerFunc) *RemoteProvider {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRemoteProvider(srv.URL+"/", "anon-key", zap.NewNop())
}

func TestRemoteProvider_SignIn(t *testing.T) {
	p := setupRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alex@example.com", body["email"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"expires_at":1773144000,"user":` + testUserJSON + `}`))
	})

	s, err := p.SignIn(context.Background(), "Alex@Example.com", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, "at", s.AccessToken)
	assert.Equal(t, "rt", s.RefreshToken)
	assert.Equal(t, time.Unix(1773144000, 0), s.ExpiresAt)
	assert.Equal(t, "9b2f", s.User.ID)
	assert.Equal(t, "Alex Doe", s.User.FullName)
}

func TestRemoteProvider_SignIn_InvalidGrant(t *testing.T) {
	p := setupRemote(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	})

	_, err := p.SignIn(context.Background(), "alex@example.com", "nope")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestRemoteProvider_Refresh(t *testing.T) {
	p := setupRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at2","refresh_token":"rt2","expires_in":60,"user":` + testUserJSON + `}`))
	})

	s, err := p.Refresh(context.Background(), "rt")
	require.NoError(t, err)
	assert.Equal(t, "rt2", s.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Minute), s.ExpiresAt, 5*time.Second)

	_, err = p.Refresh(context.Background(), "")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestRemoteProvider_SignUp(t *testing.T) {
	p := setupRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		var body struct {
			Email string            `json:"email"`
			Data  map[string]string `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		if body.Email == "taken@example.com" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":422,"msg":"User already registered"}`))
			return
		}
		assert.Equal(t, "Alex Doe", body.Data["full_name"])
		_, _ = w.Write([]byte(testUserJSON))
	})

	u, err := p.SignUp(context.Background(), SignUpInput{Email: "alex@example.com", Password: "supersecret", FullName: "Alex Doe"})
	require.NoError(t, err)
	assert.Equal(t, "9b2f", u.ID)

	_, err = p.SignUp(context.Background(), SignUpInput{Email: "taken@example.com", Password: "supersecret", FullName: "X"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "User already registered")
}

func TestRemoteProvider_SignOut(t *testing.T) {
	var calls atomic.Int32
	p := setupRemote(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/auth/v1/logout", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer live" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, p.SignOut(context.Background(), "live", "rt"))
	require.NoError(t, p.SignOut(context.Background(), "expired", "rt"))
	require.NoError(t, p.SignOut(context.Background(), "", "rt"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestRemoteProvider_CurrentUser(t *testing.T) {
	p := setupRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testUserJSON))
	})

	u, err := p.CurrentUser(context.Background(), "at")
	require.NoError(t, err)
	assert.Equal(t, "alex@example.com", u.Email)

	_, err = p.CurrentUser(context.Background(), "forged")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestRemoteProvider_ServerErrorIsRetriedThenNetwork(t *testing.T) {
	var calls atomic.Int32
	p := setupRemote(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := p.CurrentUser(context.Background(), "at")
	assert.Equal(t, apperr.KindNetwork, apperr.KindOf(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestRemoteProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	p := NewRemoteProvider(srv.URL, "anon-key", zap.NewNop())

	_, err := p.SignIn(context.Background(), "alex@example.com", "pw")
	assert.Equal(t, apperr.KindNetwork, apperr.KindOf(err))
}
