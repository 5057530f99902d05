package settings

import (
	"context"
	"testing"
	"time"

	"healthbridge-server/internal/apperr"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *Service) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewService(NewRedisKV(client), zap.NewNop())
}

func TestService_NotificationPreferences_Defaults(t *testing.T) {
	_, svc := setupRedis(t)

	p, err := svc.NotificationPreferences(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, DefaultNotificationPreferences(), p)
	assert.Equal(t, 15, p.Timing.BeforeDose)
	assert.Equal(t, "22:00", p.QuietHours.Start)
}

func TestService_SaveNotificationPreferences(t *testing.T) {
	mr, svc := setupRedis(t)
	ctx := context.Background()

	p := DefaultNotificationPreferences()
	p.Timing.BeforeDose = 5
	p.Methods.Email = true
	_, err := svc.SaveNotificationPreferences(ctx, "u1", p)
	require.NoError(t, err)
	assert.True(t, mr.Exists("settings:u1:medication-notifications"))

	got, err := svc.NotificationPreferences(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	other, err := svc.NotificationPreferences(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 15, other.Timing.BeforeDose)

	p.QuietHours.Start = "late"
	_, err = svc.SaveNotificationPreferences(ctx, "u1", p)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestService_CorruptPreferencesFallBack(t *testing.T) {
	mr, svc := setupRedis(t)
	require.NoError(t, mr.Set("settings:u1:medication-notifications", "{not json"))

	p, err := svc.NotificationPreferences(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, DefaultNotificationPreferences(), p)
}

func TestService_Language(t *testing.T) {
	_, svc := setupRedis(t)
	ctx := context.Background()

	lang, err := svc.Language(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)

	lang, err = svc.SetLanguage(ctx, "u1", "pt-br")
	require.NoError(t, err)
	assert.Equal(t, "pt-BR", lang)

	lang, err = svc.Language(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "pt-BR", lang)

	_, err = svc.SetLanguage(ctx, "u1", "???")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	require.NoError(t, svc.Reset(ctx, "u1"))
	lang, err = svc.Language(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)
}

func TestService_RedisDown(t *testing.T) {
	mr, svc := setupRedis(t)
	mr.Close()

	_, err := svc.NotificationPreferences(context.Background(), "u1")
	require.Error(t, err)
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	_, err := kv.Get(ctx, "a")
	require.ErrorIs(t, err, ErrMiss)
	require.NoError(t, kv.Set(ctx, "a", "1"))
	v, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	require.NoError(t, kv.Delete(ctx, "a"))
	_, err = kv.Get(ctx, "a")
	require.ErrorIs(t, err, ErrMiss)
}

func TestNotificationPreferences_InQuietHours(t *testing.T) {
	at := func(clock string) time.Time {
		v, _ := time.Parse("15:04", clock)
		return v
	}
	overnight := DefaultNotificationPreferences()
	daytime := DefaultNotificationPreferences()
	daytime.QuietHours.Start, daytime.QuietHours.End = "13:00", "15:00"
	off := DefaultNotificationPreferences()
	off.QuietHours.Enabled = false

	cases := []struct {
		name  string
		prefs NotificationPreferences
		clock string
		want  bool
	}{
		{"overnight late evening", overnight, "23:30", true},
		{"overnight early morning", overnight, "06:59", true},
		{"overnight end bound", overnight, "07:00", true},
		{"overnight daytime", overnight, "12:00", false},
		{"overnight just before start", overnight, "21:59", false},
		{"daytime inside", daytime, "14:00", true},
		{"daytime outside", daytime, "16:00", false},
		{"disabled", off, "23:30", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.prefs.InQuietHours(at(tc.clock)))
		})
	}
}
