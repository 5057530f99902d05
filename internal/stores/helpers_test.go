package stores

import (
	"sync"
	"testing"
	"time"

	"healthbridge-server/internal/apperr"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// 2026-03-10 12:00 UTC, a Tuesday.
var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testOptions(clock *fakeClock) Options {
	return Options{Now: clock.Now, Log: zap.NewNop(), Location: time.UTC}
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }
