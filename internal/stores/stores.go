// Package stores holds the per-user domain state: appointments, medications,
// emergency data, voice conversations and health insights.
//
// Every store is an explicit object built with its seed data, a logger and a
// clock. Stores are safe for concurrent use and hand out copies of their state.
package stores

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options carries the collaborators shared by all stores.
type Options struct {
	Now      func() time.Time
	Log      *zap.Logger
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func newID() string {
	return uuid.NewString()
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
