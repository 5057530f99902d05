package stores

import (
	"context"
	"sync"
	"time"

	"healthbridge-server/internal/apperr"
	"healthbridge-server/internal/models"
)

// Locator answers "where is the user now".
type Locator interface {
	Locate(ctx context.Context) (models.Location, error)
}

// Device geolocation error codes relayed by the client.
const (
	GeoPermissionDenied    = "permission-denied"
	GeoPositionUnavailable = "position-unavailable"
	GeoTimeout             = "timeout"
)

// DeviceLocator is a Locator fed by position reports from the user's device.
// Locate returns the last fix when it is younger than MaxAge, otherwise it
// waits up to Timeout for a fresh report.
type DeviceLocator struct {
	Timeout time.Duration
	MaxAge  time.Duration

	mu      sync.Mutex
	now     func() time.Time
	last    *models.Location
	lastErr error
	changed chan struct{}
}

// NewDeviceLocator creates a locator with the given timeout and max age.
func NewDeviceLocator(timeout, maxAge time.Duration, now func() time.Time) *DeviceLocator {
	if now == nil {
		now = time.Now
	}
	return &DeviceLocator{
		Timeout: timeout,
		MaxAge:  maxAge,
		now:     now,
		changed: make(chan struct{}),
	}
}

// Report records a position fix from the device.
func (l *DeviceLocator) Report(lat, lng, accuracy float64) (models.Location, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return models.Location{}, apperr.Validation("coordinates out of range: %f,%f", lat, lng)
	}
	loc := models.Location{Lat: lat, Lng: lng, Accuracy: accuracy, ReportedAt: l.now()}

	l.mu.Lock()
	l.last = &loc
	l.lastErr = nil
	l.broadcastLocked()
	l.mu.Unlock()
	return loc, nil
}

// ReportError records a geolocation failure from the device and wakes waiters.
func (l *DeviceLocator) ReportError(code string) error {
	var err error
	switch code {
	case GeoPermissionDenied:
		err = apperr.PermissionDenied("location access denied")
	case GeoPositionUnavailable, GeoTimeout:
		err = apperr.New(apperr.KindNetwork, "location unavailable: %s", code)
	default:
		err = apperr.Unsupported("geolocation failed: %s", code)
	}

	l.mu.Lock()
	l.lastErr = err
	l.broadcastLocked()
	l.mu.Unlock()
	return err
}

// Locate implements Locator.
func (l *DeviceLocator) Locate(ctx context.Context) (models.Location, error) {
	l.mu.Lock()
	if l.last != nil && l.now().Sub(l.last.ReportedAt) <= l.MaxAge {
		loc := *l.last
		l.mu.Unlock()
		return loc, nil
	}
	if apperr.Is(l.lastErr, apperr.KindPermissionDenied) {
		err := l.lastErr
		l.mu.Unlock()
		return models.Location{}, err
	}
	wait := l.changed
	l.mu.Unlock()

	timer := time.NewTimer(l.Timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return models.Location{}, ctx.Err()
	case <-timer.C:
		return models.Location{}, apperr.New(apperr.KindNetwork, "timed out waiting for a location fix")
	case <-wait:
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastErr != nil {
		return models.Location{}, l.lastErr
	}
	return *l.last, nil
}

func (l *DeviceLocator) broadcastLocked() {
	close(l.changed)
	l.changed = make(chan struct{})
}
