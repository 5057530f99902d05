package stores

import (
	"errors"
	"sync"
	"time"

	"healthbridge-server/internal/notify"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrRegistryClosed is returned by Registry.For after Close.
var ErrRegistryClosed = errors.New("stores: registry closed")

// Timing holds the simulated latencies and timers of the stores.
type Timing struct {
	AIDelay         time.Duration
	VoiceReplyDelay time.Duration
	Emergency       EmergencyTiming
	LocationTimeout time.Duration
	LocationMaxAge  time.Duration
}

// Workspace is one user's set of stores.
type Workspace struct {
	UserID       string
	Appointments *AppointmentStore
	Medications  *MedicationStore
	Emergency    *EmergencyStore
	Voice        *VoiceStore
	Insights     *HealthInsightsStore
	Location     *DeviceLocator
}

// Close stops the workspace's timers.
func (w *Workspace) Close() error {
	return w.Emergency.Close()
}

// RegistryConfig configures how workspaces are built.
type RegistryConfig struct {
	Timing   Timing
	Notifier notify.Notifier
	Doctors  *DoctorDirectory
	// Seed returns the initial content of a new workspace. Nil means DefaultSeed.
	Seed      func(now time.Time) Seed
	Responder Responder
	Options
}

// Registry hands out one lazily built Workspace per user.
type Registry struct {
	mu     sync.Mutex
	cfg    RegistryConfig
	spaces map[string]*Workspace
	closed bool
	log    *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	cfg.Options = cfg.Options.withDefaults()
	if cfg.Seed == nil {
		cfg.Seed = DefaultSeed
	}
	if cfg.Doctors == nil {
		cfg.Doctors = NewDoctorDirectory(DefaultDoctors())
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.LogNotifier{Log: cfg.Log}
	}
	return &Registry{
		cfg:    cfg,
		spaces: map[string]*Workspace{},
		log:    cfg.Log.Named("registry"),
	}
}

// Doctors returns the shared doctor directory.
func (r *Registry) Doctors() *DoctorDirectory {
	return r.cfg.Doctors
}

// For returns the workspace of userID, creating it on first use.
func (r *Registry) For(userID string) (*Workspace, error) {
	if userID == "" {
		return nil, errors.New("stores: empty user id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	if ws, ok := r.spaces[userID]; ok {
		return ws, nil
	}
	ws := r.build(userID)
	r.spaces[userID] = ws
	r.log.Info("workspace created", zap.String("user_id", userID))
	return ws, nil
}

// Each calls fn for every workspace created so far.
func (r *Registry) Each(fn func(*Workspace)) {
	r.mu.Lock()
	spaces := make([]*Workspace, 0, len(r.spaces))
	for _, ws := range r.spaces {
		spaces = append(spaces, ws)
	}
	r.mu.Unlock()
	for _, ws := range spaces {
		fn(ws)
	}
}

// Close closes every workspace. Later calls to For fail.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	var err error
	for _, ws := range r.spaces {
		err = multierr.Append(err, ws.Close())
	}
	return err
}

func (r *Registry) build(userID string) *Workspace {
	opts := r.cfg.Options
	opts.Log = r.cfg.Log.With(zap.String("user_id", userID))
	seed := r.cfg.Seed(opts.Now())
	t := r.cfg.Timing

	locator := NewDeviceLocator(t.LocationTimeout, t.LocationMaxAge, opts.Now)
	return &Workspace{
		UserID:       userID,
		Location:     locator,
		Appointments: NewAppointmentStore(seed.Appointments, r.cfg.Doctors, opts),
		Medications:  NewMedicationStore(seed.Medications, opts),
		Emergency: NewEmergencyStore(seed.Emergency, EmergencyDeps{
			UserID:   userID,
			Locator:  locator,
			Sharer:   ContactSharer{UserID: userID, Notifier: r.cfg.Notifier},
			Notifier: r.cfg.Notifier,
			Timing:   t.Emergency,
		}, opts),
		Voice: NewVoiceStore(seed.VoiceSettings, VoiceDeps{
			Recognizer:    notify.RecognitionRelay{UserID: userID, Notifier: r.cfg.Notifier},
			Synthesizer:   notify.SpeechRelay{UserID: userID, Notifier: r.cfg.Notifier},
			Responder:     r.cfg.Responder,
			ResponseDelay: t.VoiceReplyDelay,
		}, opts),
		Insights: NewHealthInsightsStore(InsightsDeps{Delay: t.AIDelay}, opts),
	}
}
