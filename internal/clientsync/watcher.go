package clientsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"portal/internal/models"
	"portal/internal/observability"
)

// DefaultPollInterval is how often a watcher re-fetches when no event arrives.
const DefaultPollInterval = 5 * time.Second

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("clientsync: watcher already started")

// StatusWatcherConfig configures a StatusWatcher.
type StatusWatcherConfig struct {
	// Interval between polls. Zero uses DefaultPollInterval.
	Interval time.Duration
	// OnChange receives every snapshot the reducer accepts.
	OnChange func(p *models.Profile)
	// OnApproved is called once, the first time the profile may leave the
	// pending view. route is /app for approved students and /admin for admins.
	OnApproved func(p *models.Profile, route string)
	Logger     *slog.Logger
}

// StatusWatcher backs the pending-status view: it follows the caller's own
// profile through polling and the realtime stream and fires the redirect once.
type StatusWatcher struct {
	source   ProfileSource
	cfg      StatusWatcherConfig
	reducer  *Reducer
	redirect sync.Once

	mu      sync.Mutex
	started bool
	selfID  string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type snapshot struct {
	src     Source
	profile *models.Profile
}

// NewStatusWatcher creates a watcher over source.
func NewStatusWatcher(source ProfileSource, cfg StatusWatcherConfig) *StatusWatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.GlobalLogger.Logger
	}
	return &StatusWatcher{source: source, cfg: cfg, reducer: NewReducer()}
}

// Start fetches the profile once, then polls and listens for events until
// Stop is called or ctx ends. The initial fetch error is returned, but the
// watcher keeps running so a later poll can recover.
func (w *StatusWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.started = true
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	updates := make(chan snapshot, 8)

	first, fetchErr := w.source.FetchProfile(ctx)
	if fetchErr == nil {
		w.setSelf(first.ID)
		w.reduce(snapshot{src: SourceFetch, profile: first})
	}

	w.wg.Add(3)
	go w.reduceLoop(ctx, updates)
	go w.pollLoop(ctx, updates)
	go w.streamLoop(ctx, updates)

	return fetchErr
}

// Stop cancels polling and the subscription and waits for every goroutine
// the watcher started. It is safe to call more than once.
func (w *StatusWatcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

// Current returns the newest accepted snapshot, or nil before the first one.
func (w *StatusWatcher) Current() *models.Profile {
	return w.reducer.Get(w.self())
}

func (w *StatusWatcher) self() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selfID
}

func (w *StatusWatcher) setSelf(id string) {
	w.mu.Lock()
	if w.selfID == "" {
		w.selfID = id
	}
	w.mu.Unlock()
}

func (w *StatusWatcher) reduceLoop(ctx context.Context, updates <-chan snapshot) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-updates:
			w.reduce(s)
		}
	}
}

func (w *StatusWatcher) reduce(s snapshot) {
	if s.profile == nil || s.profile.ID != w.self() {
		return
	}
	if !w.reducer.Apply(s.src, s.profile) {
		return
	}
	current := w.reducer.Get(s.profile.ID)
	if w.cfg.OnChange != nil {
		w.cfg.OnChange(current)
	}
	if route := Destination(current); route != models.RoutePending {
		w.redirect.Do(func() {
			if w.cfg.OnApproved != nil {
				w.cfg.OnApproved(current, route)
			}
		})
	}
}

func (w *StatusWatcher) pollLoop(ctx context.Context, updates chan<- snapshot) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p, err := w.source.FetchProfile(ctx)
			if err != nil {
				if ctx.Err() == nil {
					w.cfg.Logger.WarnContext(ctx, "status poll failed", slog.String("error", err.Error()))
				}
				continue
			}
			w.setSelf(p.ID)
			select {
			case updates <- snapshot{src: SourcePoll, profile: p}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// streamLoop forwards events for the caller's own row. Stream failures are
// logged at debug level only; polling covers the gap.
func (w *StatusWatcher) streamLoop(ctx context.Context, updates chan<- snapshot) {
	defer w.wg.Done()

	stream, err := w.source.SubscribeEvents(ctx)
	if err != nil {
		w.cfg.Logger.DebugContext(ctx, "status stream unavailable", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = stream.Close() }()

	events := stream.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				w.cfg.Logger.DebugContext(ctx, "status stream ended")
				return
			}
			if event.New == nil || event.New.ID != w.self() {
				continue
			}
			select {
			case updates <- snapshot{src: SourceStream, profile: event.New}:
			case <-ctx.Done():
				return
			}
		}
	}
}
