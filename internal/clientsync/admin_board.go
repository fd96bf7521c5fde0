package clientsync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"portal/internal/approval"
	"portal/internal/models"
	"portal/internal/observability"
	"portal/pkg/sdk"
)

// AdminBoard backs the admin console table. Approve and Reject change the
// local row before the server confirms and restore it if the call fails.
type AdminBoard struct {
	gateway Gateway
	reducer *Reducer
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.RWMutex
	filter models.ProfileFilter
	usage  *sdk.Usage

	// OnChange, if set, is called after any row changes.
	OnChange func()

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAdminBoard creates a board over gateway.
func NewAdminBoard(gateway Gateway) *AdminBoard {
	return &AdminBoard{
		gateway: gateway,
		reducer: NewReducer(),
		logger:  observability.GlobalLogger.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetFilter changes which rows Rows returns. The next Refresh also uses it server side.
func (b *AdminBoard) SetFilter(f models.ProfileFilter) {
	b.mu.Lock()
	b.filter = f
	b.mu.Unlock()
}

// Refresh loads the pending queue, the filtered profile list and the usage
// numbers. Rows already held are merged, not replaced.
func (b *AdminBoard) Refresh(ctx context.Context) error {
	b.mu.RLock()
	filter := b.filter
	b.mu.RUnlock()

	pending, err := b.gateway.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("load pending: %w", err)
	}
	all, err := b.gateway.ListProfiles(ctx, filter)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	usage, err := b.gateway.Usage(ctx)
	if err != nil {
		return fmt.Errorf("load usage: %w", err)
	}

	changed := false
	for i := range pending {
		changed = b.reducer.Apply(SourceFetch, &pending[i]) || changed
	}
	for i := range all {
		changed = b.reducer.Apply(SourceFetch, &all[i]) || changed
	}

	b.mu.Lock()
	b.usage = usage
	b.mu.Unlock()

	if changed {
		b.notify()
	}
	return nil
}

// Watch merges realtime events into the board until Stop or ctx ends. A
// failed subscription is logged and otherwise ignored.
func (b *AdminBoard) Watch(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	stream, err := b.gateway.SubscribeEvents(ctx)
	if err != nil {
		b.logger.DebugContext(ctx, "admin stream unavailable", slog.String("error", err.Error()))
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() { _ = stream.Close() }()
		events := stream.Events()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				if b.reducer.Apply(SourceStream, event.New) {
					b.notify()
				}
			}
		}
	}()
}

// Stop ends Watch and waits for its goroutine.
func (b *AdminBoard) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	b.wg.Wait()
}

// Approve approves uid through the gateway.
func (b *AdminBoard) Approve(ctx context.Context, uid string) (*models.Profile, error) {
	return b.mutate(uid, func(p *models.Profile) error {
		return approval.Approve(p, b.now())
	}, func() (*models.Profile, error) {
		return b.gateway.Approve(ctx, uid)
	})
}

// Reject rejects uid with reason through the gateway.
func (b *AdminBoard) Reject(ctx context.Context, uid, reason string) (*models.Profile, error) {
	return b.mutate(uid, func(p *models.Profile) error {
		return approval.Reject(p, reason, b.now())
	}, func() (*models.Profile, error) {
		return b.gateway.Reject(ctx, uid, reason)
	})
}

func (b *AdminBoard) mutate(uid string, local func(*models.Profile) error, remote func() (*models.Profile, error)) (*models.Profile, error) {
	prev := b.reducer.Get(uid)
	if prev != nil {
		optimistic := prev.Clone()
		if err := local(optimistic); err == nil {
			// Keep the old updated_at so the server's row always wins.
			optimistic.UpdatedAt = prev.UpdatedAt
			b.reducer.Replace(optimistic)
			b.notify()
		}
	}

	confirmed, err := remote()
	if err != nil {
		if prev != nil {
			b.rollback(prev)
		}
		return nil, err
	}
	b.reducer.Apply(SourceLocal, confirmed)
	b.notify()
	return confirmed.Clone(), nil
}

// rollback restores prev unless a newer server snapshot already arrived.
func (b *AdminBoard) rollback(prev *models.Profile) {
	cur := b.reducer.Get(prev.ID)
	if cur != nil && cur.UpdatedAt.After(prev.UpdatedAt) {
		return
	}
	b.reducer.Replace(prev)
	b.notify()
}

// Row returns one profile as the board currently shows it.
func (b *AdminBoard) Row(id string) *models.Profile {
	return b.reducer.Get(id)
}

// Rows returns the profiles matching the current filter, newest first.
func (b *AdminBoard) Rows() []models.Profile {
	b.mu.RLock()
	filter := b.filter
	b.mu.RUnlock()

	all := b.reducer.All()
	out := all[:0]
	for _, p := range all {
		if filter.Status != "" && p.ApprovalStatus != filter.Status {
			continue
		}
		if filter.Role != "" && p.Role != filter.Role {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Pending returns the review queue, oldest first.
func (b *AdminBoard) Pending() []models.Profile {
	var out []models.Profile
	for _, p := range b.reducer.All() {
		if p.ApprovalStatus == models.StatusPending {
			out = append(out, p)
		}
	}
	return out
}

// Usage returns the KPI block from the last Refresh.
func (b *AdminBoard) Usage() *sdk.Usage {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.usage == nil {
		return nil
	}
	u := *b.usage
	return &u
}

func (b *AdminBoard) notify() {
	if b.OnChange != nil {
		b.OnChange()
	}
}
