package app

import (
	"context"

	"github.com/yourusername/ytdl-relay/internal/domain"
)

// ProgressReporter is the read-only query surface over the SessionStore
type ProgressReporter struct {
	store *SessionStore
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter(store *SessionStore) *ProgressReporter {
	return &ProgressReporter{store: store}
}

// GetProgress returns the current snapshot for id. Unknown ids yield a
// NotFound snapshot rather than an error.
func (r *ProgressReporter) GetProgress(id string) domain.Snapshot {
	session, ok := r.store.Get(id)
	if !ok {
		return domain.NotFoundSnapshot(id)
	}
	return domain.NewSnapshot(&session)
}

// Watch calls fn with the current snapshot for id and again after every
// change until the snapshot is terminal, fn returns an error, or ctx is
// done. A NotFound id is reported once and ends the watch.
func (r *ProgressReporter) Watch(ctx context.Context, id string, fn func(domain.Snapshot) error) error {
	updates, cancel := r.store.Subscribe(id)
	defer cancel()

	if _, ok := r.store.Get(id); !ok {
		return fn(domain.NotFoundSnapshot(id))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case session := <-updates:
			snap := domain.NewSnapshot(&session)
			if err := fn(snap); err != nil {
				return err
			}
			if snap.IsTerminal() {
				return nil
			}
		}
	}
}
