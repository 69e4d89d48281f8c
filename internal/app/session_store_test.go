package app

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/ytdl-relay/internal/domain"
)

func newTestSession(id, attempt string, total int64) domain.Session {
	return domain.Session{
		ID:         id,
		Attempt:    attempt,
		Status:     domain.StatusPreparing,
		TotalBytes: total,
	}
}

func TestSessionStore_GetAbsent(t *testing.T) {
	store := NewSessionStore()

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestSessionStore_PutGet(t *testing.T) {
	store := NewSessionStore()
	store.Put("abc123", newTestSession("abc123", "a1", 100))

	got, ok := store.Get("abc123")
	require.True(t, ok)
	assert.Equal(t, "a1", got.Attempt)
	assert.Equal(t, domain.StatusPreparing, got.Status)
}

func TestSessionStore_GetReturnsCopy(t *testing.T) {
	store := NewSessionStore()
	store.Put("abc123", newTestSession("abc123", "a1", 100))

	got, _ := store.Get("abc123")
	got.DownloadedBytes = 99

	again, _ := store.Get("abc123")
	assert.Zero(t, again.DownloadedBytes)
}

func TestSessionStore_PutOverwritesTerminal(t *testing.T) {
	store := NewSessionStore()
	done := newTestSession("abc123", "a1", 100)
	done.Status = domain.StatusCompleted
	done.DownloadedBytes = 100
	store.Put("abc123", done)

	store.Put("abc123", newTestSession("abc123", "a2", 100))

	got, _ := store.Get("abc123")
	assert.Equal(t, "a2", got.Attempt)
	assert.Equal(t, domain.StatusPreparing, got.Status)
	assert.Zero(t, got.DownloadedBytes)
	assert.Equal(t, 1, store.Len())
}

func TestSessionStore_UpdateFencesOtherAttempts(t *testing.T) {
	store := NewSessionStore()
	store.Put("abc123", newTestSession("abc123", "a1", 100))
	store.Put("abc123", newTestSession("abc123", "a2", 100))

	ok := store.Update("abc123", "a1", func(s *domain.Session) { s.AddBytes(50) })
	assert.False(t, ok)

	got, _ := store.Get("abc123")
	assert.Zero(t, got.DownloadedBytes)
}

func TestSessionStore_UpdateRejectsBackwardsMoves(t *testing.T) {
	store := NewSessionStore()
	store.Put("abc123", newTestSession("abc123", "a1", 100))

	require.True(t, store.Update("abc123", "a1", func(s *domain.Session) {
		s.MarkDownloading()
		s.AddBytes(50)
	}))

	assert.False(t, store.Update("abc123", "a1", func(s *domain.Session) {
		s.Status = domain.StatusPreparing
	}))
	assert.False(t, store.Update("abc123", "a1", func(s *domain.Session) {
		s.DownloadedBytes = 10
	}))

	got, _ := store.Get("abc123")
	assert.Equal(t, domain.StatusDownloading, got.Status)
	assert.Equal(t, int64(50), got.DownloadedBytes)
}

func TestSessionStore_UpdateTerminalIsPermanent(t *testing.T) {
	store := NewSessionStore()
	store.Put("abc123", newTestSession("abc123", "a1", 100))
	require.True(t, store.Update("abc123", "a1", func(s *domain.Session) { s.MarkCompleted() }))

	assert.False(t, store.Update("abc123", "a1", func(s *domain.Session) {
		s.MarkFailed(domain.ErrUpstreamFailure)
	}))

	got, _ := store.Get("abc123")
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestSessionStore_UpdateUnknownID(t *testing.T) {
	store := NewSessionStore()
	assert.False(t, store.Update("missing", "a1", func(s *domain.Session) {}))
	assert.Zero(t, store.Len())
}

func TestSessionStore_ConcurrentReadersNeverSeeTornState(t *testing.T) {
	store := NewSessionStore()
	store.Put("abc123", newTestSession("abc123", "a1", 1000))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			store.Update("abc123", "a1", func(s *domain.Session) {
				s.MarkDownloading()
				s.AddBytes(1)
			})
		}
		store.Update("abc123", "a1", func(s *domain.Session) { s.MarkCompleted() })
	}()

	for reader := 0; reader < 4; reader++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var prev int64
			for {
				got, ok := store.Get("abc123")
				if !ok {
					t.Error("session disappeared")
					return
				}
				if got.DownloadedBytes < prev {
					t.Errorf("downloaded bytes decreased: %d -> %d", prev, got.DownloadedBytes)
					return
				}
				if got.Status == domain.StatusPreparing && got.DownloadedBytes > 0 {
					t.Errorf("bytes published with stale status")
					return
				}
				prev = got.DownloadedBytes
				if got.IsTerminal() {
					return
				}
			}
		}()
	}
	wg.Wait()

	got, _ := store.Get("abc123")
	assert.Equal(t, int64(1000), got.DownloadedBytes)
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestSessionStore_SubscribeReceivesLatest(t *testing.T) {
	store := NewSessionStore()
	store.Put("abc123", newTestSession("abc123", "a1", 100))

	updates, cancel := store.Subscribe("abc123")
	defer cancel()

	first := <-updates
	assert.Equal(t, domain.StatusPreparing, first.Status)

	store.Update("abc123", "a1", func(s *domain.Session) { s.MarkDownloading(); s.AddBytes(10) })
	store.Update("abc123", "a1", func(s *domain.Session) { s.AddBytes(10) })

	latest := <-updates
	assert.Equal(t, int64(20), latest.DownloadedBytes, "only the newest unread state is kept")

	select {
	case extra := <-updates:
		t.Fatalf("unexpected extra update: %+v", extra)
	default:
	}
}

func TestSessionStore_SubscribeBeforePut(t *testing.T) {
	store := NewSessionStore()

	updates, cancel := store.Subscribe("abc123")
	defer cancel()

	store.Put("abc123", newTestSession("abc123", "a1", 100))

	got := <-updates
	assert.Equal(t, "a1", got.Attempt)
}
