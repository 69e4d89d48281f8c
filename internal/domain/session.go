package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a download session
type SessionStatus string

const (
	StatusPreparing   SessionStatus = "preparing"
	StatusDownloading SessionStatus = "downloading"
	StatusCompleted   SessionStatus = "completed"
	StatusFailed      SessionStatus = "failed"

	// StatusNotFound is only ever reported in progress snapshots; it is
	// never stored.
	StatusNotFound SessionStatus = "not_found"
)

// rank orders statuses along the only permitted transition path.
func (s SessionStatus) rank() int {
	switch s {
	case StatusPreparing:
		return 1
	case StatusDownloading:
		return 2
	case StatusCompleted, StatusFailed:
		return 3
	default:
		return 0
	}
}

// IsTerminal reports whether no further transitions may occur
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next keeps the
// Preparing -> Downloading -> {Completed | Failed} order.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if s.IsTerminal() {
		return false
	}
	return next.rank() >= s.rank() && next.rank() > 0
}

// Session tracks the lifecycle and progress of one transfer
type Session struct {
	ID              string        `json:"id"`
	Attempt         string        `json:"attempt"`
	SourceURL       string        `json:"source_url"`
	Title           string        `json:"title,omitempty"`
	EncodingID      string        `json:"encoding_id,omitempty"`
	Status          SessionStatus `json:"status"`
	DownloadedBytes int64         `json:"downloaded_bytes"`
	TotalBytes      int64         `json:"total_bytes"`
	ErrorKind       ErrorKind     `json:"error_kind,omitempty"`
	ErrorDetail     string        `json:"error_detail,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	FinishedAt      *time.Time    `json:"finished_at,omitempty"`
}

// NewSession creates a Preparing session for one transfer attempt of the
// given video. Every call yields a distinct attempt token.
func NewSession(info *VideoInfo, enc Encoding) *Session {
	now := time.Now()
	return &Session{
		ID:         info.ID,
		Attempt:    uuid.New().String(),
		SourceURL:  info.SourceURL,
		Title:      info.Title,
		EncodingID: enc.ID,
		Status:     StatusPreparing,
		TotalBytes: max(enc.ContentLength, 0),
		StartedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkDownloading moves the session to Downloading. It is a no-op once the
// session is already downloading.
func (s *Session) MarkDownloading() {
	if s.Status == StatusPreparing {
		s.Status = StatusDownloading
		s.UpdatedAt = time.Now()
	}
}

// AddBytes records n more relayed bytes, never exceeding a known total
func (s *Session) AddBytes(n int64) {
	if n <= 0 {
		return
	}
	s.DownloadedBytes += n
	if s.TotalBytes > 0 && s.DownloadedBytes > s.TotalBytes {
		s.DownloadedBytes = s.TotalBytes
	}
	s.UpdatedAt = time.Now()
}

// MarkCompleted marks the session as completed. A known total wins over the
// observed count.
func (s *Session) MarkCompleted() {
	if s.TotalBytes > 0 {
		s.DownloadedBytes = s.TotalBytes
	}
	s.Status = StatusCompleted
	now := time.Now()
	s.FinishedAt = &now
	s.UpdatedAt = now
}

// MarkFailed marks the session as failed with the classified cause
func (s *Session) MarkFailed(err error) {
	s.Status = StatusFailed
	s.ErrorKind = KindOf(err)
	s.ErrorDetail = err.Error()
	now := time.Now()
	s.FinishedAt = &now
	s.UpdatedAt = now
}

// IsTerminal checks if the session is in a terminal state
func (s *Session) IsTerminal() bool {
	return s.Status.IsTerminal()
}
