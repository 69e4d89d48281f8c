package domain

import (
	"github.com/dustin/go-humanize"
)

// Snapshot is a point-in-time view of a session for progress clients
type Snapshot struct {
	ID              string        `json:"id"`
	Status          SessionStatus `json:"status"`
	DownloadedBytes int64         `json:"downloadedBytes"`
	TotalBytes      int64         `json:"totalBytes"`

	// Percent is floor(downloaded*1000/total)/10, so it only reads 100 once
	// every byte has been counted. Zero when Indeterminate.
	Percent       float64 `json:"percent"`
	Indeterminate bool    `json:"indeterminate"`

	Downloaded string `json:"downloaded"`
	Total      string `json:"total,omitempty"`

	ErrorKind ErrorKind `json:"errorKind,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// NewSnapshot copies the observable fields of s
func NewSnapshot(s *Session) Snapshot {
	snap := Snapshot{
		ID:              s.ID,
		Status:          s.Status,
		DownloadedBytes: s.DownloadedBytes,
		TotalBytes:      s.TotalBytes,
		Percent:         Percent(s.DownloadedBytes, s.TotalBytes),
		Indeterminate:   s.TotalBytes <= 0,
		Downloaded:      humanize.IBytes(uint64(max(s.DownloadedBytes, 0))),
		ErrorKind:       s.ErrorKind,
		Error:           s.ErrorDetail,
	}
	if s.TotalBytes > 0 {
		snap.Total = humanize.IBytes(uint64(s.TotalBytes))
	}
	return snap
}

// NotFoundSnapshot is reported for ids with no session record
func NotFoundSnapshot(id string) Snapshot {
	return Snapshot{
		ID:            id,
		Status:        StatusNotFound,
		Indeterminate: true,
		Downloaded:    humanize.IBytes(0),
	}
}

// IsTerminal reports whether the snapshot will not change again for this
// transfer.
func (s Snapshot) IsTerminal() bool {
	return s.Status.IsTerminal() || s.Status == StatusNotFound
}

// Percent rounds downloaded/total down to one decimal place within [0, 100]
func Percent(downloaded, total int64) float64 {
	if total <= 0 || downloaded <= 0 {
		return 0
	}
	if downloaded >= total {
		return 100
	}
	// downloaded < total here, so the per-mille value stays below 1000.
	perMille := float64(downloaded) * 1000 / float64(total)
	return float64(int64(perMille)) / 10
}
