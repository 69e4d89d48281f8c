package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/yourusername/ytdl-relay/internal/domain"
)

const defaultChunkSize = 64 * 1024

// SessionManager resolves sources and relays chosen encodings to clients
// while publishing progress to the SessionStore.
type SessionManager struct {
	resolver domain.Resolver
	store    *SessionStore
	config   *domain.DownloadConfig
	logger   *zap.Logger
}

// NewSessionManager creates a new session manager
func NewSessionManager(
	resolver domain.Resolver,
	store *SessionStore,
	config *domain.DownloadConfig,
	logger *zap.Logger,
) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config == nil {
		config = &domain.DownloadConfig{}
	}
	return &SessionManager{
		resolver: resolver,
		store:    store,
		config:   config,
		logger:   logger,
	}
}

// Validate checks sourceURL and resolves its metadata and encodings
func (m *SessionManager) Validate(ctx context.Context, sourceURL string) (*domain.VideoInfo, error) {
	if err := m.resolver.Validate(sourceURL); err != nil {
		return nil, asTransferError(domain.KindInvalidSource, "validate", err)
	}

	info, err := m.resolver.Resolve(ctx, sourceURL)
	if err != nil {
		return nil, asTransferError(domain.KindInvalidSource, "resolve", err)
	}
	if info.SourceURL == "" {
		info.SourceURL = sourceURL
	}
	return info, nil
}

// StartDownload resolves sourceURL, selects an encoding (best available
// when selector is empty), opens the upstream stream and publishes a fresh
// Preparing session. Nothing is relayed until the returned Transfer is
// written to; the Transfer must be relayed or closed.
//
// A download for a video that already has a session replaces that record.
// The earlier relay keeps serving its own client, but its progress is no
// longer published. Encoding errors, including ones only detected when the
// stream is opened, leave the store untouched.
func (m *SessionManager) StartDownload(ctx context.Context, sourceURL, selector string) (*Transfer, error) {
	info, err := m.Validate(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	enc, err := info.SelectEncoding(selector)
	if err != nil {
		return nil, err
	}

	session := domain.NewSession(info, enc)
	stream, err := m.resolver.Open(ctx, info, enc)
	if err != nil {
		if errors.Is(err, domain.ErrNoMatchingEncoding) {
			return nil, err
		}
		err = asTransferError(domain.KindUpstreamFailure, "open", err)
		session.MarkFailed(err)
		m.store.Put(session.ID, *session)
		m.logger.Warn("Failed to open upstream stream",
			zap.String("id", session.ID),
			zap.String("attempt", session.Attempt),
			zap.Error(err))
		return nil, err
	}

	if session.TotalBytes == 0 && stream.Size > 0 {
		session.TotalBytes = stream.Size
	}
	if prev, ok := m.store.Get(session.ID); ok && !prev.IsTerminal() {
		m.logger.Info("Replacing active session",
			zap.String("id", session.ID),
			zap.String("previous_attempt", prev.Attempt),
			zap.String("attempt", session.Attempt))
	}
	m.store.Put(session.ID, *session)

	m.logger.Info("Transfer prepared",
		zap.String("id", session.ID),
		zap.String("attempt", session.Attempt),
		zap.String("encoding", enc.ID),
		zap.String("title", info.Title),
		zap.Int64("total_bytes", session.TotalBytes))

	return &Transfer{
		Info:       info,
		Encoding:   enc,
		SessionID:  session.ID,
		Attempt:    session.Attempt,
		TotalBytes: session.TotalBytes,
		ctx:        ctx,
		body:       stream.Body,
		mgr:        m,
	}, nil
}

func (m *SessionManager) chunkSize() int {
	if m.config.ChunkSize > 0 {
		return m.config.ChunkSize
	}
	return defaultChunkSize
}

// Transfer is one prepared download. It implements io.WriterTo so a handler
// can relay it with transfer.WriteTo(w).
type Transfer struct {
	Info       *domain.VideoInfo
	Encoding   domain.Encoding
	SessionID  string
	Attempt    string
	TotalBytes int64 // 0 when unknown

	ctx  context.Context
	body io.ReadCloser
	mgr  *SessionManager

	mu         sync.Mutex
	claimed    bool
	superseded bool
}

// Filename returns the sanitized attachment filename for the transfer
func (t *Transfer) Filename() string {
	return domain.AttachmentFilename(t.Info.Title, t.Encoding)
}

// WriteTo relays the upstream stream into w using the context the
// transfer was started with.
func (t *Transfer) WriteTo(w io.Writer) (int64, error) {
	return t.Relay(t.ctx, w)
}

// Relay copies the upstream stream into w chunk by chunk. Each chunk is
// counted in the session before it is written downstream. Relay always
// leaves the session in a terminal state and always releases the upstream
// stream, and it stops reading as soon as ctx is done or w fails.
func (t *Transfer) Relay(ctx context.Context, w io.Writer) (written int64, err error) {
	if !t.claim() {
		return 0, errors.New("transfer already relayed or closed")
	}

	stopClose := context.AfterFunc(ctx, func() { t.body.Close() })
	defer func() {
		stopClose()
		t.body.Close()
	}()

	defer func() {
		if r := recover(); r != nil {
			err = domain.NewTransferError(domain.KindInternal, "relay", fmt.Errorf("panic: %v", r))
		}
		t.finish(written, err)
	}()

	flusher, _ := w.(interface{ Flush() })
	buf := make([]byte, t.mgr.chunkSize())

	for {
		if ctx.Err() != nil {
			return written, domain.NewTransferError(domain.KindClientDisconnected, "read", context.Cause(ctx))
		}

		n, rerr := t.body.Read(buf)
		if n > 0 {
			t.publish(func(s *domain.Session) {
				s.MarkDownloading()
				s.AddBytes(int64(n))
			})

			wn, werr := w.Write(buf[:n])
			written += int64(wn)
			if werr == nil && wn < n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				return written, classifyWriteError(ctx, werr)
			}
			if flusher != nil {
				flusher.Flush()
			}
		}

		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return written, domain.NewTransferError(domain.KindClientDisconnected, "read", context.Cause(ctx))
			}
			return written, asTransferError(domain.KindUpstreamFailure, "read", rerr)
		}
	}
}

// Close releases a transfer that was never relayed and marks its session
// failed. It is a no-op after Relay.
func (t *Transfer) Close() error {
	if !t.claim() {
		return nil
	}
	err := t.body.Close()
	t.finish(0, domain.NewTransferError(domain.KindClientDisconnected, "close", errors.New("transfer abandoned before relay")))
	return err
}

func (t *Transfer) claim() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.claimed {
		return false
	}
	t.claimed = true
	return true
}

// publish applies fn to this attempt's session. Once another attempt has
// replaced the record, publishing stops for good.
func (t *Transfer) publish(fn func(*domain.Session)) bool {
	if t.superseded {
		return false
	}
	if t.mgr.store.Update(t.SessionID, t.Attempt, fn) {
		return true
	}
	if current, ok := t.mgr.store.Get(t.SessionID); !ok || current.Attempt != t.Attempt {
		t.superseded = true
		t.mgr.logger.Info("Session superseded, progress no longer published",
			zap.String("id", t.SessionID),
			zap.String("attempt", t.Attempt))
	}
	return false
}

func (t *Transfer) finish(written int64, err error) {
	log := t.mgr.logger.With(
		zap.String("id", t.SessionID),
		zap.String("attempt", t.Attempt),
		zap.String("written", humanize.IBytes(uint64(written))))

	if err == nil {
		if t.TotalBytes > 0 && written != t.TotalBytes {
			log.Warn("Stream length differs from declared size",
				zap.Int64("declared_bytes", t.TotalBytes),
				zap.Int64("written_bytes", written))
		}
		t.publish(func(s *domain.Session) { s.MarkCompleted() })
		log.Info("Transfer completed")
		return
	}

	t.publish(func(s *domain.Session) { s.MarkFailed(err) })
	if errors.Is(err, domain.ErrClientDisconnected) {
		log.Info("Transfer aborted by client", zap.Error(err))
		return
	}
	log.Warn("Transfer failed",
		zap.String("kind", string(domain.KindOf(err))),
		zap.Error(err))
}

// classifyWriteError maps a sink write failure to ClientDisconnected when
// the peer went away and to SinkWriteFailure otherwise.
func classifyWriteError(ctx context.Context, err error) error {
	if ctx.Err() != nil ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) {
		return domain.NewTransferError(domain.KindClientDisconnected, "write", err)
	}
	return domain.NewTransferError(domain.KindSinkWriteFailure, "write", err)
}

// asTransferError keeps an existing TransferError and wraps anything else
// as kind.
func asTransferError(kind domain.ErrorKind, op string, err error) error {
	var te *domain.TransferError
	if errors.As(err, &te) {
		return err
	}
	return domain.NewTransferError(kind, op, err)
}
