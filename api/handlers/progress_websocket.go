package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/ytdl-relay/internal/app"
	"github.com/yourusername/ytdl-relay/internal/domain"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is open for the browser client
	},
}

// ProgressWebSocketHandler pushes progress snapshots over a websocket
type ProgressWebSocketHandler struct {
	reporter *app.ProgressReporter
	logger   *zap.Logger
}

// NewProgressWebSocketHandler creates a new websocket progress handler
func NewProgressWebSocketHandler(reporter *app.ProgressReporter, log *zap.Logger) *ProgressWebSocketHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProgressWebSocketHandler{reporter: reporter, logger: log}
}

// HandleWebSocket handles GET /progress/ws?id=<id>. One snapshot is sent per
// change until the session is terminal, then the socket is closed normally.
func (h *ProgressWebSocketHandler) HandleWebSocket(c *gin.Context) {
	id := c.Query("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The client never sends anything; reading only detects that it left.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	err = h.reporter.Watch(ctx, id, func(snap domain.Snapshot) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(snap)
	})
	if err != nil && ctx.Err() == nil {
		h.logger.Debug("Progress stream ended", zap.String("id", id), zap.Error(err))
		return
	}
	if ctx.Err() != nil {
		return
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(time.Second))
}
