package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/ytdl-relay/internal/app"
	"github.com/yourusername/ytdl-relay/internal/domain"
)

// DownloadHandler handles validate, download and progress requests
type DownloadHandler struct {
	manager  *app.SessionManager
	reporter *app.ProgressReporter
	logger   *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(manager *app.SessionManager, reporter *app.ProgressReporter, logger *zap.Logger) *DownloadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DownloadHandler{
		manager:  manager,
		reporter: reporter,
		logger:   logger,
	}
}

// SourceQuery is the query string shared by /validate and /download
type SourceQuery struct {
	URL      string `form:"url" binding:"required"`
	Encoding string `form:"encoding"`
}

// ValidateResponse is the body of a successful GET /validate
type ValidateResponse struct {
	Valid     bool              `json:"valid"`
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Author    string            `json:"author,omitempty"`
	Thumbnail string            `json:"thumbnail,omitempty"`
	Duration  int64             `json:"duration"` // seconds
	Encodings []domain.Encoding `json:"encodings"`
}

// Validate handles GET /validate?url=<source>
func (h *DownloadHandler) Validate(c *gin.Context) {
	var query SourceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, domain.NewTransferError(domain.KindInvalidSource, "validate", errors.New("url is required")))
		return
	}

	info, err := h.manager.Validate(c.Request.Context(), query.URL)
	if err != nil {
		h.logger.Debug("Validation failed", zap.String("url", query.URL), zap.Error(err))
		respondError(c, err)
		return
	}

	encodings := info.Encodings
	if encodings == nil {
		encodings = []domain.Encoding{}
	}
	c.JSON(http.StatusOK, ValidateResponse{
		Valid:     true,
		ID:        info.ID,
		Title:     info.Title,
		Author:    info.Author,
		Thumbnail: info.Thumbnail,
		Duration:  int64(info.Duration.Seconds()),
		Encodings: encodings,
	})
}

// Download handles GET /download?url=<source>&encoding=<id>. The session is
// created before the first byte is written; once headers are sent, relay
// errors are only visible through /progress.
func (h *DownloadHandler) Download(c *gin.Context) {
	var query SourceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, domain.NewTransferError(domain.KindInvalidSource, "download", errors.New("url is required")))
		return
	}

	transfer, err := h.manager.StartDownload(c.Request.Context(), query.URL, query.Encoding)
	if err != nil {
		respondError(c, err)
		return
	}
	defer transfer.Close()

	header := c.Writer.Header()
	header.Set("Content-Type", transfer.Encoding.ContentType())
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", transfer.Filename()))
	header.Set("X-Session-Id", transfer.SessionID)
	header.Set("Cache-Control", "no-store")
	if transfer.TotalBytes > 0 {
		header.Set("Content-Length", strconv.FormatInt(transfer.TotalBytes, 10))
	}
	c.Status(http.StatusOK)

	written, err := transfer.WriteTo(c.Writer)
	if err != nil {
		h.logger.Debug("Download ended early",
			zap.String("id", transfer.SessionID),
			zap.Int64("written", written),
			zap.Error(err))
	}
}

// Progress handles GET /progress?id=<id>. It always answers 200; unknown
// ids are reported through the NotFound status field.
func (h *DownloadHandler) Progress(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, h.reporter.GetProgress(c.Query("id")))
}
