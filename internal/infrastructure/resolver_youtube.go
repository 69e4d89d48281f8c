package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"github.com/yourusername/ytdl-relay/internal/domain"
)

// youtubeClient is the subset of *youtube.Client the resolver uses
type youtubeClient interface {
	GetVideoContext(ctx context.Context, videoURL string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// YouTubeResolver implements domain.Resolver for YouTube watch URLs
type YouTubeResolver struct {
	client youtubeClient
	config *domain.ResolverConfig
	logger *zap.Logger
}

// NewYouTubeResolver creates a resolver backed by github.com/kkdai/youtube
func NewYouTubeResolver(config *domain.ResolverConfig, logger *zap.Logger) *YouTubeResolver {
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: config.RequestTimeout,
		},
	}
	return newYouTubeResolver(&youtube.Client{HTTPClient: httpClient}, config, logger)
}

func newYouTubeResolver(client youtubeClient, config *domain.ResolverConfig, logger *zap.Logger) *YouTubeResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YouTubeResolver{client: client, config: config, logger: logger}
}

// Validate checks that the URL carries a well-formed video id
func (r *YouTubeResolver) Validate(sourceURL string) error {
	if _, err := videoIDFromURL(sourceURL); err != nil {
		return domain.NewTransferError(domain.KindInvalidSource, "validate", err)
	}
	return nil
}

// videoIDFromURL pulls the id out of watch, short-link, shorts and embed
// URLs and checks it with youtube.ExtractVideoID.
func videoIDFromURL(sourceURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil {
		return "", err
	}

	var id string
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case strings.EqualFold(u.Hostname(), "youtu.be"):
		id = segments[0]
	case u.Query().Get("v") != "":
		id = u.Query().Get("v")
	case len(segments) == 2 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live"):
		id = segments[1]
	}
	if id == "" {
		return "", fmt.Errorf("no video id in %q", sourceURL)
	}
	return youtube.ExtractVideoID(id)
}

// Resolve fetches video metadata and its progressive encodings
func (r *YouTubeResolver) Resolve(ctx context.Context, sourceURL string) (*domain.VideoInfo, error) {
	video, err := r.fetchVideo(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	info := &domain.VideoInfo{
		ID:        video.ID,
		SourceURL: sourceURL,
		Title:     video.Title,
		Author:    video.Author,
		Thumbnail: bestThumbnail(video.Thumbnails),
		Duration:  video.Duration,
		Encodings: encodingsFromFormats(video.Formats),
	}

	r.logger.Debug("Resolved video",
		zap.String("id", info.ID),
		zap.String("title", info.Title),
		zap.Int("encodings", len(info.Encodings)))

	return info, nil
}

// Open re-fetches the video so stream URLs are fresh, then opens the format
// whose itag matches enc.ID.
func (r *YouTubeResolver) Open(ctx context.Context, info *domain.VideoInfo, enc domain.Encoding) (*domain.Stream, error) {
	video, err := r.fetchVideo(ctx, info.ID)
	if err != nil {
		return nil, err
	}

	itag, err := strconv.Atoi(enc.ID)
	if err != nil {
		return nil, domain.NewTransferError(domain.KindNoMatchingEncoding, "open", err)
	}
	var format *youtube.Format
	for i := range video.Formats {
		if video.Formats[i].ItagNo == itag {
			format = &video.Formats[i]
			break
		}
	}
	if format == nil {
		return nil, domain.NewTransferError(domain.KindNoMatchingEncoding, "open", fmt.Errorf("itag %d no longer offered", itag))
	}

	body, size, err := r.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, domain.NewTransferError(domain.KindUpstreamFailure, "open", err)
	}

	return &domain.Stream{
		Body: NewStallReader(body, r.config.ReadTimeout),
		Size: size,
	}, nil
}

func (r *YouTubeResolver) fetchVideo(ctx context.Context, videoURL string) (*youtube.Video, error) {
	if r.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.RequestTimeout)
		defer cancel()
	}

	video, err := r.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return nil, domain.NewTransferError(kindForYouTubeError(err), "resolve", err)
	}
	return video, nil
}

// kindForYouTubeError separates sources that can never be served from
// transient upstream problems.
func kindForYouTubeError(err error) domain.ErrorKind {
	switch {
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed),
		errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return domain.KindInvalidSource
	}

	var statusErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		return domain.KindInvalidSource
	}

	return domain.KindUpstreamFailure
}

// encodingsFromFormats keeps progressive (audio and video) formats, or
// every format when the video offers none.
func encodingsFromFormats(formats youtube.FormatList) []domain.Encoding {
	var progressive, all []domain.Encoding
	for _, f := range formats {
		enc := encodingFromFormat(f)
		all = append(all, enc)
		if f.AudioChannels > 0 && f.Height > 0 {
			progressive = append(progressive, enc)
		}
	}
	if len(progressive) > 0 {
		return progressive
	}
	return all
}

func encodingFromFormat(f youtube.Format) domain.Encoding {
	label := f.QualityLabel
	if label == "" {
		label = f.Quality
	}
	if label == "" && f.AudioQuality != "" {
		label = f.AudioQuality
	}

	// Height orders video formats; audio-only formats rank by bitrate below
	// every video format.
	quality := f.Height * 1_000_000
	if f.Height == 0 {
		quality = min(f.Bitrate, 999_999)
	}

	return domain.Encoding{
		ID:            strconv.Itoa(f.ItagNo),
		Label:         label,
		MimeLike:      f.MimeType,
		Quality:       quality,
		ContentLength: f.ContentLength,
	}
}

func bestThumbnail(thumbnails youtube.Thumbnails) string {
	var best string
	var bestWidth uint
	for _, t := range thumbnails {
		if best == "" || t.Width > bestWidth {
			best = t.URL
			bestWidth = t.Width
		}
	}
	return best
}
