package domain

import (
	"context"
	"io"
	"mime"
	"net/url"
	"strings"
	"time"
)

// Resolver turns a source URL into metadata and fetchable encodings
type Resolver interface {
	// Validate checks the URL shape without touching the network
	Validate(sourceURL string) error

	// Resolve fetches metadata and the selectable encodings
	Resolve(ctx context.Context, sourceURL string) (*VideoInfo, error)

	// Open starts fetching the given encoding
	Open(ctx context.Context, info *VideoInfo, enc Encoding) (*Stream, error)
}

// VideoInfo is the metadata for one source video
type VideoInfo struct {
	ID        string        `json:"id"`
	SourceURL string        `json:"-"`
	Title     string        `json:"title"`
	Author    string        `json:"author,omitempty"`
	Thumbnail string        `json:"thumbnail,omitempty"`
	Duration  time.Duration `json:"-"`
	Encodings []Encoding    `json:"encodings"`
}

// Encoding is one selectable quality/format variant
type Encoding struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	MimeLike string `json:"mimeLike"`

	// Quality is a resolver-declared ordinal; higher is better.
	Quality int `json:"-"`

	// ContentLength is the declared size in bytes, 0 when unknown.
	ContentLength int64 `json:"-"`
}

// Extension returns a file extension for the encoding, without the dot
func (e Encoding) Extension() string {
	mediaType, _, err := mime.ParseMediaType(e.MimeLike)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(e.MimeLike, ";", 2)[0])
	}
	if i := strings.IndexByte(mediaType, '/'); i >= 0 {
		sub := mediaType[i+1:]
		switch sub {
		case "", "octet-stream":
			return "bin"
		case "quicktime":
			return "mov"
		case "x-matroska":
			return "mkv"
		case "mpeg":
			if strings.HasPrefix(mediaType, "audio/") {
				return "mp3"
			}
		case "mp4":
			if strings.HasPrefix(mediaType, "audio/") {
				return "m4a"
			}
		}
		return strings.TrimPrefix(sub, "x-")
	}
	return "bin"
}

// ContentType returns the bare media type for use in a Content-Type header
func (e Encoding) ContentType() string {
	mediaType, _, err := mime.ParseMediaType(e.MimeLike)
	if err != nil || mediaType == "" {
		return "application/octet-stream"
	}
	return mediaType
}

// Stream is an open byte stream for a chosen encoding
type Stream struct {
	Body io.ReadCloser
	Size int64 // 0 when unknown
}

// SelectEncoding picks the encoding for selector. An empty selector means
// best available: highest Quality, first match in resolver order on ties.
func (v *VideoInfo) SelectEncoding(selector string) (Encoding, error) {
	if len(v.Encodings) == 0 {
		return Encoding{}, NewTransferError(KindNoMatchingEncoding, "select", nil)
	}
	if selector == "" {
		best := v.Encodings[0]
		for _, enc := range v.Encodings[1:] {
			if enc.Quality > best.Quality {
				best = enc
			}
		}
		return best, nil
	}
	for _, enc := range v.Encodings {
		if enc.ID == selector {
			return enc, nil
		}
	}
	return Encoding{}, NewTransferError(KindNoMatchingEncoding, "select", nil)
}

// Platform represents the kind of source a URL points to
type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformDirect  Platform = "direct" // plain http(s) file URL
)

var youtubeHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
}

// DetectPlatform detects the platform from a URL. It returns "" for
// anything that is not an absolute http(s) URL.
func DetectPlatform(sourceURL string) Platform {
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return ""
	}
	if youtubeHosts[strings.ToLower(u.Hostname())] {
		return PlatformYouTube
	}
	return PlatformDirect
}
