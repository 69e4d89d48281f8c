package infrastructure

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/ytdl-relay/internal/domain"
)

// DirectEncodingID is the only encoding a direct file URL offers
const DirectEncodingID = "source"

// DirectResolver implements domain.Resolver for plain http(s) file URLs
type DirectResolver struct {
	client *http.Client
	config *domain.ResolverConfig
	logger *zap.Logger
}

// NewDirectResolver creates a resolver that fetches files over HTTP
func NewDirectResolver(config *domain.ResolverConfig, logger *zap.Logger) *DirectResolver {
	return NewDirectResolverWithClient(&http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: config.RequestTimeout,
		},
	}, config, logger)
}

// NewDirectResolverWithClient creates a resolver using the given HTTP client
func NewDirectResolverWithClient(client *http.Client, config *domain.ResolverConfig, logger *zap.Logger) *DirectResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectResolver{client: client, config: config, logger: logger}
}

// Validate accepts absolute http(s) URLs with a host
func (r *DirectResolver) Validate(sourceURL string) error {
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil {
		return domain.NewTransferError(domain.KindInvalidSource, "validate", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.NewTransferError(domain.KindInvalidSource, "validate",
			fmt.Errorf("not an http(s) url: %q", sourceURL))
	}
	return nil
}

// Resolve issues a HEAD request for the file metadata. Servers that reject
// HEAD still resolve, with an unknown size.
func (r *DirectResolver) Resolve(ctx context.Context, sourceURL string) (*domain.VideoInfo, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if err := r.Validate(sourceURL); err != nil {
		return nil, err
	}

	if r.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.RequestTimeout)
		defer cancel()
	}

	req, err := r.newRequest(ctx, http.MethodHead, sourceURL)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, domain.NewTransferError(domain.KindUpstreamFailure, "resolve", err)
	}
	resp.Body.Close()

	enc := domain.Encoding{
		ID:       DirectEncodingID,
		Label:    "source",
		MimeLike: "application/octet-stream",
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			enc.MimeLike = ct
		}
		if resp.ContentLength > 0 {
			enc.ContentLength = resp.ContentLength
		}
	case resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented:
		r.logger.Debug("HEAD not supported, size unknown", zap.String("url", sourceURL))
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, domain.NewTransferError(domain.KindInvalidSource, "resolve",
			fmt.Errorf("upstream returned %s", resp.Status))
	default:
		return nil, domain.NewTransferError(domain.KindUpstreamFailure, "resolve",
			fmt.Errorf("upstream returned %s", resp.Status))
	}

	return &domain.VideoInfo{
		ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceURL)).String(),
		SourceURL: sourceURL,
		Title:     titleFromResponse(resp, sourceURL),
		Encodings: []domain.Encoding{enc},
	}, nil
}

// Open issues the GET request for the file body
func (r *DirectResolver) Open(ctx context.Context, info *domain.VideoInfo, enc domain.Encoding) (*domain.Stream, error) {
	if enc.ID != DirectEncodingID {
		return nil, domain.NewTransferError(domain.KindNoMatchingEncoding, "open",
			fmt.Errorf("unknown encoding %q", enc.ID))
	}

	req, err := r.newRequest(ctx, http.MethodGet, info.SourceURL)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, domain.NewTransferError(domain.KindUpstreamFailure, "open", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, domain.NewTransferError(domain.KindUpstreamFailure, "open",
			fmt.Errorf("upstream returned %s", resp.Status))
	}

	size := resp.ContentLength
	if size < 0 {
		size = 0
	}
	return &domain.Stream{
		Body: NewStallReader(resp.Body, r.config.ReadTimeout),
		Size: size,
	}, nil
}

func (r *DirectResolver) newRequest(ctx context.Context, method, sourceURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, sourceURL, nil)
	if err != nil {
		return nil, domain.NewTransferError(domain.KindInvalidSource, strings.ToLower(method), err)
	}
	if r.config.UserAgent != "" {
		req.Header.Set("User-Agent", r.config.UserAgent)
	}
	return req, nil
}

// titleFromResponse prefers the Content-Disposition filename, then the last
// URL path segment, both without extension.
func titleFromResponse(resp *http.Response, sourceURL string) string {
	name := ""
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			name = params["filename"]
		}
	}
	if name == "" {
		if u, err := url.Parse(sourceURL); err == nil {
			name = path.Base(u.Path)
		}
	}
	if name == "" || name == "/" || name == "." {
		return ""
	}
	return strings.TrimSuffix(name, path.Ext(name))
}
