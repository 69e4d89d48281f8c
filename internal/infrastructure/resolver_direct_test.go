package infrastructure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/ytdl-relay/internal/domain"
)

func testResolverConfig() *domain.ResolverConfig {
	return &domain.ResolverConfig{
		RequestTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		AllowDirect:    true,
		UserAgent:      "ytdl-relay-test",
	}
}

func newFileServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/files/clip.mp4", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ytdl-relay-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "video/mp4")
		http.ServeContent(w, r, "clip.mp4", time.Time{}, strings.NewReader(body))
	})
	mux.HandleFunc("/files/nohead", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = io.WriteString(w, body)
	})
	mux.HandleFunc("/files/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDirectResolver_Validate(t *testing.T) {
	r := NewDirectResolver(testResolverConfig(), nil)

	assert.NoError(t, r.Validate("https://example.com/a.mp4"))
	assert.ErrorIs(t, r.Validate("ftp://example.com/a.mp4"), domain.ErrInvalidSource)
	assert.ErrorIs(t, r.Validate("not a url"), domain.ErrInvalidSource)
	assert.ErrorIs(t, r.Validate("http:///nohost"), domain.ErrInvalidSource)
}

func TestDirectResolver_ResolveAndOpen(t *testing.T) {
	srv := newFileServer(t, "0123456789")
	r := NewDirectResolverWithClient(srv.Client(), testResolverConfig(), nil)
	sourceURL := srv.URL + "/files/clip.mp4"

	info, err := r.Resolve(context.Background(), sourceURL)
	require.NoError(t, err)

	assert.Equal(t, "clip", info.Title)
	assert.Len(t, info.ID, 36)
	require.Len(t, info.Encodings, 1)
	enc := info.Encodings[0]
	assert.Equal(t, DirectEncodingID, enc.ID)
	assert.Equal(t, "video/mp4", enc.MimeLike)
	assert.Equal(t, int64(10), enc.ContentLength)

	again, err := r.Resolve(context.Background(), sourceURL)
	require.NoError(t, err)
	assert.Equal(t, info.ID, again.ID, "id is stable per url")

	stream, err := r.Open(context.Background(), info, enc)
	require.NoError(t, err)
	defer stream.Body.Close()

	assert.Equal(t, int64(10), stream.Size)
	data, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))
}

func TestDirectResolver_HeadNotAllowed(t *testing.T) {
	srv := newFileServer(t, "abc")
	r := NewDirectResolverWithClient(srv.Client(), testResolverConfig(), nil)

	info, err := r.Resolve(context.Background(), srv.URL+"/files/nohead")
	require.NoError(t, err)
	assert.Zero(t, info.Encodings[0].ContentLength)
	assert.Equal(t, "application/octet-stream", info.Encodings[0].MimeLike)
}

func TestDirectResolver_UpstreamErrors(t *testing.T) {
	srv := newFileServer(t, "abc")
	r := NewDirectResolverWithClient(srv.Client(), testResolverConfig(), nil)

	_, err := r.Resolve(context.Background(), srv.URL+"/files/broken")
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)

	_, err = r.Resolve(context.Background(), srv.URL+"/files/missing")
	assert.ErrorIs(t, err, domain.ErrInvalidSource)

	info := &domain.VideoInfo{SourceURL: srv.URL + "/files/broken"}
	_, err = r.Open(context.Background(), info, domain.Encoding{ID: DirectEncodingID})
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)

	_, err = r.Open(context.Background(), info, domain.Encoding{ID: "22"})
	assert.ErrorIs(t, err, domain.ErrNoMatchingEncoding)
}
