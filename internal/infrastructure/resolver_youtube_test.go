package infrastructure

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/ytdl-relay/internal/domain"
)

type fakeYouTubeClient struct {
	video     *youtube.Video
	videoErr  error
	streamErr error
	opened    *youtube.Format
	fetches   int
}

func (f *fakeYouTubeClient) GetVideoContext(ctx context.Context, videoURL string) (*youtube.Video, error) {
	f.fetches++
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return f.video, nil
}

func (f *fakeYouTubeClient) GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error) {
	if f.streamErr != nil {
		return nil, 0, f.streamErr
	}
	f.opened = format
	return io.NopCloser(strings.NewReader("stream-bytes")), 12, nil
}

func testYouTubeVideo() *youtube.Video {
	return &youtube.Video{
		ID:     "dQw4w9WgXcQ",
		Title:  "Test Video",
		Author: "Tester",
		Thumbnails: youtube.Thumbnails{
			{URL: "https://i.ytimg.com/small.jpg", Width: 120},
			{URL: "https://i.ytimg.com/large.jpg", Width: 1280},
		},
		Formats: youtube.FormatList{
			{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, QualityLabel: "360p", Height: 360, AudioChannels: 2, ContentLength: 1000},
			{ItagNo: 22, MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`, QualityLabel: "720p", Height: 720, AudioChannels: 2},
			{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, QualityLabel: "1080p", Height: 1080},
			{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, AudioQuality: "AUDIO_QUALITY_MEDIUM", Bitrate: 128000, AudioChannels: 2},
		},
	}
}

func TestYouTubeResolver_Validate(t *testing.T) {
	r := newYouTubeResolver(&fakeYouTubeClient{}, testResolverConfig(), nil)

	assert.NoError(t, r.Validate("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.NoError(t, r.Validate("https://youtu.be/dQw4w9WgXcQ"))
	assert.ErrorIs(t, r.Validate("https://www.youtube.com/watch?v=bad"), domain.ErrInvalidSource)
}

func TestYouTubeResolver_ResolveKeepsProgressiveFormats(t *testing.T) {
	r := newYouTubeResolver(&fakeYouTubeClient{video: testYouTubeVideo()}, testResolverConfig(), nil)

	info, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)

	assert.Equal(t, "dQw4w9WgXcQ", info.ID)
	assert.Equal(t, "Tester", info.Author)
	assert.Equal(t, "https://i.ytimg.com/large.jpg", info.Thumbnail)
	require.Len(t, info.Encodings, 2)
	assert.Equal(t, "18", info.Encodings[0].ID)
	assert.Equal(t, "360p", info.Encodings[0].Label)
	assert.Equal(t, int64(1000), info.Encodings[0].ContentLength)

	best, err := info.SelectEncoding("")
	require.NoError(t, err)
	assert.Equal(t, "22", best.ID)
	assert.Equal(t, "mp4", best.Extension())
}

func TestEncodingsFromFormats_FallsBackToAll(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 137, MimeType: "video/mp4", QualityLabel: "1080p", Height: 1080},
		{ItagNo: 140, MimeType: "audio/mp4", AudioQuality: "AUDIO_QUALITY_MEDIUM", Bitrate: 128000, AudioChannels: 2},
	}

	encs := encodingsFromFormats(formats)
	require.Len(t, encs, 2)
	assert.Greater(t, encs[0].Quality, encs[1].Quality, "any video format outranks audio")
	assert.Equal(t, "AUDIO_QUALITY_MEDIUM", encs[1].Label)
	assert.Equal(t, "m4a", encs[1].Extension())
}

func TestYouTubeResolver_ResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"private", youtube.ErrVideoPrivate, domain.ErrInvalidSource},
		{"login required", youtube.ErrLoginRequired, domain.ErrInvalidSource},
		{"network", errors.New("connection refused"), domain.ErrUpstreamFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newYouTubeResolver(&fakeYouTubeClient{videoErr: tt.err}, testResolverConfig(), nil)
			_, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestYouTubeResolver_OpenRefetchesAndMatchesItag(t *testing.T) {
	client := &fakeYouTubeClient{video: testYouTubeVideo()}
	r := newYouTubeResolver(client, testResolverConfig(), nil)

	info, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)

	stream, err := r.Open(context.Background(), info, info.Encodings[1])
	require.NoError(t, err)
	defer stream.Body.Close()

	assert.Equal(t, 2, client.fetches)
	require.NotNil(t, client.opened)
	assert.Equal(t, 22, client.opened.ItagNo)
	assert.Equal(t, int64(12), stream.Size)

	data, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Equal(t, "stream-bytes", string(data))
}

func TestYouTubeResolver_OpenErrors(t *testing.T) {
	client := &fakeYouTubeClient{video: testYouTubeVideo()}
	r := newYouTubeResolver(client, testResolverConfig(), nil)
	info := &domain.VideoInfo{ID: "dQw4w9WgXcQ"}

	_, err := r.Open(context.Background(), info, domain.Encoding{ID: "999"})
	assert.ErrorIs(t, err, domain.ErrNoMatchingEncoding)

	_, err = r.Open(context.Background(), info, domain.Encoding{ID: "source"})
	assert.ErrorIs(t, err, domain.ErrNoMatchingEncoding)

	client.streamErr = errors.New("403 forbidden")
	_, err = r.Open(context.Background(), info, domain.Encoding{ID: "18"})
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
}

func TestVideoIDFromURL(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/", "", true},
		{"https://www.youtube.com/watch?v=short", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := videoIDFromURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
