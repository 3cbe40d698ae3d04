package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(title string) Extractor {
	return Func(func(ctx context.Context, url string) (*Metadata, error) {
		return &Metadata{Title: title}, nil
	})
}

func TestRouter(t *testing.T) {
	r := NewRouter(named("fallback"),
		Route{Name: "yt", Match: IsYouTubeURL, Extractor: named("youtube")},
	)

	meta, err := r.Extract(context.Background(), "https://youtu.be/MGWEI_m-IpE")
	require.NoError(t, err)
	assert.Equal(t, "youtube", meta.Title)

	meta, err = r.Extract(context.Background(), "https://www.twitch.tv/radiopsi")
	require.NoError(t, err)
	assert.Equal(t, "fallback", meta.Title)
}

func TestNewPicksBackend(t *testing.T) {
	_, ok := New(BackendYtDlp, "yt-dlp", "").(*YtDlp)
	assert.True(t, ok)

	_, ok = New("", "", "").(*YtDlp)
	assert.True(t, ok)

	_, ok = New(BackendKkdai, "yt-dlp", "").(*Router)
	assert.True(t, ok)
}

func TestIsYouTubeURL(t *testing.T) {
	tests := map[string]bool{
		"https://www.youtube.com/watch?v=MGWEI_m-IpE": true,
		"https://youtube.com/watch?v=x":               true,
		"https://music.youtube.com/watch?v=x":         true,
		"https://youtu.be/x":                          true,
		"https://www.twitch.tv/radiopsi":              false,
		"http://icecast.fobby.net/youtube.ogg":        false,
		"not a url":                                   false,
	}
	for in, want := range tests {
		assert.Equal(t, want, IsYouTubeURL(in), in)
	}
}
