package resolver

import (
	"context"
	"errors"
	"testing"

	"psi-musicbot/internal/music/extractor"
	"psi-musicbot/internal/music/stream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func static(meta *extractor.Metadata, err error) extractor.Extractor {
	return extractor.Func(func(ctx context.Context, url string) (*extractor.Metadata, error) {
		return meta, err
	})
}

func formats(fs ...extractor.Format) *extractor.Metadata {
	return &extractor.Metadata{Formats: fs}
}

func TestResolveScenarios(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		meta     *extractor.Metadata
		want     string
		provider Provider
	}{
		{
			name:     "icecast takes first variant",
			url:      "http://x/icecast/stream.ogg",
			meta:     formats(extractor.Format{URL: "u1"}, extractor.Format{URL: "u2"}),
			want:     "u1",
			provider: ProviderIcecast,
		},
		{
			name:     "icecast ignores id and note",
			url:      "http://icecast.example/radio",
			meta:     formats(extractor.Format{FormatID: "audio_only", Note: "Default", URL: "first"}, extractor.Format{URL: "second"}),
			want:     "first",
			provider: ProviderIcecast,
		},
		{
			name:     "twitch takes audio_only",
			url:      "https://twitch.tv/x",
			meta:     formats(extractor.Format{FormatID: "360p"}, extractor.Format{FormatID: "audio_only", URL: "u3"}),
			want:     "u3",
			provider: ProviderTwitch,
		},
		{
			name:     "twitch takes first of several audio_only",
			url:      "https://www.twitch.tv/radiopsi",
			meta:     formats(extractor.Format{FormatID: "audio_only", URL: "a"}, extractor.Format{FormatID: "audio_only", URL: "b"}),
			want:     "a",
			provider: ProviderTwitch,
		},
		{
			name:     "youtube takes Default note",
			url:      "https://youtube.com/x",
			meta:     formats(extractor.Format{Note: "medium", URL: "m"}, extractor.Format{Note: "Default", URL: "d"}),
			want:     "d",
			provider: ProviderYouTube,
		},
		{
			name:     "icecast wins over twitch",
			url:      "http://icecast.example/twitch-relay",
			meta:     formats(extractor.Format{FormatID: "high", URL: "ice"}, extractor.Format{FormatID: "audio_only", URL: "tw"}),
			want:     "ice",
			provider: ProviderIcecast,
		},
		{
			name: "playlist reduced to first entry",
			url:  "https://twitch.tv/x",
			meta: &extractor.Metadata{
				Type: extractor.TypePlaylist,
				Entries: []*extractor.Metadata{
					formats(extractor.Format{FormatID: "audio_only", URL: "first"}),
					formats(extractor.Format{FormatID: "audio_only", URL: "second"}),
				},
			},
			want:     "first",
			provider: ProviderTwitch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(static(tt.meta, nil)).Resolve(context.Background(), tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.StreamURL)
			assert.Equal(t, tt.provider, res.Provider)
			assert.Equal(t, tt.url, res.SourceURL)
			require.NotNil(t, res.Source)
		})
	}
}

func TestResolveNotDetermined(t *testing.T) {
	tests := []struct {
		name string
		url  string
		meta *extractor.Metadata
	}{
		{"icecast without variants", "http://icecast.example/", formats()},
		{"twitch without audio_only", "https://twitch.tv/x", formats(extractor.Format{FormatID: "360p", URL: "v"}, extractor.Format{FormatID: "720p", URL: "w"})},
		{"twitch audio_only without url", "https://twitch.tv/x", formats(extractor.Format{FormatID: "audio_only"}, extractor.Format{FormatID: "audio_only", URL: "later"})},
		{"youtube without Default", "https://youtube.com/x", formats(extractor.Format{Note: "default", URL: "lower"})},
		{"youtube Default without url", "https://youtube.com/x", formats(extractor.Format{Note: "Default"})},
		{"unknown provider", "https://soundcloud.com/x", formats(extractor.Format{URL: "u"})},
		{"playlist entry picked before classification", "https://twitch.tv/x", &extractor.Metadata{
			Type:    extractor.TypePlaylist,
			Formats: []extractor.Format{{FormatID: "audio_only", URL: "outer"}},
			Entries: []*extractor.Metadata{formats(extractor.Format{FormatID: "360p", URL: "v"})},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(static(tt.meta, nil)).Resolve(context.Background(), tt.url)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrStreamURLNotDetermined)

			var extErr *ExtractionError
			assert.False(t, errors.As(err, &extErr))
		})
	}
}

func TestResolveEmptyPlaylist(t *testing.T) {
	for _, entries := range [][]*extractor.Metadata{nil, {}, {nil, formats(extractor.Format{URL: "u"})}} {
		meta := &extractor.Metadata{Type: extractor.TypePlaylist, Entries: entries}

		_, err := New(static(meta, nil)).Resolve(context.Background(), "http://icecast.example/list.m3u")
		assert.ErrorIs(t, err, ErrStreamURLNotDetermined)
		assert.ErrorIs(t, err, ErrEmptyPlaylist)
	}
}

func TestResolveExtractionFailure(t *testing.T) {
	cause := errors.New("HTTP Error 404")

	_, err := New(static(nil, cause)).Resolve(context.Background(), "https://twitch.tv/x")

	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, "https://twitch.tv/x", extErr.URL)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrStreamURLNotDetermined)

	_, err = New(static(nil, nil)).Resolve(context.Background(), "https://twitch.tv/x")
	require.True(t, errors.As(err, &extErr))
	assert.ErrorIs(t, err, extractor.ErrNoMetadata)
}

func TestResolveTitleAndSourceFactory(t *testing.T) {
	var built string
	factory := func(u string) stream.Source {
		built = u
		return stream.NewFFmpegSource(u, stream.FFmpegOptions{BinaryPath: "/opt/ffmpeg"})
	}
	meta := formats(extractor.Format{URL: "u1"})

	res, err := New(static(meta, nil), WithSourceFactory(factory)).Resolve(context.Background(), "http://icecast/")
	require.NoError(t, err)
	assert.Equal(t, "u1", built)
	assert.Empty(t, res.Title)
	assert.Equal(t, "http://icecast/", res.DisplayName())

	meta.Title = "Radio PSI"
	res, err = New(static(meta, nil)).Resolve(context.Background(), "http://icecast/")
	require.NoError(t, err)
	assert.Equal(t, "Radio PSI", res.DisplayName())
	src, ok := res.Source.(*stream.FFmpegSource)
	require.True(t, ok)
	assert.Equal(t, "u1", src.URL)
}

func TestCustomRules(t *testing.T) {
	rules := []Rule{{Provider: "any", Match: func(string) bool { return true }, Select: FormatIDIs("hls")}}
	meta := formats(extractor.Format{FormatID: "dash", URL: "d"}, extractor.Format{FormatID: "hls", URL: "h"})

	res, err := New(static(meta, nil), WithRules(rules)).Resolve(context.Background(), "https://soundcloud.com/x")
	require.NoError(t, err)
	assert.Equal(t, "h", res.StreamURL)
}

func TestClassify(t *testing.T) {
	tests := map[string]Provider{
		"http://icecast.fobby.net/radiopsi.ogg":   ProviderIcecast,
		"https://www.twitch.tv/radiopsi":          ProviderTwitch,
		"https://www.youtube.com/watch?v=abc":     ProviderYouTube,
		"https://example.com/twitch/youtube":      ProviderTwitch,
		"https://example.com/youtube/icecast.mp3": ProviderIcecast,
	}
	for url, want := range tests {
		rule, ok := Classify(DefaultRules(), url)
		require.True(t, ok, url)
		assert.Equal(t, want, rule.Provider, url)
	}

	_, ok := Classify(DefaultRules(), "https://youtu.be/abc")
	assert.False(t, ok)
}
