package extractor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/bdandy/go-socks4"
	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/proxy"
)

// NoteDefault is the format note yt-dlp gives YouTube's default audio variant.
// The kkdai backend assigns it so both backends satisfy the same selection rule.
const NoteDefault = "Default"

// ErrNoAudioFormats is returned when a video has nothing playable as audio.
var ErrNoAudioFormats = errors.New("no audio formats found for video")

// Kkdai extracts YouTube metadata in-process with kkdai/youtube.
type Kkdai struct {
	client *youtube.Client
}

// NewKkdai builds a Kkdai backend. proxyStr may be empty or an http, https,
// socks5 or socks4 URL.
func NewKkdai(proxyStr string) *Kkdai {
	return &Kkdai{client: newKkdaiClient(proxyStr)}
}

func (k *Kkdai) Extract(ctx context.Context, rawURL string) (*Metadata, error) {
	video, err := k.client.GetVideoContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("youtube client error: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	meta := &Metadata{
		ID:      video.ID,
		Title:   video.Title,
		Formats: normalizeFormats(formats, video.HLSManifestURL),
	}
	if len(meta.Formats) == 0 {
		return nil, ErrNoAudioFormats
	}

	for i := range meta.Formats {
		if meta.Formats[i].URL != "" || i >= len(formats) {
			continue
		}
		link, err := k.client.GetStreamURLContext(ctx, video, &formats[i])
		if err != nil {
			log.Debug().Err(err).Str("itag", meta.Formats[i].FormatID).Msg("Could not get stream URL for format")
			continue
		}
		meta.Formats[i].URL = link
	}

	return meta, nil
}

// normalizeFormats maps kkdai formats onto yt-dlp's vocabulary: the itag
// becomes the format id, and the first audio-only format is noted "Default".
// Live videos without an audio-only format get their HLS manifest as the
// default variant.
func normalizeFormats(formats youtube.FormatList, hlsManifest string) []Format {
	out := make([]Format, 0, len(formats)+1)
	hasDefault := false

	for _, f := range formats {
		note := f.QualityLabel
		if note == "" {
			note = f.AudioQuality
		}
		if !hasDefault && strings.HasPrefix(f.MimeType, "audio/") {
			note = NoteDefault
			hasDefault = true
		}
		out = append(out, Format{
			FormatID: strconv.Itoa(f.ItagNo),
			Note:     note,
			URL:      f.URL,
		})
	}

	if !hasDefault && hlsManifest != "" {
		out = append(out, Format{FormatID: "hls", Note: NoteDefault, URL: hlsManifest})
	}
	return out
}

func newKkdaiClient(proxyStr string) *youtube.Client {
	raw := &youtube.Client{
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	if proxyStr == "" {
		return raw
	}

	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid youtube proxy, going without")
		return raw
	}

	var transport *http.Transport

	switch proxyURL.Scheme {
	case "http", "https":
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	case "socks5", "socks4":
		dialer, err := proxy.FromURL(proxyURL, &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 10 * time.Second,
		})
		if err != nil {
			log.Warn().Err(err).Str("scheme", proxyURL.Scheme).Msg("Proxy dialer error")
			break
		}
		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}
	default:
		log.Warn().Str("scheme", proxyURL.Scheme).Msg("Unsupported proxy scheme")
	}

	if transport == nil {
		return raw
	}

	log.Info().Str("scheme", proxyURL.Scheme).Str("host", proxyURL.Host).Msg("Using proxy for youtube")
	raw.HTTPClient.Transport = transport
	return raw
}
