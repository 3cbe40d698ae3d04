package extractor

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	BackendYtDlp = "ytdlp"
	BackendKkdai = "kkdai"
)

// Route sends URLs accepted by Match to Extractor.
type Route struct {
	Name      string
	Match     func(url string) bool
	Extractor Extractor
}

// Router picks a backend per URL: the first matching route, else the fallback.
type Router struct {
	routes   []Route
	fallback Extractor
}

func NewRouter(fallback Extractor, routes ...Route) *Router {
	return &Router{routes: routes, fallback: fallback}
}

func (r *Router) Extract(ctx context.Context, url string) (*Metadata, error) {
	for _, route := range r.routes {
		if route.Match(url) {
			log.Debug().Str("url", url).Str("backend", route.Name).Msg("Routing extraction")
			return route.Extractor.Extract(ctx, url)
		}
	}
	return r.fallback.Extract(ctx, url)
}

// New builds the extractor for the configured backend. yt-dlp handles every
// URL unless backend is "kkdai", which takes over YouTube hosts.
func New(backend, ytdlpPath, youtubeProxy string) Extractor {
	ytdlp := NewYtDlp(ytdlpPath)
	if backend != BackendKkdai {
		return ytdlp
	}
	return NewRouter(ytdlp, Route{
		Name:      BackendKkdai,
		Match:     IsYouTubeURL,
		Extractor: NewKkdai(youtubeProxy),
	})
}

// IsYouTubeURL reports whether raw points at a YouTube host.
func IsYouTubeURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	switch host {
	case "youtu.be", "youtube.com":
		return true
	}
	return strings.HasSuffix(host, ".youtube.com")
}
