// Package resolver turns a source URL into exactly one playable stream or a
// typed failure.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"psi-musicbot/internal/music/extractor"
	"psi-musicbot/internal/music/stream"

	"github.com/rs/zerolog/log"
)

var (
	ErrStreamURLNotDetermined = errors.New("could not determine stream URL")
	ErrEmptyPlaylist          = errors.New("playlist has no entries")
)

// ExtractionError reports a failure of the extraction backend itself.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract info for %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type ResolvedStream struct {
	SourceURL string
	StreamURL string
	Title     string
	Provider  Provider
	Source    stream.Source
}

// DisplayName is the title when known, else the source URL.
func (r *ResolvedStream) DisplayName() string {
	if r.Title != "" {
		return r.Title
	}
	return r.SourceURL
}

// SourceFactory builds the transport for a resolved stream URL.
type SourceFactory func(streamURL string) stream.Source

// FFmpegSources builds reconnecting ffmpeg sources with opts.
func FFmpegSources(opts stream.FFmpegOptions) SourceFactory {
	return func(streamURL string) stream.Source {
		return stream.NewFFmpegSource(streamURL, opts)
	}
}

type Resolver struct {
	extractor extractor.Extractor
	rules     []Rule
	newSource SourceFactory
}

type Option func(*Resolver)

func WithRules(rules []Rule) Option {
	return func(r *Resolver) { r.rules = rules }
}

func WithSourceFactory(f SourceFactory) Option {
	return func(r *Resolver) { r.newSource = f }
}

func New(ext extractor.Extractor, opts ...Option) *Resolver {
	r := &Resolver{
		extractor: ext,
		rules:     DefaultRules(),
		newSource: FFmpegSources(stream.DefaultFFmpegOptions()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve extracts metadata for url, reduces a playlist to its first entry
// and selects a stream URL with the provider rules. It never retries.
func (r *Resolver) Resolve(ctx context.Context, url string) (*ResolvedStream, error) {
	meta, err := r.extractor.Extract(ctx, url)
	if err == nil && meta == nil {
		err = extractor.ErrNoMetadata
	}
	if err != nil {
		log.Error().Err(err).Str("url", url).Str("cause", fmt.Sprintf("%T", err)).Msg("Extraction failed")
		return nil, &ExtractionError{URL: url, Err: err}
	}

	if meta.IsPlaylist() {
		if len(meta.Entries) == 0 || meta.Entries[0] == nil {
			log.Warn().Str("url", url).Msg("Playlist has no playable first entry")
			return nil, fmt.Errorf("%w: %w", ErrStreamURLNotDetermined, ErrEmptyPlaylist)
		}
		meta = meta.Entries[0]
	}

	rule, ok := Classify(r.rules, url)
	if !ok {
		log.Warn().Str("url", url).Msg("No provider rule matches URL")
		return nil, fmt.Errorf("%w: unknown provider for %s", ErrStreamURLNotDetermined, url)
	}

	format, ok := rule.Select(meta.Formats)
	if !ok || format.URL == "" {
		log.Warn().Str("url", url).Str("provider", string(rule.Provider)).Int("formats", len(meta.Formats)).Msg("No format variant with a stream URL")
		return nil, fmt.Errorf("%w: no %s variant with a URL", ErrStreamURLNotDetermined, rule.Provider)
	}

	log.Info().Str("url", url).Str("provider", string(rule.Provider)).Str("stream_url", format.URL).Msg("Resolved stream")

	return &ResolvedStream{
		SourceURL: url,
		StreamURL: format.URL,
		Title:     meta.Title,
		Provider:  rule.Provider,
		Source:    r.newSource(format.URL),
	}, nil
}
