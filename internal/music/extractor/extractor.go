// Package extractor queries media-extraction backends for stream metadata.
//
// Backends describe a URL the way yt-dlp does: a single item or a playlist,
// each item carrying a list of format variants. Provider-specific selection of
// a variant happens in the resolver, not here.
package extractor

import "context"

// TypePlaylist marks a Metadata value that is a collection of entries.
const TypePlaylist = "playlist"

// Extractor returns metadata for a URL or fails.
type Extractor interface {
	Extract(ctx context.Context, url string) (*Metadata, error)
}

// Func adapts a plain function to Extractor.
type Func func(ctx context.Context, url string) (*Metadata, error)

func (f Func) Extract(ctx context.Context, url string) (*Metadata, error) {
	return f(ctx, url)
}

// Metadata is the subset of yt-dlp's info dict the bot cares about.
// Entries may contain nil items for entries the backend failed on.
type Metadata struct {
	Type    string      `json:"_type,omitempty"`
	ID      string      `json:"id,omitempty"`
	Title   string      `json:"title,omitempty"`
	Formats []Format    `json:"formats,omitempty"`
	Entries []*Metadata `json:"entries,omitempty"`
}

// IsPlaylist reports whether m is a collection.
func (m *Metadata) IsPlaylist() bool {
	return m != nil && m.Type == TypePlaylist
}

// Format is one encoding/stream variant of a media item.
type Format struct {
	FormatID string `json:"format_id,omitempty"`
	Note     string `json:"format_note,omitempty"`
	URL      string `json:"url,omitempty"`
}
