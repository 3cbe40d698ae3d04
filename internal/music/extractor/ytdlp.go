package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNoMetadata is returned when yt-dlp produced no usable info dict.
var ErrNoMetadata = errors.New("yt-dlp returned no metadata")

// YtDlp extracts metadata by running the yt-dlp binary.
type YtDlp struct {
	// BinaryPath is the yt-dlp executable. Defaults to "yt-dlp".
	BinaryPath string
}

// NewYtDlp returns a YtDlp backend using bin, or "yt-dlp" when bin is empty.
func NewYtDlp(bin string) *YtDlp {
	return &YtDlp{BinaryPath: bin}
}

func (y *YtDlp) binary() string {
	if y.BinaryPath == "" {
		return "yt-dlp"
	}
	return y.BinaryPath
}

// Args returns the yt-dlp command line used for url.
func (y *YtDlp) Args(url string) []string {
	return []string{
		"--dump-single-json",
		"--no-warnings",
		"--format", "bestaudio/best",
		"--yes-playlist",
		"--no-check-certificates",
		"--ignore-errors",
		"--default-search", "auto",
		"--source-address", "0.0.0.0",
		"--restrict-filenames",
		"--", url,
	}
}

// Extract runs yt-dlp for url and decodes its single-JSON output.
func (y *YtDlp) Extract(ctx context.Context, url string) (*Metadata, error) {
	cmd := exec.CommandContext(ctx, y.binary(), y.Args(url)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// --ignore-errors lets yt-dlp exit non-zero while still describing the
	// entries it could extract; usable output wins over the exit status.
	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		if runErr != nil {
			return nil, fmt.Errorf("yt-dlp failed: %w: %s", runErr, strings.TrimSpace(stderr.String()))
		}
		return nil, ErrNoMetadata
	}

	var meta *Metadata
	if err := json.Unmarshal(out, &meta); err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("yt-dlp failed: %w: %s", runErr, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}
	if meta == nil {
		return nil, ErrNoMetadata
	}

	if runErr != nil {
		log.Warn().Err(runErr).Str("url", url).Str("stderr", strings.TrimSpace(stderr.String())).
			Msg("yt-dlp reported errors, using partial output")
	}
	return meta, nil
}
