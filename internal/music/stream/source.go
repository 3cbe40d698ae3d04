package stream

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	Channels   = 2
	SampleRate = 48000
	FrameSize  = 960 // 20ms at 48kHz
)

// Source is a playable transport. The reader yields s16le PCM at
// SampleRate with Channels interleaved; closing it releases the transport.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

type FFmpegOptions struct {
	BinaryPath        string
	Reconnect         bool
	ReconnectStreamed bool
	ReconnectDelayMax time.Duration
}

// DefaultFFmpegOptions reconnects dropped network streams for up to 5s.
func DefaultFFmpegOptions() FFmpegOptions {
	return FFmpegOptions{
		BinaryPath:        "ffmpeg",
		Reconnect:         true,
		ReconnectStreamed: true,
		ReconnectDelayMax: 5 * time.Second,
	}
}

// FFmpegSource transcodes a remote stream URL to PCM with an ffmpeg subprocess.
type FFmpegSource struct {
	URL     string
	Options FFmpegOptions
}

func NewFFmpegSource(url string, opts FFmpegOptions) *FFmpegSource {
	if opts.BinaryPath == "" {
		opts.BinaryPath = "ffmpeg"
	}
	return &FFmpegSource{URL: url, Options: opts}
}

func (s *FFmpegSource) Args() []string {
	var args []string
	if s.Options.Reconnect {
		args = append(args, "-reconnect", "1")
	}
	if s.Options.ReconnectStreamed {
		args = append(args, "-reconnect_streamed", "1")
	}
	if d := s.Options.ReconnectDelayMax; d > 0 {
		args = append(args, "-reconnect_delay_max", strconv.Itoa(int(d/time.Second)))
	}
	return append(args,
		"-i", s.URL,
		"-vn",
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-loglevel", "warning",
		"pipe:1",
	)
}

func (s *FFmpegSource) Open(ctx context.Context) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, s.Options.BinaryPath, s.Args()...)
	cmd.Stderr = stderrLogger{url: s.URL}

	reader, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("command start error: %w", err)
	}
	log.Debug().Str("url", s.URL).Int("pid", cmd.Process.Pid).Msg("ffmpeg started")

	return &processReader{ReadCloser: reader, cmd: cmd}, nil
}

// processReader kills and reaps the subprocess on Close.
type processReader struct {
	io.ReadCloser
	cmd  *exec.Cmd
	once sync.Once
}

func (p *processReader) Close() error {
	p.once.Do(func() {
		_ = p.cmd.Process.Kill()
		_ = p.cmd.Wait()
	})
	return nil
}

type stderrLogger struct {
	url string
}

func (l stderrLogger) Write(b []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			log.Warn().Str("url", l.url).Msg("ffmpeg: " + line)
		}
	}
	return len(b), nil
}
