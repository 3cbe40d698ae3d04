package player

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"psi-musicbot/internal/music/resolver"
	"psi-musicbot/internal/music/stream"
	"psi-musicbot/internal/storage"
)

type fakeConn struct {
	channelID   string
	send        chan []byte
	disconnects atomic.Int32
	stopDrain   chan struct{}
}

func newFakeConn(channelID string) *fakeConn {
	c := &fakeConn{channelID: channelID, send: make(chan []byte), stopDrain: make(chan struct{})}
	go func() {
		for {
			select {
			case <-c.send:
			case <-c.stopDrain:
				return
			}
		}
	}()
	return c
}

func (c *fakeConn) ChannelID() string       { return c.channelID }
func (c *fakeConn) Speaking(bool) error     { return nil }
func (c *fakeConn) OpusSend() chan<- []byte { return c.send }
func (c *fakeConn) Disconnect() error {
	c.disconnects.Add(1)
	return nil
}

type fakeVoice struct {
	mu    sync.Mutex
	joins []string
	conns []*fakeConn
	err   error
}

func (v *fakeVoice) Join(ctx context.Context, guildID, channelID string) (VoiceConnection, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	c := newFakeConn(channelID)
	v.joins = append(v.joins, guildID+"/"+channelID)
	v.conns = append(v.conns, c)
	return c, nil
}

func (v *fakeVoice) disconnects() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, c := range v.conns {
		n += int(c.disconnects.Load())
	}
	return n
}

func (v *fakeVoice) joinCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.joins)
}

type fakePresence struct {
	mu      sync.Mutex
	current string
	sets    []string
	clears  int
}

func (p *fakePresence) SetListening(ctx context.Context, name, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = name
	p.sets = append(p.sets, name)
	return nil
}

func (p *fakePresence) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = ""
	p.clears++
	return nil
}

func (p *fakePresence) snapshot() (string, []string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, append([]string(nil), p.sets...), p.clears
}

// pcmSource yields size bytes of silence, or endless silence when size < 0.
type pcmSource struct {
	size int
}

func (s pcmSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return &pcmReader{left: s.size}, nil
}

type pcmReader struct {
	mu     sync.Mutex
	left   int
	closed bool
}

func (r *pcmReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.left == 0 {
		return 0, io.EOF
	}
	n := len(p)
	if r.left > 0 && n > r.left {
		n = r.left
	}
	clear(p[:n])
	if r.left > 0 {
		r.left -= n
	}
	return n, nil
}

func (r *pcmReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type fakeResolver struct {
	title string
	size  int
	err   error
	// errs fails individual URLs.
	errs  map[string]error
	block chan struct{}
	// blockURL limits block to one URL; empty blocks every URL.
	blockURL string
	calls    atomic.Int32
}

func (f *fakeResolver) Resolve(ctx context.Context, url string) (*resolver.ResolvedStream, error) {
	f.calls.Add(1)
	if f.block != nil && (f.blockURL == "" || f.blockURL == url) {
		<-f.block
	}
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &resolver.ResolvedStream{
		SourceURL: url,
		StreamURL: url + "/audio",
		Title:     f.title,
		Provider:  resolver.ProviderIcecast,
		Source:    pcmSource{size: f.size},
	}, nil
}

type nopEncoder struct{}

func (nopEncoder) Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error) {
	return []byte{0xf8}, nil
}

func newNopEncoder() (stream.Encoder, error) { return nopEncoder{}, nil }

type fakeLocator struct {
	channels map[string]string // channel -> guild
	users    map[string]string // guild/user -> channel
}

func (l fakeLocator) ChannelGuild(channelID string) (string, error) {
	if g, ok := l.channels[channelID]; ok {
		return g, nil
	}
	return "", errors.New("unknown channel")
}

func (l fakeLocator) UserVoiceChannel(guildID, userID string) (string, error) {
	if c, ok := l.users[guildID+"/"+userID]; ok {
		return c, nil
	}
	return "", errors.New("user not in any voice channel")
}

type fakeHistory struct {
	mu    sync.Mutex
	plays []storage.PlayRecord
}

func (h *fakeHistory) RecordPlay(rec storage.PlayRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.plays = append(h.plays, rec)
	return nil
}

func (h *fakeHistory) records() []storage.PlayRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]storage.PlayRecord(nil), h.plays...)
}
