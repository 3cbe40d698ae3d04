package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"psi-musicbot/internal/music/resolver"
	"psi-musicbot/internal/music/stream"

	"github.com/rs/zerolog/log"
)

var (
	ErrNotPlaying         = errors.New("nothing is playing")
	ErrMaxDurationReached = errors.New("maximum play duration reached")

	errSuperseded = errors.New("superseded by a newer play")
)

type Options struct {
	Volume       float64
	PollInterval time.Duration
	// MaxDuration caps one playback; zero plays until the stream ends.
	MaxDuration time.Duration
	NewEncoder  func() (stream.Encoder, error)
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.NewEncoder == nil {
		o.NewEncoder = stream.NewOpusEncoder
	}
	return o
}

type NowPlaying struct {
	GuildID   string
	ChannelID string
	Title     string
	SourceURL string
	StreamURL string
	Provider  resolver.Provider
	Since     time.Time
}

// Player streams one source at a time into a guild's voice channel.
type Player struct {
	guildID  string
	voice    Voice
	presence Presence
	resolver Resolver
	opts     Options

	mu        sync.Mutex
	vc        VoiceConnection
	gen       uint64
	current   *playback
	listening bool // presence shows a play that may since have been stopped
}

type playback struct {
	gen     uint64
	info    NowPlaying
	cancel  context.CancelFunc
	done    chan struct{}
	sendErr error
	sent    chan struct{}
}

func New(guildID string, voice Voice, presence Presence, res Resolver, opts Options) *Player {
	return &Player{
		guildID:  guildID,
		voice:    voice,
		presence: presence,
		resolver: res,
		opts:     opts.withDefaults(),
	}
}

// Play joins channelID, stops whatever is playing, resolves url and streams
// it until the stream ends, Stop is called, a newer Play supersedes it, ctx
// is cancelled or MaxDuration elapses. onStart runs once audio starts.
// Presence and the voice connection are released afterwards unless a newer
// play has taken over. A resolution failure leaves the connection open.
func (p *Player) Play(ctx context.Context, channelID, url string, onStart func(*resolver.ResolvedStream)) error {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	prev := p.current
	p.current = nil
	p.mu.Unlock()

	if prev != nil {
		log.Debug().Str("guild", p.guildID).Str("url", prev.info.SourceURL).Msg("Stopping current playback")
		prev.cancel()
		<-prev.done
	}

	vc, err := p.ensureVoice(ctx, gen, channelID)
	if errors.Is(err, errSuperseded) {
		return nil
	}
	if err != nil {
		p.releasePresence(gen)
		return err
	}

	res, err := p.resolver.Resolve(ctx, url)
	if err != nil {
		p.releasePresence(gen)
		return err
	}

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return nil
	}
	p.listening = true
	p.mu.Unlock()

	if err := p.presence.SetListening(ctx, res.DisplayName(), url); err != nil {
		log.Warn().Err(err).Str("guild", p.guildID).Msg("Failed to set presence")
	}

	enc, err := p.opts.NewEncoder()
	if err != nil {
		p.teardown(gen)
		return err
	}

	playCtx, cancel := context.WithCancel(ctx)
	pcm, err := res.Source.Open(playCtx)
	if err != nil {
		cancel()
		p.teardown(gen)
		return fmt.Errorf("failed to open stream: %w", err)
	}

	pb := &playback{
		gen: gen,
		info: NowPlaying{
			GuildID:   p.guildID,
			ChannelID: channelID,
			Title:     res.Title,
			SourceURL: res.SourceURL,
			StreamURL: res.StreamURL,
			Provider:  res.Provider,
			Since:     time.Now(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
		sent:   make(chan struct{}),
	}

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		cancel()
		pcm.Close()
		return nil
	}
	p.current = pb
	p.mu.Unlock()

	go func() {
		defer close(pb.sent)
		if err := vc.Speaking(true); err != nil {
			log.Debug().Err(err).Msg("Couldn't set speaking")
		}
		pb.sendErr = stream.Send(playCtx, pcm, enc, vc.OpusSend(), p.opts.Volume)
		_ = vc.Speaking(false)
	}()

	log.Info().Str("guild", p.guildID).Str("channel", channelID).Str("url", url).Str("title", res.Title).Msg("Playback started")
	if onStart != nil {
		onStart(res)
	}

	err = p.wait(ctx, pb)
	cancel()
	<-pb.sent
	pcm.Close()

	p.mu.Lock()
	if p.current == pb {
		p.current = nil
	}
	p.mu.Unlock()
	p.teardown(gen)
	close(pb.done)

	log.Info().Err(err).Str("guild", p.guildID).Str("url", url).Msg("Playback finished")
	return err
}

// wait polls until the sender goroutine finishes or the playback is
// interrupted by ctx or the duration cap.
func (p *Player) wait(ctx context.Context, pb *playback) error {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if p.opts.MaxDuration > 0 {
		timer := time.NewTimer(p.opts.MaxDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return ErrMaxDurationReached
		case <-ticker.C:
			select {
			case <-pb.sent:
				if pb.sendErr != nil && !errors.Is(pb.sendErr, context.Canceled) {
					return pb.sendErr
				}
				return nil
			default:
			}
		}
	}
}

// Stop ends the current playback and leaves the voice channel. With nothing
// playing it still leaves an idle connection, clears a stale presence and
// reports ErrNotPlaying.
func (p *Player) Stop() error {
	p.mu.Lock()
	pb := p.current
	if pb == nil {
		// Abandon any play still resolving.
		p.gen++
		vc := p.vc
		p.vc = nil
		listening := p.listening
		p.listening = false
		p.mu.Unlock()
		if listening {
			p.clearPresence()
		}
		if vc != nil {
			if err := vc.Disconnect(); err != nil {
				log.Warn().Err(err).Str("guild", p.guildID).Msg("Disconnect failed")
			}
		}
		return ErrNotPlaying
	}
	p.mu.Unlock()

	pb.cancel()
	<-pb.done
	return nil
}

func (p *Player) NowPlaying() (NowPlaying, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return NowPlaying{}, false
	}
	return p.current.info, true
}

// releasePresence clears a listening status left behind by a play this one
// stopped, as long as gen still owns the player.
func (p *Player) releasePresence(gen uint64) {
	p.mu.Lock()
	if p.gen != gen || !p.listening {
		p.mu.Unlock()
		return
	}
	p.listening = false
	p.mu.Unlock()
	p.clearPresence()
}

func (p *Player) clearPresence() {
	if err := p.presence.Clear(context.Background()); err != nil {
		log.Warn().Err(err).Str("guild", p.guildID).Msg("Failed to clear presence")
	}
}

// ensureVoice reuses the connection when it already sits in channelID. A
// connection joined after gen was superseded is dropped again.
func (p *Player) ensureVoice(ctx context.Context, gen uint64, channelID string) (VoiceConnection, error) {
	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return nil, errSuperseded
	}
	vc := p.vc
	p.mu.Unlock()

	if vc != nil && vc.ChannelID() == channelID {
		return vc, nil
	}

	vc, err := p.voice.Join(ctx, p.guildID, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}
	log.Info().Str("guild", p.guildID).Str("channel", channelID).Msg("Joined voice channel")

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		if err := vc.Disconnect(); err != nil {
			log.Warn().Err(err).Str("guild", p.guildID).Msg("Disconnect failed")
		}
		return nil, errSuperseded
	}
	p.vc = vc
	p.mu.Unlock()
	return vc, nil
}

// teardown clears presence and disconnects, unless gen has been superseded.
func (p *Player) teardown(gen uint64) {
	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	vc := p.vc
	p.vc = nil
	p.listening = false
	p.mu.Unlock()

	p.clearPresence()
	if vc != nil {
		if err := vc.Disconnect(); err != nil {
			log.Warn().Err(err).Str("guild", p.guildID).Msg("Disconnect failed")
		}
	}
}
