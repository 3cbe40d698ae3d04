package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"psi-musicbot/internal/music/resolver"
	"psi-musicbot/internal/storage"

	"github.com/rs/zerolog/log"
)

var ErrNoVoiceChannel = errors.New("user is not in a voice channel")

// Request is one play command invocation.
type Request struct {
	GuildID string
	UserID  string
	Command string
	URL     string
}

type ManagerConfig struct {
	Voice    Voice
	Presence Presence
	Resolver Resolver
	Locator  VoiceLocator
	// History may be nil.
	History History
	// VoiceChannelID, when set, is joined for every play regardless of
	// where the invoking user is.
	VoiceChannelID string
	Options        Options
}

// Manager owns one Player per guild.
type Manager struct {
	cfg ManagerConfig

	mu      sync.Mutex
	players map[string]*Player
}

func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{cfg: cfg, players: make(map[string]*Player)}
}

// Player returns the guild's player, creating it on first use.
func (m *Manager) Player(guildID string) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.players[guildID]; ok {
		return p
	}
	p := New(guildID, m.cfg.Voice, m.cfg.Presence, m.cfg.Resolver, m.cfg.Options)
	m.players[guildID] = p
	return p
}

// Play picks the voice target for req and plays req.URL there, recording
// the play in history once audio starts. It blocks like Player.Play.
func (m *Manager) Play(ctx context.Context, req Request, onStart func(*resolver.ResolvedStream)) error {
	guildID, channelID, err := m.target(req)
	if err != nil {
		return err
	}

	return m.Player(guildID).Play(ctx, channelID, req.URL, func(res *resolver.ResolvedStream) {
		m.record(req, guildID, channelID, res)
		if onStart != nil {
			onStart(res)
		}
	})
}

func (m *Manager) Stop(guildID string) error {
	return m.Player(m.playerGuild(guildID)).Stop()
}

func (m *Manager) NowPlaying(guildID string) (NowPlaying, bool) {
	return m.Player(m.playerGuild(guildID)).NowPlaying()
}

// StopAll stops every player; used on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	players := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.mu.Unlock()

	for _, p := range players {
		if err := p.Stop(); err != nil && !errors.Is(err, ErrNotPlaying) {
			log.Warn().Err(err).Str("guild", p.guildID).Msg("Stop failed")
		}
	}
}

func (m *Manager) target(req Request) (guildID, channelID string, err error) {
	if ch := m.cfg.VoiceChannelID; ch != "" {
		guildID, err := m.cfg.Locator.ChannelGuild(ch)
		if err != nil {
			return "", "", fmt.Errorf("configured voice channel %s: %w", ch, err)
		}
		return guildID, ch, nil
	}

	if req.GuildID == "" {
		return "", "", ErrNoVoiceChannel
	}
	channelID, err = m.cfg.Locator.UserVoiceChannel(req.GuildID, req.UserID)
	if err != nil || channelID == "" {
		return "", "", ErrNoVoiceChannel
	}
	return req.GuildID, channelID, nil
}

// playerGuild maps a command's guild to the guild whose player it controls.
func (m *Manager) playerGuild(guildID string) string {
	if ch := m.cfg.VoiceChannelID; ch != "" {
		if g, err := m.cfg.Locator.ChannelGuild(ch); err == nil {
			return g
		}
	}
	return guildID
}

func (m *Manager) record(req Request, guildID, channelID string, res *resolver.ResolvedStream) {
	if m.cfg.History == nil {
		return
	}
	err := m.cfg.History.RecordPlay(storage.PlayRecord{
		GuildID:   guildID,
		ChannelID: channelID,
		UserID:    req.UserID,
		Command:   req.Command,
		SourceURL: res.SourceURL,
		StreamURL: res.StreamURL,
		Title:     res.Title,
		Provider:  string(res.Provider),
	})
	if err != nil {
		log.Warn().Err(err).Str("guild", guildID).Msg("Failed to record play")
	}
}
