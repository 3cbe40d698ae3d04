package player

import (
	"context"
	"testing"

	"psi-musicbot/internal/music/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(channelID string, history *fakeHistory) (*Manager, *fakeVoice) {
	voice := &fakeVoice{}
	cfg := ManagerConfig{
		Voice:    voice,
		Presence: &fakePresence{},
		Resolver: &fakeResolver{title: "Radio PSI", size: frameBytes},
		Locator: fakeLocator{
			channels: map[string]string{"cfg-vc": "home-guild"},
			users:    map[string]string{"g1/alice": "alice-vc"},
		},
		VoiceChannelID: channelID,
		Options:        testOptions(),
	}
	if history != nil {
		cfg.History = history
	}
	return NewManager(cfg), voice
}

func TestManagerUsesConfiguredChannel(t *testing.T) {
	history := &fakeHistory{}
	m, voice := newTestManager("cfg-vc", history)

	var title string
	err := m.Play(context.Background(), Request{GuildID: "g1", UserID: "bob", Command: "play_icecast", URL: "http://icecast/psi"},
		func(res *resolver.ResolvedStream) { title = res.Title })
	require.NoError(t, err)

	assert.Equal(t, "Radio PSI", title)
	assert.Equal(t, []string{"home-guild/cfg-vc"}, voice.joins)

	plays := history.records()
	require.Len(t, plays, 1)
	assert.Equal(t, "home-guild", plays[0].GuildID)
	assert.Equal(t, "cfg-vc", plays[0].ChannelID)
	assert.Equal(t, "bob", plays[0].UserID)
	assert.Equal(t, "play_icecast", plays[0].Command)
	assert.Equal(t, "icecast", plays[0].Provider)

	// Commands from any guild control the configured guild's player.
	assert.Same(t, m.Player("home-guild"), m.Player(m.playerGuild("g1")))
}

func TestManagerFollowsUser(t *testing.T) {
	m, voice := newTestManager("", nil)

	require.NoError(t, m.Play(context.Background(), Request{GuildID: "g1", UserID: "alice", URL: "u"}, nil))
	assert.Equal(t, []string{"g1/alice-vc"}, voice.joins)
}

func TestManagerNoVoiceChannel(t *testing.T) {
	m, voice := newTestManager("", nil)

	err := m.Play(context.Background(), Request{GuildID: "g1", UserID: "bob", URL: "u"}, nil)
	assert.ErrorIs(t, err, ErrNoVoiceChannel)

	err = m.Play(context.Background(), Request{UserID: "alice", URL: "u"}, nil)
	assert.ErrorIs(t, err, ErrNoVoiceChannel)
	assert.Empty(t, voice.joins)
}

func TestManagerUnknownConfiguredChannel(t *testing.T) {
	m, _ := newTestManager("gone", nil)

	err := m.Play(context.Background(), Request{GuildID: "g1", UserID: "alice", URL: "u"}, nil)
	assert.ErrorContains(t, err, "configured voice channel gone")
}

func TestManagerStopAndNowPlaying(t *testing.T) {
	m, _ := newTestManager("", nil)

	assert.ErrorIs(t, m.Stop("g1"), ErrNotPlaying)
	_, ok := m.NowPlaying("g1")
	assert.False(t, ok)

	m.StopAll()
}
