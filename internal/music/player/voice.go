package player

import (
	"context"

	"psi-musicbot/internal/music/resolver"
	"psi-musicbot/internal/storage"
)

// VoiceConnection is a joined voice channel that accepts Opus packets.
type VoiceConnection interface {
	ChannelID() string
	Speaking(bool) error
	OpusSend() chan<- []byte
	Disconnect() error
}

type Voice interface {
	Join(ctx context.Context, guildID, channelID string) (VoiceConnection, error)
}

// Presence is the bot's "Listening to" status.
type Presence interface {
	SetListening(ctx context.Context, name, url string) error
	Clear(ctx context.Context) error
}

type Resolver interface {
	Resolve(ctx context.Context, url string) (*resolver.ResolvedStream, error)
}

// VoiceLocator answers where a channel lives and where a user sits.
type VoiceLocator interface {
	ChannelGuild(channelID string) (string, error)
	UserVoiceChannel(guildID, userID string) (string, error)
}

type History interface {
	RecordPlay(rec storage.PlayRecord) error
}
