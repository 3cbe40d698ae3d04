// Package music holds the playback commands.
package music

import (
	"context"
	"errors"
	"fmt"

	"psi-musicbot/internal/command"
	"psi-musicbot/internal/music/player"
	"psi-musicbot/internal/music/resolver"
	"psi-musicbot/internal/storage"
)

// Controller is the part of player.Manager the commands drive.
type Controller interface {
	Play(ctx context.Context, req player.Request, onStart func(*resolver.ResolvedStream)) error
	Stop(guildID string) error
	NowPlaying(guildID string) (player.NowPlaying, bool)
}

type PlayHistory interface {
	PlayHistory(guildID string, limit int) ([]storage.PlayRecord, error)
}

// describe turns a playback failure into a user-facing title and message.
func describe(err error, url string) (string, string) {
	var extErr *resolver.ExtractionError
	switch {
	case errors.As(err, &extErr):
		return "Extraction failed", fmt.Sprintf("Couldn't fetch stream info for <%s>.", url)
	case errors.Is(err, resolver.ErrEmptyPlaylist):
		return "Empty playlist", fmt.Sprintf("<%s> has nothing to play.", url)
	case errors.Is(err, resolver.ErrStreamURLNotDetermined):
		return "No stream found", fmt.Sprintf("Couldn't determine a playable stream for <%s>.", url)
	case errors.Is(err, player.ErrNoVoiceChannel):
		return "Voice Error", "Join a voice channel first."
	case errors.Is(err, player.ErrMaxDurationReached):
		return "Time's up", "Playback reached the configured maximum duration."
	default:
		return "Playback Error", err.Error()
	}
}

func reply(c *command.Context, title, description string) error {
	return c.Reply.Embed(command.InfoEmbed(title, description))
}

func replyError(c *command.Context, title, description string) error {
	return c.Reply.Embed(command.ErrorEmbed(title, description))
}
