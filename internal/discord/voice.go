package discord

import (
	"context"
	"errors"
	"fmt"

	"psi-musicbot/internal/music/player"

	"github.com/bwmarrin/discordgo"
)

var errNotInVoice = errors.New("user not in any voice channel")

// Voice joins voice channels and looks up voice state for the player.
type Voice struct {
	s *discordgo.Session
}

func NewVoice(s *discordgo.Session) *Voice {
	return &Voice{s: s}
}

func (v *Voice) Join(ctx context.Context, guildID, channelID string) (player.VoiceConnection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vc, err := v.s.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}
	return voiceConn{vc: vc}, nil
}

// ChannelGuild returns the guild a channel belongs to.
func (v *Voice) ChannelGuild(channelID string) (string, error) {
	ch, err := v.s.State.Channel(channelID)
	if err != nil {
		ch, err = v.s.Channel(channelID)
		if err != nil {
			return "", fmt.Errorf("error retrieving channel: %w", err)
		}
	}
	if ch.GuildID == "" {
		return "", fmt.Errorf("channel %s is not a guild channel", channelID)
	}
	return ch.GuildID, nil
}

// UserVoiceChannel finds the voice channel the user currently sits in.
func (v *Voice) UserVoiceChannel(guildID, userID string) (string, error) {
	guild, err := v.s.State.Guild(guildID)
	if err != nil {
		return "", fmt.Errorf("error retrieving guild: %w", err)
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, nil
		}
	}
	return "", errNotInVoice
}

type voiceConn struct {
	vc *discordgo.VoiceConnection
}

func (c voiceConn) ChannelID() string       { return c.vc.ChannelID }
func (c voiceConn) Speaking(b bool) error   { return c.vc.Speaking(b) }
func (c voiceConn) OpusSend() chan<- []byte { return c.vc.OpusSend }
func (c voiceConn) Disconnect() error       { return c.vc.Disconnect() }
