package music

import (
	"context"
	"errors"
	"fmt"

	"psi-musicbot/internal/command"
	"psi-musicbot/internal/config"
	"psi-musicbot/internal/music/player"
	"psi-musicbot/internal/music/resolver"
	"psi-musicbot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// PlayCommand plays one fixed configured source.
type PlayCommand struct {
	Source config.Source
	Player Controller
}

func (c *PlayCommand) Name() string        { return c.Source.Command }
func (c *PlayCommand) Description() string { return c.Source.Description }

func (c *PlayCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return command.DefaultSlashDefinition(c)
}

// Run blocks for as long as the stream plays.
func (c *PlayCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, ok := command.FromInvocation(inv)
	if !ok {
		return nil
	}

	if err := cc.Reply.Defer(); err != nil {
		return fmt.Errorf("failed to send deferred response: %w", err)
	}

	req := player.Request{
		GuildID: cc.GuildID,
		UserID:  cc.UserID,
		Command: c.Name(),
		URL:     c.Source.URL,
	}

	err := c.Player.Play(ctx, req, func(res *resolver.ResolvedStream) {
		if err := reply(cc, "🎶 Now Playing", fmt.Sprintf("[%s](%s)", res.DisplayName(), res.SourceURL)); err != nil {
			log.Warn().Err(err).Str("command", c.Name()).Msg("Failed to announce playback")
		}
	})

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	default:
		title, msg := describe(err, c.Source.URL)
		if rerr := replyError(cc, title, msg); rerr != nil {
			log.Warn().Err(rerr).Str("command", c.Name()).Msg("Failed to report playback error")
		}
		return command.Reported(err)
	}
}
