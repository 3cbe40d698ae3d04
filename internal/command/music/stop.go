package music

import (
	"context"
	"errors"

	"psi-musicbot/internal/command"
	"psi-musicbot/internal/music/player"
	"psi-musicbot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

type StopCommand struct {
	Player Controller
}

func (c *StopCommand) Name() string        { return "stop" }
func (c *StopCommand) Description() string { return "Stop playback and leave the voice channel" }

func (c *StopCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return command.DefaultSlashDefinition(c)
}

func (c *StopCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, ok := command.FromInvocation(inv)
	if !ok {
		return nil
	}

	err := c.Player.Stop(cc.GuildID)
	switch {
	case errors.Is(err, player.ErrNotPlaying):
		return reply(cc, "⏹ Stopped", "Nothing was playing.")
	case err != nil:
		return err
	}
	return reply(cc, "⏹ Stopped", "Playback stopped.")
}
