package music

import (
	"context"
	"fmt"
	"time"

	"psi-musicbot/internal/command"
	"psi-musicbot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

type NowPlayingCommand struct {
	Player Controller
}

func (c *NowPlayingCommand) Name() string        { return "now_playing" }
func (c *NowPlayingCommand) Description() string { return "Show what is playing" }

func (c *NowPlayingCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return command.DefaultSlashDefinition(c)
}

func (c *NowPlayingCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, ok := command.FromInvocation(inv)
	if !ok {
		return nil
	}

	np, playing := c.Player.NowPlaying(cc.GuildID)
	if !playing {
		return reply(cc, "🎵 Now Playing", "Nothing is playing.")
	}

	name := np.Title
	if name == "" {
		name = np.SourceURL
	}
	embed := command.InfoEmbed("🎵 Now Playing", fmt.Sprintf("[%s](%s)", name, np.SourceURL))
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Provider", Value: string(np.Provider), Inline: true},
		{Name: "Playing for", Value: time.Since(np.Since).Round(time.Second).String(), Inline: true},
		{Name: "Channel", Value: "<#" + np.ChannelID + ">", Inline: true},
	}
	return cc.Reply.Embed(embed)
}
