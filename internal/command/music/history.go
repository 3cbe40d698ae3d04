package music

import (
	"context"
	"fmt"
	"strings"

	"psi-musicbot/internal/command"
	"psi-musicbot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

const historyLimit = 10

type HistoryCommand struct {
	Store PlayHistory
}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Description() string { return "Show recently played streams" }

func (c *HistoryCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return command.DefaultSlashDefinition(c)
}

func (c *HistoryCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, ok := command.FromInvocation(inv)
	if !ok {
		return nil
	}

	plays, err := c.Store.PlayHistory(cc.GuildID, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load play history: %w", err)
	}
	if len(plays) == 0 {
		return reply(cc, "📜 History", "Nothing has been played yet.")
	}

	var sb strings.Builder
	for _, p := range plays {
		name := p.Title
		if name == "" {
			name = p.SourceURL
		}
		fmt.Fprintf(&sb, "<t:%d:R> **%s** [%s](%s)", p.Datetime.Unix(), p.Command, name, p.SourceURL)
		if p.UserID != "" {
			fmt.Fprintf(&sb, " by <@%s>", p.UserID)
		}
		sb.WriteString("\n")
	}
	return reply(cc, "📜 History", sb.String())
}
