package discord

import (
	"fmt"

	"psi-musicbot/internal/command"
	"psi-musicbot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// registerCommands overwrites the guild's slash commands with the registry's
// definitions, skipping the call when the same set was already sent.
func (b *Bot) registerCommands(guildID string) error {
	defs := slashDefinitions(b.registry)
	hash := hashCommands(defs)

	b.mu.Lock()
	if b.registered[guildID] == hash {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	appID := ""
	if b.dg.State != nil && b.dg.State.User != nil {
		appID = b.dg.State.User.ID
	}
	if appID == "" {
		user, err := b.dg.User("@me")
		if err != nil {
			return fmt.Errorf("failed to fetch bot user: %w", err)
		}
		appID = user.ID
	}

	if _, err := b.dg.ApplicationCommandBulkOverwrite(appID, guildID, defs); err != nil {
		return fmt.Errorf("bulk overwrite: %w", err)
	}

	b.mu.Lock()
	b.registered[guildID] = hash
	b.mu.Unlock()

	log.Info().Str("guild", guildID).Int("commands", len(defs)).Msg("Slash commands registered")
	return nil
}

func slashDefinitions(r *cmd.Registry) []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range r.GetAll() {
		sp, ok := cmd.Root(c).(command.SlashProvider)
		if !ok {
			continue
		}
		def := sp.SlashDefinition()
		if def == nil {
			continue
		}
		if def.Type == 0 {
			def.Type = discordgo.ChatApplicationCommand
		}
		defs = append(defs, def)
	}
	return defs
}
