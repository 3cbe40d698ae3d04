package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"psi-musicbot/internal/command"
	"psi-musicbot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsMessageContent

// Bot dispatches message-prefix and slash commands from one session to a
// command registry.
type Bot struct {
	dg       *discordgo.Session
	registry *cmd.Registry
	prefix   string

	ctx context.Context

	mu         sync.Mutex
	registered map[string]string // guild ID -> hash of registered definitions
}

func New(token, prefix string, registry *cmd.Registry) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = intents

	return &Bot{
		dg:         dg,
		registry:   registry,
		prefix:     prefix,
		ctx:        context.Background(),
		registered: make(map[string]string),
	}, nil
}

// Session is exposed for the voice and presence adapters.
func (b *Bot) Session() *discordgo.Session { return b.dg }

// Run opens the gateway and serves commands until ctx is done. Commands run
// with ctx, so cancelling it also ends playback.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onInteractionCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	log.Info().Msg("❎ Shutdown signal received. Cleaning up...")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		if err := b.registerCommands(g.ID); err != nil {
			log.Error().Err(err).Str("guild", g.ID).Msg("Error registering slash commands")
		}
	}
	log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("✅ Discord bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	log.Debug().Str("guild", g.ID).Str("name", g.Name).Msg("Guild available")
	if err := b.registerCommands(g.ID); err != nil {
		log.Error().Err(err).Str("guild", g.ID).Msg("Failed to register commands for guild")
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}

	name, args, ok := parsePrefixed(b.prefix, m.Content)
	if !ok {
		return
	}
	c := b.registry.Get(name)
	if c == nil {
		return
	}

	b.run(c, args, &command.Context{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		Username:  m.Author.Username,
		Reply:     &messageResponder{s: s, channelID: m.ChannelID},
	})
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	c := b.registry.Get(name)
	if c == nil {
		log.Warn().Str("command", name).Msg("Unknown command")
		return
	}

	user := interactionUser(i)
	b.run(c, nil, &command.Context{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		UserID:    user.ID,
		Username:  user.Username,
		Slash:     true,
		Reply:     &interactionResponder{s: s, i: i},
	})
}

// run executes c on the event goroutine; play commands block here while
// their stream lasts.
func (b *Bot) run(c cmd.Command, args []string, cc *command.Context) {
	err := c.Run(b.ctx, &cmd.Invocation{Args: args, Data: cc})
	if err == nil || command.IsReported(err) {
		return
	}

	log.Error().Err(err).Str("command", c.Name()).Msg("Error running command")
	if rerr := cc.Reply.Embed(command.ErrorEmbed("Command failed", err.Error())); rerr != nil {
		log.Warn().Err(rerr).Str("command", c.Name()).Msg("Failed to report command error")
	}
}

// parsePrefixed splits "$name arg..." into the command name and arguments.
func parsePrefixed(prefix, content string) (string, []string, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	if i.User != nil {
		return i.User
	}
	return &discordgo.User{ID: "unknown", Username: "Unknown"}
}
