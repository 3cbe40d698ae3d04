package command

import (
	"errors"

	"psi-musicbot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

const EmbedColor = 0xb01e66

// Context is what the Discord adapter passes in cmd.Invocation.Data for
// both message-prefix and slash invocations.
type Context struct {
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	Slash     bool
	Reply     Responder
}

// Responder replies to the invocation without commands touching the session.
type Responder interface {
	// Defer acknowledges a slow command. A no-op for message commands.
	Defer() error
	Embed(embed *discordgo.MessageEmbed) error
	// Private replies so only the invoker sees it, where the transport
	// allows that.
	Private(embed *discordgo.MessageEmbed) error
}

// SlashProvider is implemented by commands that register a slash definition.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// FromInvocation extracts the Discord context, if any.
func FromInvocation(inv *cmd.Invocation) (*Context, bool) {
	if inv == nil {
		return nil, false
	}
	ctx, ok := inv.Data.(*Context)
	return ctx, ok && ctx != nil
}

// DefaultSlashDefinition builds an option-less slash command for c.
func DefaultSlashDefinition(c cmd.Command) *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func InfoEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: description, Color: EmbedColor}
}

func ErrorEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "❌ " + title, Description: description, Color: EmbedColor}
}

// ReportedError marks an error the command already showed to the user, so
// the adapter only logs it.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }
func (e *ReportedError) Unwrap() error { return e.Err }

func Reported(err error) error {
	if err == nil {
		return nil
	}
	return &ReportedError{Err: err}
}

func IsReported(err error) bool {
	var r *ReportedError
	return errors.As(err, &r)
}
