package discord

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// messageResponder replies to prefix commands in the invoking channel.
type messageResponder struct {
	s         *discordgo.Session
	channelID string
}

func (r *messageResponder) Defer() error { return nil }

func (r *messageResponder) Embed(embed *discordgo.MessageEmbed) error {
	return MessageEmbed(r.s, r.channelID, embed)
}

func (r *messageResponder) Private(embed *discordgo.MessageEmbed) error {
	return MessageEmbed(r.s, r.channelID, embed)
}

// Discord invalidates interaction tokens 15 minutes after the first response.
// Replies later than this go to the channel instead of as followups.
const followupWindow = 14 * time.Minute

func followupExpired(ackedAt, now time.Time) bool {
	return now.Sub(ackedAt) >= followupWindow
}

// interactionResponder answers the first reply directly and everything
// after a defer or first reply as followups.
type interactionResponder struct {
	s *discordgo.Session
	i *discordgo.InteractionCreate

	mu           sync.Mutex
	acknowledged bool
	ackedAt      time.Time
}

func (r *interactionResponder) ack() {
	r.acknowledged = true
	r.ackedAt = time.Now()
}

func (r *interactionResponder) Defer() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acknowledged {
		return nil
	}
	if err := RespondDeferred(r.s, r.i); err != nil {
		return err
	}
	r.ack()
	return nil
}

func (r *interactionResponder) Embed(embed *discordgo.MessageEmbed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acknowledged {
		if followupExpired(r.ackedAt, time.Now()) {
			return MessageEmbed(r.s, r.i.ChannelID, embed)
		}
		return FollowupEmbed(r.s, r.i, embed)
	}
	if err := RespondEmbed(r.s, r.i, embed); err != nil {
		return err
	}
	r.ack()
	return nil
}

func (r *interactionResponder) Private(embed *discordgo.MessageEmbed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acknowledged {
		if followupExpired(r.ackedAt, time.Now()) {
			return MessageEmbed(r.s, r.i.ChannelID, embed)
		}
		_, err := r.s.FollowupMessageCreate(r.i.Interaction, false, &discordgo.WebhookParams{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		})
		return err
	}
	if err := RespondEphemeralEmbed(r.s, r.i, embed); err != nil {
		return err
	}
	r.ack()
	return nil
}

// RespondEmbed sends a public embed response to an interaction.
func RespondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
}

// RespondEphemeralEmbed sends an embed response only the invoker can see.
func RespondEphemeralEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

// RespondDeferred acknowledges an interaction without an immediate reply.
func RespondDeferred(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

// FollowupEmbed sends a public embed followup message.
func FollowupEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	_, err := s.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	return err
}

// MessageEmbed sends an embed to a channel.
func MessageEmbed(s *discordgo.Session, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := s.ChannelMessageSendEmbed(channelID, embed)
	return err
}
