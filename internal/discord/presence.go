package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// maxActivityName is Discord's limit for an activity name.
const maxActivityName = 128

// Presence sets the bot's "Listening to" status, throttled below the
// gateway's presence update budget.
type Presence struct {
	s       *discordgo.Session
	limiter *rate.Limiter
}

func NewPresence(s *discordgo.Session) *Presence {
	return &Presence{s: s, limiter: rate.NewLimiter(rate.Every(4*time.Second), 5)}
}

func (p *Presence) SetListening(ctx context.Context, name, url string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	return p.s.UpdateStatusComplex(listeningStatus(name, url))
}

func (p *Presence) Clear(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	return p.s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status:     string(discordgo.StatusOnline),
		Activities: []*discordgo.Activity{},
	})
}

func listeningStatus(name, url string) discordgo.UpdateStatusData {
	if r := []rune(name); len(r) > maxActivityName {
		name = string(r[:maxActivityName-1]) + "…"
	}
	return discordgo.UpdateStatusData{
		Status: string(discordgo.StatusOnline),
		Activities: []*discordgo.Activity{{
			Name: name,
			Type: discordgo.ActivityTypeListening,
			URL:  url,
		}},
	}
}
