package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"psi-musicbot/internal/command"
	"psi-musicbot/pkg/cmd"

	"golang.org/x/time/rate"
)

// idleLimiterTTL bounds how long an unused per-user limiter is kept.
const idleLimiterTTL = 10 * time.Minute

// WithCooldown allows each user burst invocations of the command, refilled
// once per every. Limited users get a reply instead of a run.
func WithCooldown(every time.Duration, burst int) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		limits := newUserLimits(rate.Every(every), burst)

		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			cc, ok := command.FromInvocation(inv)
			if !ok || limits.allow(cc.UserID, time.Now()) {
				return c.Run(ctx, inv)
			}
			return cc.Reply.Embed(command.ErrorEmbed("Slow down",
				fmt.Sprintf("`%s` can be used once every %s.", c.Name(), every)))
		})
	}
}

type userLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type userLimits struct {
	mu     sync.Mutex
	limit  rate.Limit
	burst  int
	users  map[string]*userLimit
	pruned time.Time
}

func newUserLimits(limit rate.Limit, burst int) *userLimits {
	return &userLimits{limit: limit, burst: burst, users: make(map[string]*userLimit)}
}

func (u *userLimits) allow(userID string, now time.Time) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if now.Sub(u.pruned) > idleLimiterTTL {
		for id, l := range u.users {
			if now.Sub(l.lastSeen) > idleLimiterTTL {
				delete(u.users, id)
			}
		}
		u.pruned = now
	}

	l, ok := u.users[userID]
	if !ok {
		l = &userLimit{limiter: rate.NewLimiter(u.limit, u.burst)}
		u.users[userID] = l
	}
	l.lastSeen = now
	return l.limiter.AllowN(now, 1)
}
