package middleware

import (
	"context"
	"fmt"

	"psi-musicbot/internal/command"
	"psi-musicbot/pkg/cmd"
)

// WithGuildOnly refuses invocations that did not come from a guild, telling
// the invoker privately.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if cc, ok := command.FromInvocation(inv); ok && cc.GuildID == "" {
				embed := command.ErrorEmbed("Server only", fmt.Sprintf("`%s` only works in a server.", c.Name()))
				if err := cc.Reply.Private(embed); err != nil {
					return fmt.Errorf("failed to refuse direct message: %w", err)
				}
				return nil
			}
			return c.Run(ctx, inv)
		})
	}
}
