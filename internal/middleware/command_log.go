package middleware

import (
	"context"

	"psi-musicbot/internal/command"
	"psi-musicbot/internal/storage"
	"psi-musicbot/pkg/cmd"

	"github.com/rs/zerolog/log"
)

type CommandRecorder interface {
	RecordCommand(rec storage.CommandRecord) error
}

// WithCommandLogger records every Discord invocation and logs failures.
// The record is written when the command starts, since play commands
// run for as long as the stream does.
func WithCommandLogger(store CommandRecorder) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			cc, ok := command.FromInvocation(inv)
			if !ok {
				return c.Run(ctx, inv)
			}

			logger := log.With().
				Str("command", c.Name()).
				Str("guild", cc.GuildID).
				Str("user", cc.Username).
				Logger()
			logger.Info().Strs("args", inv.Args).Bool("slash", cc.Slash).Msg("Command invoked")

			rec := storage.CommandRecord{
				GuildID:   cc.GuildID,
				ChannelID: cc.ChannelID,
				UserID:    cc.UserID,
				Username:  cc.Username,
				Command:   c.Name(),
				Args:      inv.Args,
				Slash:     cc.Slash,
			}
			if err := store.RecordCommand(rec); err != nil {
				logger.Warn().Err(err).Msg("Failed to log command")
			}

			err := c.Run(ctx, inv)
			if err != nil {
				logger.Error().Err(err).Msg("Command failed")
			}
			return err
		})
	}
}
