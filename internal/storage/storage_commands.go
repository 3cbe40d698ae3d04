package storage

import "time"

type CommandRecord struct {
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Args      []string  `json:"args,omitempty"`
	Slash     bool      `json:"slash"`
	Datetime  time.Time `json:"datetime"`
}

// RecordCommand appends a command invocation to the guild's history.
func (s *Storage) RecordCommand(rec CommandRecord) error {
	if rec.Datetime.IsZero() {
		rec.Datetime = time.Now().UTC()
	}
	return s.appendCapped(buckets.Commands, rec.GuildID, rec, s.commandLimit)
}

// CommandHistory returns up to limit recent commands, newest first. A
// non-positive limit returns everything kept.
func (s *Storage) CommandHistory(guildID string, limit int) ([]CommandRecord, error) {
	return latest[CommandRecord](s, buckets.Commands, guildID, limit)
}
