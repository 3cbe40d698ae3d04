package storage

import "time"

type PlayRecord struct {
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Command   string    `json:"command"`
	SourceURL string    `json:"source_url"`
	StreamURL string    `json:"stream_url"`
	Title     string    `json:"title,omitempty"`
	Provider  string    `json:"provider"`
	Datetime  time.Time `json:"datetime"`
}

// RecordPlay appends a started playback to the guild's history.
func (s *Storage) RecordPlay(rec PlayRecord) error {
	if rec.Datetime.IsZero() {
		rec.Datetime = time.Now().UTC()
	}
	return s.appendCapped(buckets.Plays, rec.GuildID, rec, s.playLimit)
}

// PlayHistory returns up to limit recent plays, newest first.
func (s *Storage) PlayHistory(guildID string, limit int) ([]PlayRecord, error) {
	return latest[PlayRecord](s, buckets.Plays, guildID, limit)
}
