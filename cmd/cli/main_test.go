package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"psi-musicbot/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"psi-musicbot-cli"}, args...))
	return out.String(), err
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.json")

	out, err := runApp(t, "init-config", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"psi_icecast_url"`)

	_, err = runApp(t, "init-config", "--path", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = runApp(t, "init-config", "--path", path, "--force")
	assert.NoError(t, err)
}

func TestHistory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	store, err := storage.New(db)
	require.NoError(t, err)
	require.NoError(t, store.RecordPlay(storage.PlayRecord{GuildID: "g1", Command: "play_twitch", Provider: "twitch", SourceURL: "https://www.twitch.tv/radiopsi"}))
	require.NoError(t, store.RecordCommand(storage.CommandRecord{GuildID: "g1", Username: "alice", Command: "stop"}))
	require.NoError(t, store.Close())

	out, err := runApp(t, "history", "--db", db, "--guild", "g1")
	require.NoError(t, err)
	assert.Contains(t, out, "play_twitch")
	assert.Contains(t, out, "https://www.twitch.tv/radiopsi")

	out, err = runApp(t, "history", "--db", db, "--guild", "g1", "--commands")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "stop")
}

func TestResolveNeedsURL(t *testing.T) {
	_, err := runApp(t, "resolve")
	assert.ErrorContains(t, err, "at least one URL is required")
}

func TestResolveWithFakeYtDlp(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "yt-dlp")
	script := "#!/bin/sh\necho '{\"title\":\"Radio PSI\",\"formats\":[{\"url\":\"https://relay/psi.ogg\"}]}'\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	out, err := runApp(t, "resolve", "--ytdlp", bin, "--youtube-backend", "ytdlp", "http://icecast.fobby.net/radiopsi.ogg.m3u")
	require.NoError(t, err)
	assert.Contains(t, out, "provider: icecast")
	assert.Contains(t, out, "stream:   https://relay/psi.ogg")

	out, err = runApp(t, "resolve", "--ytdlp", bin, "https://soundcloud.com/x")
	assert.ErrorContains(t, err, "1 of 1 URLs failed")
	assert.Contains(t, out, "could not determine stream URL")
}
