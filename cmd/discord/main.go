// cmd/discord/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"psi-musicbot/internal/command/music"
	"psi-musicbot/internal/config"
	"psi-musicbot/internal/discord"
	"psi-musicbot/internal/logger"
	"psi-musicbot/internal/middleware"
	"psi-musicbot/internal/music/extractor"
	"psi-musicbot/internal/music/player"
	"psi-musicbot/internal/music/resolver"
	"psi-musicbot/internal/music/stream"
	"psi-musicbot/internal/storage"
	"psi-musicbot/pkg/cmd"

	"github.com/rs/zerolog/log"
)

const appName = "psi-musicbot"

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read environment")
	}
	logger.Setup(logger.Options{Level: env.LogLevel, File: env.LogFile})
	log.Info().Msgf("Starting %v bot...", appName)

	cfg, err := config.New()
	if err != nil {
		if errors.Is(err, config.ErrTemplateWritten) {
			log.Error().Err(err).Msg("Fill in the config file and restart")
		} else {
			log.Error().Err(err).Msg("Invalid configuration")
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("Discord bot error")
		os.Exit(1)
	}
	log.Info().Msg("Discord bot exited cleanly")
}

func run(ctx context.Context, cfg config.Config) error {
	store, err := storage.New(cfg.Env.StoragePath)
	if err != nil {
		return err
	}
	defer store.Close()

	registry := cmd.NewRegistry()
	bot, err := discord.New(cfg.DiscordAPIToken, cfg.CommandPrefix, registry)
	if err != nil {
		return err
	}

	ffmpeg := stream.DefaultFFmpegOptions()
	ffmpeg.BinaryPath = cfg.Env.FFmpegPath

	res := resolver.New(
		extractor.New(cfg.Env.YouTubeBackend, cfg.Env.YtDlpPath, cfg.Env.YouTubeProxy),
		resolver.WithSourceFactory(resolver.FFmpegSources(ffmpeg)),
	)

	voice := discord.NewVoice(bot.Session())
	manager := player.NewManager(player.ManagerConfig{
		Voice:          voice,
		Presence:       discord.NewPresence(bot.Session()),
		Resolver:       res,
		Locator:        voice,
		History:        store,
		VoiceChannelID: cfg.DiscordVoiceChannelID.String(),
		Options: player.Options{
			Volume:       cfg.Volume,
			PollInterval: cfg.PollInterval.Std(),
			MaxDuration:  cfg.MaxPlayDuration.Std(),
		},
	})
	defer manager.StopAll()

	if err := registerCommands(registry, cfg, manager, store); err != nil {
		return err
	}

	return bot.Run(ctx)
}

func registerCommands(r *cmd.Registry, cfg config.Config, manager *player.Manager, store *storage.Storage) error {
	common := []cmd.Middleware{
		middleware.WithGuildOnly(),
		middleware.WithCommandLogger(store),
	}
	playMws := append([]cmd.Middleware{middleware.WithCooldown(3*time.Second, 2)}, common...)

	for _, src := range cfg.Sources() {
		if err := r.Register(&music.PlayCommand{Source: src, Player: manager}, playMws...); err != nil {
			return err
		}
	}

	for _, c := range []cmd.Command{
		&music.StopCommand{Player: manager},
		&music.NowPlayingCommand{Player: manager},
		&music.HistoryCommand{Store: store},
	} {
		if err := r.Register(c, common...); err != nil {
			return err
		}
	}
	return nil
}
