package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"psi-musicbot/internal/config"
	"psi-musicbot/internal/logger"
	"psi-musicbot/internal/music/extractor"
	"psi-musicbot/internal/music/resolver"
	"psi-musicbot/internal/storage"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("psi-musicbot-cli failed")
		os.Exit(1)
	}
}

func newApp() *cli.App {
	env, err := config.LoadEnv()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read environment, using defaults")
	}

	return &cli.App{
		Name:  "psi-musicbot-cli",
		Usage: "operator tools for the psi music bot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "log `LEVEL`"},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(logger.Options{Level: c.String("log-level")})
			return nil
		},
		Commands: []*cli.Command{
			resolveCommand(env),
			initConfigCommand(env),
			historyCommand(env),
		},
		HideHelpCommand: true,
	}
}

func resolveCommand(env config.Env) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "resolve source URLs to the stream URL the bot would play",
		ArgsUsage: "URL...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ytdlp", Value: env.YtDlpPath, Usage: "yt-dlp binary `PATH`"},
			&cli.StringFlag{Name: "youtube-backend", Value: env.YouTubeBackend, Usage: "ytdlp or kkdai"},
			&cli.StringFlag{Name: "youtube-proxy", Value: env.YouTubeProxy, Usage: "proxy `URL` for the kkdai backend"},
			&cli.DurationFlag{Name: "timeout", Value: time.Minute},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("at least one URL is required", 2)
			}
			r := resolver.New(extractor.New(c.String("youtube-backend"), c.String("ytdlp"), c.String("youtube-proxy")))

			failed := 0
			for _, url := range c.Args().Slice() {
				ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
				res, err := r.Resolve(ctx, url)
				cancel()
				if err != nil {
					failed++
					fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", url, err)
					continue
				}
				printResolved(c.App.Writer, res)
			}
			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d URLs failed", failed, c.NArg()), 1)
			}
			return nil
		},
	}
}

func printResolved(w io.Writer, res *resolver.ResolvedStream) {
	fmt.Fprintf(w, "%s\n  provider: %s\n  title:    %s\n  stream:   %s\n", res.SourceURL, res.Provider, res.DisplayName(), res.StreamURL)
}

func initConfigCommand(env config.Env) *cli.Command {
	return &cli.Command{
		Name:  "init-config",
		Usage: "write a config template",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Value: env.ConfigPath, Usage: "config file `PATH`"},
			&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
		},
		Action: func(c *cli.Context) error {
			path := c.String("path")
			if _, err := os.Stat(path); err == nil && !c.Bool("force") {
				return cli.Exit(fmt.Sprintf("%s already exists, use --force to overwrite", path), 1)
			}
			if err := config.WriteTemplate(path); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
			return nil
		},
	}
}

func historyCommand(env config.Env) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "print recent plays or commands for a guild",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Value: env.StoragePath, Usage: "storage `FILE`"},
			&cli.StringFlag{Name: "guild", Required: true, Usage: "guild `ID`"},
			&cli.IntFlag{Name: "limit", Value: 20},
			&cli.BoolFlag{Name: "commands", Usage: "show commands instead of plays"},
		},
		Action: func(c *cli.Context) error {
			store, err := storage.New(c.String("db"))
			if err != nil {
				return err
			}
			defer store.Close()

			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			defer tw.Flush()

			if c.Bool("commands") {
				recs, err := store.CommandHistory(c.String("guild"), c.Int("limit"))
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "TIME\tUSER\tCOMMAND\tARGS")
				for _, r := range recs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Datetime.Format(time.DateTime), r.Username, r.Command, strings.Join(r.Args, " "))
				}
				return nil
			}

			plays, err := store.PlayHistory(c.String("guild"), c.Int("limit"))
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, "TIME\tCOMMAND\tPROVIDER\tTITLE\tSOURCE")
			for _, p := range plays {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Datetime.Format(time.DateTime), p.Command, p.Provider, p.Title, p.SourceURL)
			}
			return nil
		},
	}
}
