// /internal/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, falling back to system environment variables")
	}
}

// ErrTemplateWritten is returned by Load when no config file existed and a
// template was written in its place. The operator has to fill it in first.
var ErrTemplateWritten = errors.New("config template written")

const (
	DefaultCommandPrefix = "$"
	DefaultVolume        = 0.4
	DefaultPollInterval  = Duration(time.Second)
)

// Env holds process-level settings that come from the environment (or .env)
// rather than from the JSON config file.
type Env struct {
	ConfigPath     string `env:"PSI_CONFIG_PATH" envDefault:"config.json"`
	DiscordToken   string `env:"DISCORD_TOKEN"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"debug"`
	LogFile        string `env:"LOG_FILE"`
	StoragePath    string `env:"STORAGE_PATH" envDefault:"psi-musicbot.db"`
	YtDlpPath      string `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	FFmpegPath     string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	YouTubeBackend string `env:"YOUTUBE_BACKEND" envDefault:"ytdlp"`
	YouTubeProxy   string `env:"YOUTUBE_PROXY"`
}

// LoadEnv parses Env from the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse environment: %w", err)
	}
	return e, nil
}

// Config is the bot configuration. It is read once at startup and passed by
// value; nothing mutates it afterwards.
type Config struct {
	DiscordAPIToken       string    `json:"discord_api_token"`
	DiscordVoiceChannelID Snowflake `json:"discord_voice_channel_id"`
	PsiTwitchURL          string    `json:"psi_twitch_url"`
	PsiIcecastURL         string    `json:"psi_icecast_url"`
	TestTwitchURL         string    `json:"test_twitch_url"`
	TestYouTubeURL        string    `json:"test_youtube_url"`

	CommandPrefix   string   `json:"command_prefix,omitempty"`
	Volume          float64  `json:"volume,omitempty"`
	MaxPlayDuration Duration `json:"max_play_duration,omitempty"`
	PollInterval    Duration `json:"poll_interval,omitempty"`

	Env Env `json:"-"`
}

// Source binds a chat command to one configured stream URL.
type Source struct {
	Command     string
	Description string
	URL         string
}

// Default returns the template written for first-time setup. The API token
// and voice channel must be filled in locally.
func Default() Config {
	return Config{
		PsiTwitchURL:   "https://www.twitch.tv/radiopsi",
		PsiIcecastURL:  "http://icecast.fobby.net/radiopsi.ogg.m3u",
		TestTwitchURL:  "https://www.twitch.tv/gamesdonequick",
		TestYouTubeURL: "https://www.youtube.com/watch?v=MGWEI_m-IpE",
	}
}

// New loads the environment, the config file it points at, applies
// environment overrides and validates the result.
func New() (Config, error) {
	e, err := LoadEnv()
	if err != nil {
		return Config{}, err
	}

	cfg, err := Load(e.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Env = e
	if e.DiscordToken != "" {
		cfg.DiscordAPIToken = e.DiscordToken
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the JSON config at path. A missing file is replaced by a
// template and ErrTemplateWritten is returned.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if werr := WriteTemplate(path); werr != nil {
			return Config{}, werr
		}
		log.Info().Str("path", path).Msg("No config file found! Wrote template config")
		return Config{}, fmt.Errorf("%w to %s", ErrTemplateWritten, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.applyDefaults()

	log.Info().Str("path", path).Msg("Loaded config")
	return cfg, nil
}

// WriteTemplate writes Default() to path, creating parent directories.
func WriteTemplate(path string) error {
	data, err := json.MarshalIndent(Default(), "", "    ")
	if err != nil {
		return fmt.Errorf("encode config template: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write config template: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.CommandPrefix == "" {
		c.CommandPrefix = DefaultCommandPrefix
	}
	if c.Volume == 0 {
		c.Volume = DefaultVolume
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
}

// Validate reports every problem with the config at once.
func (c Config) Validate() error {
	var result error

	if strings.TrimSpace(c.DiscordAPIToken) == "" {
		result = multierror.Append(result, errors.New("discord_api_token is not set"))
	}
	for _, src := range c.Sources() {
		if strings.TrimSpace(src.URL) == "" {
			result = multierror.Append(result, fmt.Errorf("no URL configured for %s", src.Command))
		}
	}
	if c.Volume < 0 || c.Volume > 2 {
		result = multierror.Append(result, fmt.Errorf("volume %.2f out of range [0, 2]", c.Volume))
	}
	if c.MaxPlayDuration < 0 {
		result = multierror.Append(result, errors.New("max_play_duration must not be negative"))
	}
	if c.PollInterval < 0 {
		result = multierror.Append(result, errors.New("poll_interval must not be negative"))
	}
	switch c.Env.YouTubeBackend {
	case "", "ytdlp", "kkdai":
	default:
		result = multierror.Append(result, fmt.Errorf("unknown youtube backend %q", c.Env.YouTubeBackend))
	}

	return result
}

// Sources lists the play commands in registration order.
func (c Config) Sources() []Source {
	return []Source{
		{Command: "play_icecast", Description: "Start streaming audio from icecast", URL: c.PsiIcecastURL},
		{Command: "play_twitch", Description: "Start streaming audio from twitch", URL: c.PsiTwitchURL},
		{Command: "twitch_test", Description: "Offline test (twitch)", URL: c.TestTwitchURL},
		{Command: "youtube_test", Description: "Offline test (youtube)", URL: c.TestYouTubeURL},
	}
}

// Snowflake is a Discord ID. The config file may carry it as a JSON number
// or a string; 0 means unset.
type Snowflake string

func (s *Snowflake) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*s = ""
		return nil
	case strings.HasPrefix(raw, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		raw = strings.TrimSpace(str)
	}
	if raw == "" || raw == "0" {
		*s = ""
		return nil
	}
	if _, err := strconv.ParseUint(raw, 10, 64); err != nil {
		return fmt.Errorf("invalid discord id %q", raw)
	}
	*s = Snowflake(raw)
	return nil
}

func (s Snowflake) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("0"), nil
	}
	return []byte(s), nil
}

func (s Snowflake) String() string { return string(s) }

// Duration accepts "90s"-style strings or a number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if strings.HasPrefix(raw, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		parsed, err := time.ParseDuration(str)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", str, err)
		}
		*d = Duration(parsed)
		return nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid duration %s", raw)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d Duration) Std() time.Duration { return time.Duration(d) }
