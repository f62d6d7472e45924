package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	orchestration "github.com/koscakluka/ema-avatar/core"
	"github.com/koscakluka/ema-avatar/core/texttospeech"
	"github.com/koscakluka/ema-avatar/internal/utils"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

const appName = "avatar-chat"

const defaultConfig = `# OpenRouter chat settings
llm:
  model: "anthropic/claude-3.5-sonnet:beta"
  temperature: 0.7
  max_tokens: 200
  # system_prompt: "You are ..."

# ElevenLabs voice settings
voice:
  voice_id: "21m00Tcm4TlvDq8ikWAM"
  model_id: "eleven_multilingual_v2"
  stability: 0.5
  similarity_boost: 0.75

tts:
  # leave empty to pick pcm_24000 for local playback and mp3 for a remote avatar
  output_format: ""
  min_request_interval: "1s"
  max_pending: 0

cache:
  memory_entries: 256
  # dir: "~/.cache/avatar-chat/speech"

history:
  max_messages: 20
  # path: "~/.local/share/avatar-chat/history.db"

display:
  # hide "[happy]" style directives in the chat log
  hide_action_prompts: true

# local audio player: miniaudio, portaudio, oto or none
player: "miniaudio"

avatar:
  # websocket URL of a remote avatar viewer
  url: ""

log:
  level: "info"
`

// credentials are read from the environment when the config file does not
// set them.
type credentials struct {
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`
	ElevenLabsAPIKey string `env:"ELEVENLABS_API_KEY"`
	SiteURL          string `env:"SITE_URL"`
	SiteName         string `env:"SITE_NAME"`
}

type config struct {
	credentials

	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string

	Voice              texttospeech.VoiceParameters
	OutputFormat       texttospeech.OutputFormat
	MinRequestInterval time.Duration
	MaxPending         int

	CacheEntries int
	CacheDir     string

	HistoryPath    string
	HistoryLimit   int
	HistorySession string

	HideActionPrompts bool

	Player      string
	AvatarURL   string
	ReadingPace time.Duration
	Trace       bool
	TracePath   string
}

func setConfigDefaults() {
	viper.SetDefault("llm.model", "anthropic/claude-3.5-sonnet:beta")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.max_tokens", 200)
	viper.SetDefault("voice.voice_id", texttospeech.DefaultVoiceID)
	viper.SetDefault("voice.model_id", texttospeech.DefaultModelID)
	viper.SetDefault("voice.stability", texttospeech.DefaultStability)
	viper.SetDefault("voice.similarity_boost", texttospeech.DefaultSimilarityBoost)
	viper.SetDefault("tts.min_request_interval", orchestration.DefaultMinRequestInterval)
	viper.SetDefault("tts.max_pending", 0)
	viper.SetDefault("tts.reading_pace", 40*time.Millisecond)
	viper.SetDefault("cache.memory_entries", 256)
	viper.SetDefault("history.max_messages", orchestration.DefaultHistoryLimit)
	viper.SetDefault("display.hide_action_prompts", true)
	viper.SetDefault("player", "miniaudio")
	viper.SetDefault("log.level", "info")
}

func loadConfig() error {
	scope := gap.NewScope(gap.User, appName)

	if configFile != "" {
		viper.SetConfigFile(expandPath(configFile))
	} else {
		dirs, err := scope.ConfigDirs()
		if err != nil {
			return fmt.Errorf("could not find configuration directory: %w", err)
		}
		if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
			dirs = append([]string{filepath.Join(c, appName)}, dirs...)
		}
		for _, v := range dirs {
			viper.AddConfigPath(v)
		}
		viper.SetConfigName(appName)
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("avatar_chat")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
	} else if err := ensureConfigFile(scope); err != nil {
		log.Warn("Could not create default configuration", "error", err)
	}

	level, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	return nil
}

func ensureConfigFile(scope *gap.Scope) error {
	path, err := scope.ConfigPath(appName + ".yml")
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil || !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o600); err != nil {
		return fmt.Errorf("could not write default config: %w", err)
	}
	log.Info("Wrote default configuration", "path", path)
	return nil
}

func configFromViper() (config, error) {
	creds, err := env.ParseAs[credentials]()
	if err != nil {
		return config{}, fmt.Errorf("error parsing environment: %w", err)
	}
	if key := viper.GetString("openrouter.api_key"); key != "" {
		creds.OpenRouterAPIKey = key
	}
	if key := viper.GetString("elevenlabs.api_key"); key != "" {
		creds.ElevenLabsAPIKey = key
	}
	if url := viper.GetString("site.url"); url != "" {
		creds.SiteURL = url
	}
	if name := viper.GetString("site.name"); name != "" {
		creds.SiteName = name
	}

	cfg := config{
		credentials:        creds,
		Model:              viper.GetString("llm.model"),
		Temperature:        viper.GetFloat64("llm.temperature"),
		MaxTokens:          viper.GetInt("llm.max_tokens"),
		SystemPrompt:       viper.GetString("llm.system_prompt"),
		Voice:              voiceFromViper(),
		OutputFormat:       texttospeech.OutputFormat(viper.GetString("tts.output_format")),
		MinRequestInterval: viper.GetDuration("tts.min_request_interval"),
		MaxPending:         viper.GetInt("tts.max_pending"),
		ReadingPace:        viper.GetDuration("tts.reading_pace"),
		CacheEntries:       viper.GetInt("cache.memory_entries"),
		CacheDir:           expandPath(viper.GetString("cache.dir")),
		HistoryPath:        expandPath(viper.GetString("history.path")),
		HistoryLimit:       viper.GetInt("history.max_messages"),
		HistorySession:     viper.GetString("history.session"),
		HideActionPrompts:  viper.GetBool("display.hide_action_prompts"),
		Player:             strings.ToLower(viper.GetString("player")),
		AvatarURL:          viper.GetString("avatar.url"),
		Trace:              viper.GetBool("trace"),
	}

	scope := gap.NewScope(gap.User, appName)
	if cfg.HistoryPath == "" {
		if cfg.HistoryPath, err = scope.DataPath("history.db"); err != nil {
			return config{}, fmt.Errorf("could not find data directory: %w", err)
		}
	}
	if cfg.CacheDir == "" {
		if cfg.CacheDir, err = scope.CacheDir(); err != nil {
			return config{}, fmt.Errorf("could not find cache directory: %w", err)
		}
		cfg.CacheDir = filepath.Join(cfg.CacheDir, "speech")
	}
	if cfg.Trace {
		if cfg.TracePath, err = scope.DataPath("trace.json"); err != nil {
			return config{}, fmt.Errorf("could not find data directory: %w", err)
		}
	}

	if cfg.OutputFormat == "" {
		cfg.OutputFormat = defaultOutputFormat(cfg.AvatarURL != "")
	}
	if err := cfg.Voice.Validate(); err != nil {
		return config{}, fmt.Errorf("invalid voice settings: %w", err)
	}

	return cfg, nil
}

// defaultOutputFormat picks raw PCM for the local players, which cannot
// decode mp3.
func defaultOutputFormat(remote bool) texttospeech.OutputFormat {
	if remote {
		return texttospeech.DefaultOutputFormat
	}
	return texttospeech.OutputFormatPCM24000
}

func voiceFromViper() texttospeech.VoiceParameters {
	voice := texttospeech.VoiceParameters{
		VoiceID: viper.GetString("voice.voice_id"),
		ModelID: viper.GetString("voice.model_id"),
	}
	if viper.IsSet("voice.stability") {
		voice.Stability = utils.Ptr(viper.GetFloat64("voice.stability"))
	}
	if viper.IsSet("voice.similarity_boost") {
		voice.SimilarityBoost = utils.Ptr(viper.GetFloat64("voice.similarity_boost"))
	}
	if viper.IsSet("voice.style") {
		voice.Style = utils.Ptr(viper.GetFloat64("voice.style"))
	}
	if viper.IsSet("voice.speaker_boost") {
		voice.SpeakerBoost = utils.Ptr(viper.GetBool("voice.speaker_boost"))
	}
	return voice.WithDefaults()
}

func expandPath(path string) string {
	if path == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(path, "~"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return os.ExpandEnv(path)
}
