// Package config handles loading and validating the soundofsilence configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration for the soundofsilence daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Script     ScriptConfig     `mapstructure:"script"`
	TTS        TTSConfig        `mapstructure:"tts"`
	Mix        MixConfig        `mapstructure:"mix"`
	Output     OutputConfig     `mapstructure:"output"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC health transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP transport that serves /generate.
type HTTPConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Port           int           `mapstructure:"port"`
	APIKey         string        `mapstructure:"api_key"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ScriptConfig holds parser limits.
type ScriptConfig struct {
	MaxPause time.Duration `mapstructure:"max_pause"` // 0 disables the limit
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Backend      string           `mapstructure:"backend"` // "elevenlabs", "piper" or "stub"
	SampleRate   int              `mapstructure:"sample_rate"`
	Concurrency  int              `mapstructure:"concurrency"`
	Retries      int              `mapstructure:"retries"`
	RetryBackoff time.Duration    `mapstructure:"retry_backoff"`
	ElevenLabs   ElevenLabsConfig `mapstructure:"elevenlabs"`
	Piper        PiperConfig      `mapstructure:"piper"`
}

// ElevenLabsConfig holds ElevenLabs API settings.
type ElevenLabsConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	VoiceID         string        `mapstructure:"voice_id"`
	ModelID         string        `mapstructure:"model_id"`
	Speed           float64       `mapstructure:"speed"`
	Stability       float64       `mapstructure:"stability"`
	SimilarityBoost float64       `mapstructure:"similarity_boost"`
	Style           float64       `mapstructure:"style"`
	SpeakerBoost    bool          `mapstructure:"speaker_boost"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// For a single Piper instance that serves all languages, set Endpoint.
// For per-language instances, set Endpoints which maps ISO-639-1 codes to
// individual Wyoming TCP endpoints. If both are set, Endpoints takes
// precedence and Endpoint is the fallback.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`  // Default Wyoming TCP endpoint (host:port)
	Endpoints map[string]string `mapstructure:"endpoints"` // ISO-639-1 language code -> Wyoming TCP endpoint
	Voices    map[string]string `mapstructure:"voices"`    // ISO-639-1 language code -> Piper voice model name
	Language  string            `mapstructure:"language"`  // language used to pick the voice and endpoint
	Speaker   string            `mapstructure:"speaker"`   // speaker id for multi-speaker voice models
	Timeout   time.Duration     `mapstructure:"timeout"`   // per-segment bound when the request carries no deadline
}

// MixConfig holds the background bed and gain-staging tunables.
type MixConfig struct {
	BedPath        string        `mapstructure:"bed_path"`
	Fade           time.Duration `mapstructure:"fade"`
	BedGainDB      float64       `mapstructure:"bed_gain_db"`
	TargetPeakDBFS float64       `mapstructure:"target_peak_dbfs"`
	TailFade       time.Duration `mapstructure:"tail_fade"`
	CacheCapacity  int           `mapstructure:"cache_capacity"`
}

// OutputConfig controls how the final mix is encoded.
type OutputConfig struct {
	Format     string `mapstructure:"format"` // "opus" or "wav"
	Bitrate    string `mapstructure:"bitrate"`
	Filename   string `mapstructure:"filename"`
	FFmpegPath string `mapstructure:"ffmpeg_path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./soundofsilence.yaml, ./configs/soundofsilence.yaml,
// /etc/soundofsilence/soundofsilence.yaml. A .env file in the working
// directory is loaded first when present.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("soundofsilence")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/soundofsilence")
	}

	// Environment variables: SOUNDOFSILENCE_MIX_BED_PATH, SOUNDOFSILENCE_TTS_BACKEND, etc.
	v.SetEnvPrefix("SOUNDOFSILENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short names kept for existing deployments.
	_ = v.BindEnv("transports.http.api_key", "SOUNDOFSILENCE_TRANSPORTS_HTTP_API_KEY", "APP_API_KEY")
	_ = v.BindEnv("mix.bed_path", "SOUNDOFSILENCE_MIX_BED_PATH", "MUSIC_PATH")
	_ = v.BindEnv("tts.elevenlabs.api_key", "SOUNDOFSILENCE_TTS_ELEVENLABS_API_KEY", "ELEVENLABS_API_KEY")

	// Read config file (optional; env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${ELEVENLABS_API_KEY}")
	cfg.Transports.HTTP.APIKey = resolveEnvRef(cfg.Transports.HTTP.APIKey)
	cfg.TTS.ElevenLabs.APIKey = resolveEnvRef(cfg.TTS.ElevenLabs.APIKey)
	cfg.Mix.BedPath = resolveEnvRef(cfg.Mix.BedPath)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.http.api_key", "")
	v.SetDefault("transports.http.max_body_bytes", 1<<20)
	v.SetDefault("transports.http.request_timeout", "5m")
	v.SetDefault("script.max_pause", "10m")
	v.SetDefault("tts.backend", "elevenlabs")
	v.SetDefault("tts.sample_rate", 44100)
	v.SetDefault("tts.concurrency", 4)
	v.SetDefault("tts.retries", 0)
	v.SetDefault("tts.retry_backoff", "500ms")
	v.SetDefault("tts.elevenlabs.api_key", "")
	v.SetDefault("tts.elevenlabs.base_url", "https://api.elevenlabs.io")
	v.SetDefault("tts.elevenlabs.voice_id", "")
	v.SetDefault("tts.elevenlabs.model_id", "eleven_multilingual_v2")
	v.SetDefault("tts.elevenlabs.speed", 0.85)
	v.SetDefault("tts.elevenlabs.stability", 0.6)
	v.SetDefault("tts.elevenlabs.similarity_boost", 0.75)
	v.SetDefault("tts.elevenlabs.style", 0.0)
	v.SetDefault("tts.elevenlabs.speaker_boost", true)
	v.SetDefault("tts.elevenlabs.timeout", "60s")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("tts.piper.language", "es")
	v.SetDefault("tts.piper.timeout", "30s")
	v.SetDefault("mix.bed_path", "music.wav")
	v.SetDefault("mix.fade", "3s")
	v.SetDefault("mix.bed_gain_db", -20.0)
	v.SetDefault("mix.target_peak_dbfs", -0.5)
	v.SetDefault("mix.tail_fade", "80ms")
	v.SetDefault("mix.cache_capacity", 1)
	v.SetDefault("output.format", "opus")
	v.SetDefault("output.bitrate", "64k")
	v.SetDefault("output.filename", "meditacion")
	v.SetDefault("output.ffmpeg_path", "ffmpeg")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.TTS.Backend {
	case "elevenlabs":
		if c.TTS.ElevenLabs.APIKey == "" {
			errs = append(errs, errors.New("tts.elevenlabs.api_key is required"))
		}
		if c.TTS.ElevenLabs.VoiceID == "" {
			errs = append(errs, errors.New("tts.elevenlabs.voice_id is required"))
		}
	case "piper":
		if c.TTS.Piper.Endpoint == "" && len(c.TTS.Piper.Endpoints) == 0 {
			errs = append(errs, errors.New("tts.piper.endpoint is required"))
		}
	case "stub":
	default:
		errs = append(errs, fmt.Errorf("unknown tts.backend %q", c.TTS.Backend))
	}
	if c.Script.MaxPause < 0 {
		errs = append(errs, fmt.Errorf("script.max_pause must not be negative, got %v", c.Script.MaxPause))
	}
	if c.TTS.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("tts.sample_rate must be positive, got %d", c.TTS.SampleRate))
	}
	if c.TTS.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("tts.concurrency must be at least 1, got %d", c.TTS.Concurrency))
	}
	if c.TTS.Retries < 0 {
		errs = append(errs, fmt.Errorf("tts.retries must not be negative, got %d", c.TTS.Retries))
	}

	if c.Mix.Fade < 0 || c.Mix.TailFade < 0 {
		errs = append(errs, errors.New("mix.fade and mix.tail_fade must not be negative"))
	}
	if c.Mix.TargetPeakDBFS > 0 {
		errs = append(errs, fmt.Errorf("mix.target_peak_dbfs must be at most 0, got %g", c.Mix.TargetPeakDBFS))
	}
	if c.Mix.CacheCapacity < 1 {
		errs = append(errs, fmt.Errorf("mix.cache_capacity must be at least 1, got %d", c.Mix.CacheCapacity))
	}

	switch strings.ToLower(c.Output.Format) {
	case "opus", "ogg", "wav":
	default:
		errs = append(errs, fmt.Errorf("unknown output.format %q", c.Output.Format))
	}

	if c.Transports.HTTP.Enabled && c.Transports.HTTP.APIKey == "" {
		errs = append(errs, errors.New("transports.http.api_key is required when the http transport is enabled"))
	}

	return errors.Join(errs...)
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
