package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configurable codecast settings.
type Config struct {
	DatabaseURL string         `mapstructure:"database_url" yaml:"database_url"`
	Blob        BlobConfig     `mapstructure:"blob" yaml:"blob"`
	Audio       AudioConfig    `mapstructure:"audio" yaml:"audio"`
	Playback    PlaybackConfig `mapstructure:"playback" yaml:"playback"`
	Server      ServerConfig   `mapstructure:"server" yaml:"server"`
	Cache       CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Otel        OtelConfig     `mapstructure:"otel" yaml:"otel"`
}

type BlobConfig struct {
	Dir     string `mapstructure:"dir" yaml:"dir"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Endpoint selects a remote blob server; empty means the local Dir.
	Endpoint  string        `mapstructure:"endpoint" yaml:"endpoint"`
	Secret    string        `mapstructure:"secret" yaml:"secret"`
	Token     string        `mapstructure:"token" yaml:"token"`
	URLExpiry time.Duration `mapstructure:"url_expiry" yaml:"url_expiry"`
}

type AudioConfig struct {
	Format string `mapstructure:"format" yaml:"format"` // "webm" | "ogg" | "wav"
	Input  string `mapstructure:"input" yaml:"input"`   // ffmpeg input device
	Binary string `mapstructure:"binary" yaml:"binary"` // ffmpeg path
}

type PlaybackConfig struct {
	DurationFloor time.Duration `mapstructure:"duration_floor" yaml:"duration_floor"`
	Player        string        `mapstructure:"player" yaml:"player"` // ffplay/mpv path override
}

type ServerConfig struct {
	Addr       string `mapstructure:"addr" yaml:"addr"`
	AdminToken string `mapstructure:"admin_token" yaml:"admin_token"`
	MaxUpload  int64  `mapstructure:"max_upload" yaml:"max_upload"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type OtelConfig struct {
	Stdout bool `mapstructure:"stdout" yaml:"stdout"`
}

// keys lists every leaf key, used to bind environment variables.
var keys = []string{
	"database_url",
	"blob.dir", "blob.base_url", "blob.endpoint", "blob.secret", "blob.token", "blob.url_expiry",
	"audio.format", "audio.input", "audio.binary",
	"playback.duration_floor", "playback.player",
	"server.addr", "server.admin_token", "server.max_upload",
	"cache.ttl",
	"otel.stdout",
}

// DataDir returns $XDG_DATA_HOME/codecast, falling back to ~/.local/share/codecast.
func DataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", ".codecast")
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "codecast")
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	data := DataDir()
	return Config{
		DatabaseURL: "sqlite:file:" + filepath.Join(data, "codecast.db") + "?_pragma=busy_timeout(5000)",
		Blob: BlobConfig{
			Dir:       filepath.Join(data, "blobs"),
			BaseURL:   "http://127.0.0.1:7420",
			URLExpiry: 6 * time.Minute,
		},
		Audio:    AudioConfig{Format: "webm", Binary: "ffmpeg"},
		Playback: PlaybackConfig{DurationFloor: time.Second},
		Server:   ServerConfig{Addr: "127.0.0.1:7420", MaxUpload: 64 << 20},
		Cache:    CacheConfig{TTL: 5 * time.Minute},
	}
}

// GlobalPath returns ~/.config/codecast/config.yaml.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "codecast", "config.yaml"), nil
}

// LoadGlobal reads ~/.config/codecast/config.yaml.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .codecast.yaml in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".codecast.yaml", false)
}

// loadFile reads a YAML or JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// FromEnv reads CODECAST_* environment variables (CODECAST_BLOB_SECRET and so on).
// Unset variables leave their fields zero.
func FromEnv() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CODECAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ParseError{Path: "environment", Err: err}
	}
	return &cfg, nil
}

// Load merges defaults, the global file, the project file and the environment.
func Load() (Config, error) {
	global, err := LoadGlobal()
	if err != nil {
		return Config{}, err
	}
	project, err := LoadProject()
	if err != nil {
		return Config{}, err
	}
	env, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	return Merge(global, project, env), nil
}

// Merge layers configs over the defaults; later layers take precedence.
// Empty fields in a layer fall through to the one beneath it.
func Merge(layers ...*Config) Config {
	result := Defaults()
	for _, l := range layers {
		if l == nil {
			continue
		}
		setString(&result.DatabaseURL, l.DatabaseURL)

		setString(&result.Blob.Dir, l.Blob.Dir)
		setString(&result.Blob.BaseURL, l.Blob.BaseURL)
		setString(&result.Blob.Endpoint, l.Blob.Endpoint)
		setString(&result.Blob.Secret, l.Blob.Secret)
		setString(&result.Blob.Token, l.Blob.Token)
		if l.Blob.URLExpiry > 0 {
			result.Blob.URLExpiry = l.Blob.URLExpiry
		}

		setString(&result.Audio.Format, l.Audio.Format)
		setString(&result.Audio.Input, l.Audio.Input)
		setString(&result.Audio.Binary, l.Audio.Binary)

		if l.Playback.DurationFloor > 0 {
			result.Playback.DurationFloor = l.Playback.DurationFloor
		}
		setString(&result.Playback.Player, l.Playback.Player)

		setString(&result.Server.Addr, l.Server.Addr)
		setString(&result.Server.AdminToken, l.Server.AdminToken)
		if l.Server.MaxUpload > 0 {
			result.Server.MaxUpload = l.Server.MaxUpload
		}

		if l.Cache.TTL > 0 {
			result.Cache.TTL = l.Cache.TTL
		}
		if l.Otel.Stdout {
			result.Otel.Stdout = true
		}
	}
	result.Blob.Dir = expandPath(result.Blob.Dir)
	return result
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
