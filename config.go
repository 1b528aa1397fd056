package lmdbkv

import (
	"bytes"
	_ "embed"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/lmdbkv/internal/dbpath"
	"github.com/roach88/lmdbkv/internal/kverr"
)

//go:embed config.cue
var configSchema string

// Engine kinds selectable in Config.
const (
	EngineNative    = "native"
	EngineReference = "reference"
)

// Limits applied when Config leaves them unset.
const (
	// MaxKeyBytes is the largest key the engine accepts.
	MaxKeyBytes = 511

	DefaultMaxPayloadBytes = 4 << 20
)

// Config controls engine selection, path resolution and input limits.
// Zero fields take their defaults.
type Config struct {
	// Engine is "native" (the shared library) or "reference" (the pure-Go
	// SQLite engine).
	Engine string `yaml:"engine"`

	// LibraryPaths are searched before any discovered library location.
	LibraryPaths []string `yaml:"library_paths"`

	// DataDir replaces the platform data directory.
	DataDir string `yaml:"data_dir"`

	Namespace string `yaml:"namespace"`
	Extension string `yaml:"extension"`

	MaxKeyBytes     int `yaml:"max_key_bytes"`
	MaxPayloadBytes int `yaml:"max_payload_bytes"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Engine:          EngineNative,
		Namespace:       dbpath.DefaultNamespace,
		Extension:       dbpath.DefaultExtension,
		MaxKeyBytes:     MaxKeyBytes,
		MaxPayloadBytes: DefaultMaxPayloadBytes,
		LogLevel:        "info",
	}
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, kverr.Wrap(kverr.Platform, err, "read config").WithContext(path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, kverr.Classify(err).WithContext(path)
	}
	return cfg, nil
}

// ParseConfig decodes YAML configuration, rejecting unknown fields, and
// validates it. Unset fields are filled from DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, kverr.Wrap(kverr.Validation, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}

// configDef is the compiled #Config definition. A cue.Context is not safe
// for concurrent use, so every use after compilation holds schemaMu.
var (
	configDef = sync.OnceValues(func() (cue.Value, error) {
		ctx := cuecontext.New()
		schema := ctx.CompileString(configSchema, cue.Filename("config.cue"))
		if err := schema.Err(); err != nil {
			return cue.Value{}, err
		}
		return schema.LookupPath(cue.ParsePath("#Config")), nil
	})
	schemaMu sync.Mutex
)

// Validate checks the set fields against the configuration schema.
func (c Config) Validate() error {
	def, err := configDef()
	if err != nil {
		return kverr.Wrap(kverr.Unknown, err, "compile config schema")
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()
	v := def.Unify(def.Context().Encode(c.fields()))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return kverr.Wrap(kverr.Validation, err, "invalid config")
	}
	return nil
}

// fields returns the set fields keyed by their file names.
func (c Config) fields() map[string]any {
	m := map[string]any{}
	if c.Engine != "" {
		m["engine"] = c.Engine
	}
	if len(c.LibraryPaths) > 0 {
		m["library_paths"] = c.LibraryPaths
	}
	if c.DataDir != "" {
		m["data_dir"] = c.DataDir
	}
	if c.Namespace != "" {
		m["namespace"] = c.Namespace
	}
	if c.Extension != "" {
		m["extension"] = c.Extension
	}
	if c.MaxKeyBytes != 0 {
		m["max_key_bytes"] = c.MaxKeyBytes
	}
	if c.MaxPayloadBytes != 0 {
		m["max_payload_bytes"] = c.MaxPayloadBytes
	}
	if c.LogLevel != "" {
		m["log_level"] = c.LogLevel
	}
	return m
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Engine == "" {
		c.Engine = d.Engine
	}
	if c.Namespace == "" {
		c.Namespace = d.Namespace
	}
	if c.Extension == "" {
		c.Extension = d.Extension
	}
	if c.MaxKeyBytes == 0 {
		c.MaxKeyBytes = d.MaxKeyBytes
	}
	if c.MaxPayloadBytes == 0 {
		c.MaxPayloadBytes = d.MaxPayloadBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	return c
}

// Level returns the slog level named by LogLevel, defaulting to info.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
