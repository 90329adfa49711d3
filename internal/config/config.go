// Package config loads the application configuration.
//
// Values come from Default, then an optional YAML file, then environment
// variables. The result is checked against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Environment variables that override file values.
const (
	EnvRemoteDriver = "BRUTALIST_REMOTE_DRIVER"
	EnvRemoteDSN    = "BRUTALIST_REMOTE_DSN"
	EnvRedisAddr    = "REDIS_ADDR"
	EnvKafkaBrokers = "KAFKA_BROKERS"
	EnvJWTSecret    = "BRUTALIST_JWT_SECRET"
	EnvPort         = "PORT"
)

type Config struct {
	Remote Remote `yaml:"remote" json:"remote"`
	Cache  Cache  `yaml:"cache" json:"cache"`
	Events Events `yaml:"events" json:"events"`
	Auth   Auth   `yaml:"auth" json:"auth"`
	HTTP   HTTP   `yaml:"http" json:"http"`
	Log    Log    `yaml:"log" json:"log"`
}

// Remote selects the backend used while a session is active. An empty DSN
// leaves the application local-only.
type Remote struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

// Enabled reports whether a remote backend is configured.
func (r Remote) Enabled() bool {
	return r.DSN != ""
}

// Cache configures where the local snapshot lives.
type Cache struct {
	Backend   string `yaml:"backend" json:"backend"`
	Dir       string `yaml:"dir" json:"dir"`
	RedisAddr string `yaml:"redis_addr" json:"redis_addr"`
	Prefix    string `yaml:"prefix" json:"prefix"`
}

// Events configures the change-event publisher. No brokers disables it.
type Events struct {
	Brokers []string `yaml:"brokers" json:"brokers"`
	Topic   string   `yaml:"topic" json:"topic"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret" json:"jwt_secret"`
}

// HTTP configures the API server. A zero RateLimit disables rate limiting.
type HTTP struct {
	Addr      string  `yaml:"addr" json:"addr"`
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	Burst     int     `yaml:"burst" json:"burst"`
}

type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Cache backends.
const (
	CacheFile   = "file"
	CacheRedis  = "redis"
	CacheMemory = "memory"
)

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Remote: Remote{Driver: "sqlite3"},
		Cache:  Cache{Backend: CacheFile, Dir: ".brutalist", Prefix: "brutalist:"},
		Events: Events{Brokers: []string{}, Topic: "brutalist-events"},
		HTTP:   HTTP{Addr: ":8080", RateLimit: 20, Burst: 40},
		Log:    Log{Level: "info", Format: "console"},
	}
}

// Load reads path (if non-empty) over the defaults and applies environment
// overrides from the process environment.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode rejects unknown keys. An empty document keeps the defaults.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if cfg.Events.Brokers == nil {
		cfg.Events.Brokers = []string{}
	}
	return nil
}

// applyEnv overrides file values. Empty variables are ignored.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvRemoteDriver); ok && v != "" {
		cfg.Remote.Driver = v
	}
	if v, ok := lookup(EnvRemoteDSN); ok && v != "" {
		cfg.Remote.DSN = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v, ok := lookup(EnvKafkaBrokers); ok && v != "" {
		cfg.Events.Brokers = splitList(v)
	}
	if v, ok := lookup(EnvJWTSecret); ok && v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		cfg.HTTP.Addr = ":" + v
	}
	return nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks c against the embedded schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	if c.Events.Brokers == nil {
		c.Events.Brokers = []string{}
	}
	v := ctx.Encode(c)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
