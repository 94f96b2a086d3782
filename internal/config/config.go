// Package config assembles the bot configuration from defaults, an optional
// YAML file, a .env file and the process environment. Command line flags are
// applied on top by cmd.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgytdl/internal/extractor"
	"github.com/tanq16/tgytdl/internal/utils"
	"gopkg.in/yaml.v3"
)

const (
	BackendYtdlp  = "ytdlp"
	BackendNative = "native"

	TokenEnv  = "TELEGRAM_BOT_TOKEN"
	envPrefix = "TGYTDL_"
)

var ErrNoToken = errors.New("telegram bot token is not set (use " + TokenEnv + ", --token or the config file)")

type HTTP struct {
	Timeout       time.Duration `yaml:"timeout"`
	KeepAlive     time.Duration `yaml:"keep_alive"`
	Proxy         string        `yaml:"proxy"`
	ProxyUsername string        `yaml:"proxy_username"`
	ProxyPassword string        `yaml:"proxy_password"`
	UserAgent     string        `yaml:"user_agent"`
	Headers       []string      `yaml:"headers"`
}

type Config struct {
	Token              string        `yaml:"token"`
	ScratchDir         string        `yaml:"scratch_dir"`
	MaxSizeMB          int64         `yaml:"max_size_mb"`
	Format             string        `yaml:"format"`
	Backend            string        `yaml:"backend"`
	YtdlpPath          string        `yaml:"ytdlp_path"`
	CookiesFromBrowser string        `yaml:"cookies_from_browser"`
	TransferTimeout    time.Duration `yaml:"transfer_timeout"`
	PollTimeout        time.Duration `yaml:"poll_timeout"`
	Debug              bool          `yaml:"debug"`
	JSONLogs           bool          `yaml:"json_logs"`
	HTTP               HTTP          `yaml:"http"`
}

func Default() Config {
	return Config{
		MaxSizeMB:   50,
		Format:      extractor.DefaultPreset,
		Backend:     BackendYtdlp,
		PollTimeout: 60 * time.Second,
		HTTP: HTTP{
			Timeout:   10 * time.Minute,
			KeepAlive: 90 * time.Second,
			UserAgent: utils.ToolUserAgent,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (optional) and
// the environment, with envFile loaded into the environment first.
func Load(path, envFile string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := LoadDotEnv(envFile); err != nil {
		return cfg, err
	}
	if err := cfg.LoadEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	log.Debug().Str("op", "config/file").Str("path", path).Msg("config file loaded")
	return nil
}

// LoadDotEnv reads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. An empty path tries ./.env and
// ignores its absence.
func LoadDotEnv(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading env file %s: %w", path, err)
	}
	log.Debug().Str("op", "config/dotenv").Str("path", path).Msg("env file loaded")
	return nil
}

// LoadEnv applies TGYTDL_* variables, then TELEGRAM_BOT_TOKEN, which wins
// over TGYTDL_TOKEN when both are set.
func (c *Config) LoadEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"TOKEN":                &c.Token,
		"SCRATCH_DIR":          &c.ScratchDir,
		"FORMAT":               &c.Format,
		"BACKEND":              &c.Backend,
		"YTDLP_PATH":           &c.YtdlpPath,
		"COOKIES_FROM_BROWSER": &c.CookiesFromBrowser,
		"PROXY":                &c.HTTP.Proxy,
		"PROXY_USERNAME":       &c.HTTP.ProxyUsername,
		"PROXY_PASSWORD":       &c.HTTP.ProxyPassword,
		"USER_AGENT":           &c.HTTP.UserAgent,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup(TokenEnv); ok && v != "" {
		c.Token = v
	}
	durations := map[string]*time.Duration{
		"TRANSFER_TIMEOUT": &c.TransferTimeout,
		"POLL_TIMEOUT":     &c.PollTimeout,
		"HTTP_TIMEOUT":     &c.HTTP.Timeout,
	}
	for key, dst := range durations {
		v, ok := lookup(envPrefix + key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
		}
		*dst = d
	}
	bools := map[string]*bool{
		"DEBUG":     &c.Debug,
		"JSON_LOGS": &c.JSONLogs,
	}
	for key, dst := range bools {
		v, ok := lookup(envPrefix + key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
		}
		*dst = b
	}
	if v, ok := lookup(envPrefix + "MAX_SIZE_MB"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_SIZE_MB: %w", envPrefix, err)
		}
		c.MaxSizeMB = n
	}
	return nil
}

// Validate checks the settings every command depends on. Call it after all
// flags are applied.
func (c *Config) Validate() error {
	if c.MaxSizeMB <= 0 {
		return fmt.Errorf("max size must be positive, got %d MB", c.MaxSizeMB)
	}
	if _, err := extractor.LookupSelector(c.Format); err != nil {
		return err
	}
	switch strings.ToLower(c.Backend) {
	case BackendYtdlp, BackendNative:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendYtdlp, BackendNative)
	}
	if c.TransferTimeout < 0 {
		return fmt.Errorf("transfer timeout cannot be negative")
	}
	return nil
}

// ValidateRun adds the checks only the bot itself needs: a token, and an
// HTTP timeout long enough to outlive a long poll.
func (c *Config) ValidateRun() error {
	if err := c.RequireToken(); err != nil {
		return err
	}
	if c.PollTimeout > 0 && c.HTTP.Timeout > 0 && c.HTTP.Timeout <= c.PollTimeout {
		return fmt.Errorf("http timeout (%s) must exceed poll timeout (%s)", c.HTTP.Timeout, c.PollTimeout)
	}
	return nil
}

func (c *Config) RequireToken() error {
	if strings.TrimSpace(c.Token) == "" {
		return ErrNoToken
	}
	return nil
}

func (c *Config) MaxSizeBytes() int64 {
	return c.MaxSizeMB * utils.MiB
}

// ClientConfig converts h for utils.NewHTTPClient. Credentials embedded in
// the proxy URL are used unless a proxy username is set explicitly.
func (h HTTP) ClientConfig() utils.HTTPClientConfig {
	ua := h.UserAgent
	if ua == "randomize" {
		ua = utils.GetRandomUserAgent()
	}
	proxyURL, username, password := h.Proxy, h.ProxyUsername, h.ProxyPassword
	if parsed, err := url.Parse(proxyURL); err == nil && parsed.User != nil && username == "" {
		username = parsed.User.Username()
		if p, set := parsed.User.Password(); set {
			password = p
		}
		parsed.User = nil
		proxyURL = parsed.String()
	}
	return utils.HTTPClientConfig{
		Timeout:       h.Timeout,
		KATimeout:     h.KeepAlive,
		ProxyURL:      proxyURL,
		ProxyUsername: username,
		ProxyPassword: password,
		UserAgent:     ua,
		Headers:       utils.ParseHeaderArgs(h.Headers),
	}
}
