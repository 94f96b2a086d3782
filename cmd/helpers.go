package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tanq16/tgytdl/internal/config"
	"github.com/tanq16/tgytdl/internal/extractor"
	"github.com/tanq16/tgytdl/internal/extractor/native"
	"github.com/tanq16/tgytdl/internal/extractor/ytdlp"
	"github.com/tanq16/tgytdl/internal/utils"
)

// loadConfig layers explicitly set flags over the config file and
// environment, then initializes logging. Callers validate the result once
// their own settings are applied.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	fs := cmd.Flags()
	path, _ := fs.GetString("config")
	envFile, _ := fs.GetString("env-file")
	cfg, err := config.Load(path, envFile)
	if err != nil {
		return cfg, err
	}
	if err := applyFlags(&cfg, fs); err != nil {
		return cfg, err
	}
	utils.InitLogger(cfg.Debug, cfg.JSONLogs)
	return cfg, nil
}

// applyFlags copies every flag the user set onto cfg. Flags a command does
// not define are skipped.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet) error {
	strs := map[string]*string{
		"token":                &cfg.Token,
		"format":               &cfg.Format,
		"backend":              &cfg.Backend,
		"ytdlp":                &cfg.YtdlpPath,
		"cookies-from-browser": &cfg.CookiesFromBrowser,
		"scratch-dir":          &cfg.ScratchDir,
		"user-agent":           &cfg.HTTP.UserAgent,
		"proxy":                &cfg.HTTP.Proxy,
		"proxy-username":       &cfg.HTTP.ProxyUsername,
		"proxy-password":       &cfg.HTTP.ProxyPassword,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	durations := map[string]*time.Duration{
		"timeout":            &cfg.HTTP.Timeout,
		"keep-alive-timeout": &cfg.HTTP.KeepAlive,
		"transfer-timeout":   &cfg.TransferTimeout,
		"poll-timeout":       &cfg.PollTimeout,
	}
	for name, dst := range durations {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetDuration(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	bools := map[string]*bool{
		"debug":     &cfg.Debug,
		"json-logs": &cfg.JSONLogs,
	}
	for name, dst := range bools {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetBool(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	if fs.Changed("max-size-mb") {
		v, err := fs.GetInt64("max-size-mb")
		if err != nil {
			return err
		}
		cfg.MaxSizeMB = v
	}
	if fs.Changed("header") {
		v, err := fs.GetStringArray("header")
		if err != nil {
			return err
		}
		cfg.HTTP.Headers = v
	}
	return nil
}

func newExtractor(cfg config.Config, client *utils.HTTPClient) (extractor.Extractor, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendNative:
		return native.New(client.Std()), nil
	case config.BackendYtdlp:
		return ytdlp.New(ytdlp.Options{
			BinaryPath:         cfg.YtdlpPath,
			CookiesFromBrowser: cfg.CookiesFromBrowser,
			HTTPClient:         client,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
