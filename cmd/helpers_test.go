package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/tgytdl/internal/config"
)

func parsedFlags(t *testing.T, withRun bool, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("tgytdl", pflag.ContinueOnError)
	addConfigFlags(fs)
	if withRun {
		addRunFlags(fs)
	}
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestRunAcceptsShorterPollThanHTTPTimeout(t *testing.T) {
	fs := parsedFlags(t, true, "--timeout", "30s", "--poll-timeout", "10s", "--token", "123:abc")

	cfg := config.Default()
	require.NoError(t, applyFlags(&cfg, fs))

	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 10*time.Second, cfg.PollTimeout)
	assert.Equal(t, "123:abc", cfg.Token)
	assert.NoError(t, validateRun(cfg))
}

func TestRunRejectsPollAboveHTTPTimeout(t *testing.T) {
	fs := parsedFlags(t, true, "--timeout", "30s", "--token", "123:abc")

	cfg := config.Default()
	require.NoError(t, applyFlags(&cfg, fs))
	assert.Error(t, validateRun(cfg))
}

func TestRunRequiresToken(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, applyFlags(&cfg, parsedFlags(t, true)))
	assert.ErrorIs(t, validateRun(cfg), config.ErrNoToken)
}

func TestProbeIgnoresPollTimeout(t *testing.T) {
	fs := parsedFlags(t, false, "--timeout", "30s")

	cfg := config.Default()
	require.NoError(t, applyFlags(&cfg, fs))
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestUnsetFlagsKeepFileValues(t *testing.T) {
	cfg := config.Default()
	cfg.Format = "720p"
	cfg.Backend = config.BackendNative
	cfg.MaxSizeMB = 20
	cfg.TransferTimeout = time.Minute

	require.NoError(t, applyFlags(&cfg, parsedFlags(t, true, "--max-size-mb", "10")))

	assert.Equal(t, "720p", cfg.Format)
	assert.Equal(t, config.BackendNative, cfg.Backend)
	assert.Equal(t, time.Minute, cfg.TransferTimeout)
	assert.Equal(t, int64(10), cfg.MaxSizeMB)
}

func TestFlagsOverrideEverySetting(t *testing.T) {
	fs := parsedFlags(t, true,
		"-f", "360p",
		"-b", "native",
		"--ytdlp", "/opt/yt-dlp",
		"--cookies-from-browser", "firefox",
		"--scratch-dir", "/var/tmp/tgytdl",
		"-a", "randomize",
		"-p", "http://proxy.local:3128",
		"--proxy-username", "alice",
		"--proxy-password", "pw",
		"-H", "Accept-Language: en",
		"-H", "X-Trace: 1",
		"-k", "15s",
		"--transfer-timeout", "5m",
		"--debug",
		"--json-logs",
	)

	cfg := config.Default()
	require.NoError(t, applyFlags(&cfg, fs))

	assert.Equal(t, "360p", cfg.Format)
	assert.Equal(t, config.BackendNative, cfg.Backend)
	assert.Equal(t, "/opt/yt-dlp", cfg.YtdlpPath)
	assert.Equal(t, "firefox", cfg.CookiesFromBrowser)
	assert.Equal(t, "/var/tmp/tgytdl", cfg.ScratchDir)
	assert.Equal(t, "randomize", cfg.HTTP.UserAgent)
	assert.Equal(t, "http://proxy.local:3128", cfg.HTTP.Proxy)
	assert.Equal(t, "alice", cfg.HTTP.ProxyUsername)
	assert.Equal(t, "pw", cfg.HTTP.ProxyPassword)
	assert.Equal(t, []string{"Accept-Language: en", "X-Trace: 1"}, cfg.HTTP.Headers)
	assert.Equal(t, 15*time.Second, cfg.HTTP.KeepAlive)
	assert.Equal(t, 5*time.Minute, cfg.TransferTimeout)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.JSONLogs)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigLayersFlagsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tgytdl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format: 480p\nmax_size_mb: 20\n"), 0o600))

	c := &cobra.Command{Use: "probe"}
	addConfigFlags(c.Flags())
	require.NoError(t, c.Flags().Parse([]string{"--config", path, "--timeout", "30s", "--max-size-mb", "30"}))

	cfg, err := loadConfig(c)
	require.NoError(t, err)
	assert.Equal(t, "480p", cfg.Format)
	assert.Equal(t, int64(30), cfg.MaxSizeMB)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigReportsMissingFile(t *testing.T) {
	c := &cobra.Command{Use: "clean"}
	addConfigFlags(c.Flags())
	require.NoError(t, c.Flags().Parse([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}))

	_, err := loadConfig(c)
	assert.Error(t, err)
}
