package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tanq16/tgytdl/internal/config"
	"github.com/tanq16/tgytdl/internal/extractor"
	"github.com/tanq16/tgytdl/internal/utils"
)

var TgytdlVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "tgytdl",
	Short:   "tgytdl is a Telegram bot that sends YouTube videos back to the chat",
	Version: TgytdlVersion,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	addConfigFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newProbeCmd())
	rootCmd.AddCommand(newCleanCmd())
}

// addConfigFlags registers the flags shared by every subcommand. Each one
// overrides the config file and environment only when set explicitly.
func addConfigFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Path to YAML config file")
	fs.String("env-file", "", "Path to .env file (default ./.env if present)")
	fs.StringP("format", "f", extractor.DefaultPreset, "Video format preset (bestmp4, 720p, 480p, 360p)")
	fs.StringP("backend", "b", config.BackendYtdlp, "Extraction backend (ytdlp or native)")
	fs.String("ytdlp", "", "Path to yt-dlp binary (looked up or downloaded if empty)")
	fs.String("cookies-from-browser", "", "Browser to load YouTube cookies from (eg. firefox)")
	fs.Int64("max-size-mb", 50, "Largest video to send, in MB")
	fs.String("scratch-dir", "", "Directory for in-flight downloads (default temp dir)")
	fs.DurationP("timeout", "t", 10*time.Minute, "HTTP client timeout (eg. 5m, 90s)")
	fs.DurationP("keep-alive-timeout", "k", 90*time.Second, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	fs.StringP("user-agent", "a", utils.ToolUserAgent, "User agent for requests that set none (use 'randomize' for a browser agent)")
	fs.StringP("proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	fs.String("proxy-username", "", "Proxy username (if not provided in proxy URL)")
	fs.String("proxy-password", "", "Proxy password (if not provided in proxy URL)")
	fs.StringArrayP("header", "H", []string{}, "Custom headers (like 'Accept-Language: en'); can be specified multiple times")
	fs.Bool("debug", false, "Enable debug logging")
	fs.Bool("json-logs", false, "Always log JSON, even on a terminal")
}
