package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgytdl/internal/extractor"
	"github.com/tanq16/tgytdl/internal/utils"
)

type Options struct {
	// BinaryPath skips lookup when set.
	BinaryPath string
	// CookiesFromBrowser is passed through as --cookies-from-browser.
	CookiesFromBrowser string
	// HTTPClient fetches the yt-dlp release when no binary is installed.
	HTTPClient *utils.HTTPClient
}

type Extractor struct {
	binary             string
	cookiesFromBrowser string
}

func New(opts Options) (*Extractor, error) {
	binary := opts.BinaryPath
	if binary == "" {
		path, err := EnsureYtdlp(opts.HTTPClient)
		if err != nil {
			return nil, fmt.Errorf("error ensuring yt-dlp: %w", err)
		}
		binary = path
	}
	log.Debug().Str("op", "ytdlp/initial").Msgf("using yt-dlp at %s", binary)
	return &Extractor{binary: binary, cookiesFromBrowser: opts.CookiesFromBrowser}, nil
}

type probeJSON struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Ext      string `json:"ext"`
	FormatID string `json:"format_id"`
	Filesize *int64 `json:"filesize"`
}

func (e *Extractor) Probe(ctx context.Context, url string, sel extractor.Selector) (*extractor.ProbeResult, error) {
	args := append(e.baseArgs(sel), "-J", url)
	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	log.Debug().Str("op", "ytdlp/probe").Msgf("Executing yt-dlp command: %s", cmd.String())

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("yt-dlp probe failed: %w", commandError(err, stderr.String()))
	}
	var data probeJSON
	if err := json.Unmarshal(out, &data); err != nil {
		return nil, fmt.Errorf("error decoding yt-dlp metadata: %w", err)
	}
	container := data.Ext
	if container == "" {
		container = sel.Container
	}
	return &extractor.ProbeResult{
		Size:      data.Filesize,
		Container: container,
		Title:     data.Title,
		FormatID:  data.FormatID,
	}, nil
}

func (e *Extractor) baseArgs(sel extractor.Selector) []string {
	args := []string{"--no-warnings", "--no-playlist", "-f", sel.Format}
	if e.cookiesFromBrowser != "" {
		args = append(args, "--cookies-from-browser", e.cookiesFromBrowser)
	}
	return args
}

// commandError folds the last line yt-dlp printed on stderr into err.
func commandError(err error, stderr string) error {
	msg := lastLine(stderr)
	if msg == "" {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
