// Package native implements the extraction contract in-process with
// github.com/kkdai/youtube/v2, for hosts where yt-dlp is not available.
package native

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	youtube "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgytdl/internal/extractor"
)

// videoClient is the subset of *youtube.Client the extractor needs.
type videoClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

type Extractor struct {
	client videoClient
}

func New(httpClient *http.Client) *Extractor {
	return &Extractor{client: &youtube.Client{HTTPClient: httpClient}}
}

func (e *Extractor) Probe(ctx context.Context, url string, sel extractor.Selector) (*extractor.ProbeResult, error) {
	video, format, err := e.resolve(ctx, url, sel)
	if err != nil {
		return nil, err
	}
	res := &extractor.ProbeResult{
		Container: sel.Container,
		Title:     video.Title,
		FormatID:  strconv.Itoa(format.ItagNo),
	}
	if format.ContentLength > 0 {
		size := format.ContentLength
		res.Size = &size
	}
	log.Debug().Str("op", "native/probe").Msgf("selected itag %d (%s) for %s", format.ItagNo, format.QualityLabel, video.ID)
	return res, nil
}

func (e *Extractor) Transfer(ctx context.Context, url string, sel extractor.Selector, dest string) error {
	video, format, err := e.resolve(ctx, url, sel)
	if err != nil {
		return err
	}
	stream, _, err := e.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("error opening stream: %w", err)
	}
	defer stream.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("error opening destination: %w", err)
	}
	written, err := io.Copy(out, stream)
	if err != nil {
		out.Close()
		return fmt.Errorf("error writing stream: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("error writing stream: %w", err)
	}
	log.Info().Str("op", "native/download").Msgf("wrote %d bytes for %s", written, video.ID)
	return nil
}

func (e *Extractor) resolve(ctx context.Context, url string, sel extractor.Selector) (*youtube.Video, *youtube.Format, error) {
	video, err := e.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("error resolving video: %w", err)
	}
	format := selectFormat(video.Formats, sel)
	if format == nil {
		return nil, nil, fmt.Errorf("no %s stream with audio available", sel.Container)
	}
	return video, format, nil
}

// selectFormat returns the highest bitrate progressive format in the
// selector's container, or nil.
func selectFormat(formats youtube.FormatList, sel extractor.Selector) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "video/"+sel.Container) || f.AudioChannels == 0 {
			continue
		}
		if sel.MaxHeight > 0 && f.Height > sel.MaxHeight {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	return best
}
