package ytdlp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgytdl/internal/extractor"
)

// Transfer downloads the selected stream to dest, overwriting the empty
// scratch file the pipeline reserved.
func (e *Extractor) Transfer(ctx context.Context, url string, sel extractor.Selector, dest string) error {
	args := append(e.baseArgs(sel),
		"--newline",
		"--force-overwrites",
		"--no-part",
		"-o", dest,
		url,
	)
	cmd := exec.CommandContext(ctx, e.binary, args...)
	log.Debug().Str("op", "ytdlp/download").Msgf("Executing yt-dlp command: %s", cmd.String())

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("error creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("error creating stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error starting yt-dlp: %w", err)
	}

	var lastErrLine string
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processStream(stdout, func(line string) {
			log.Debug().Str("op", "ytdlp/download").Msg(line)
		})
	}()
	go func() {
		defer wg.Done()
		processStream(stderr, func(line string) {
			lastErrLine = line
			log.Debug().Str("op", "ytdlp/download").Msg(line)
		})
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("yt-dlp download failed: %w", commandError(err, lastErrLine))
	}
	log.Info().Str("op", "ytdlp/download").Msgf("yt-dlp download completed for %s", url)
	return nil
}

func processStream(reader io.Reader, streamFunc func(string)) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && streamFunc != nil {
			streamFunc(line)
		}
	}
}
