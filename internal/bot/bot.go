// Package bot wires chat commands to their handlers and runs the update
// loop.
package bot

import (
	"context"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgytdl/internal/pipeline"
	"github.com/tanq16/tgytdl/internal/telegram"
)

const (
	MsgUsage = "Hello! Send /download <YouTube URL> to download a video."
	MsgNoURL = "Please provide a YouTube URL."
)

// Downloader runs one download request to completion and reports the
// outcome to the chat itself.
type Downloader interface {
	Run(ctx context.Context, req pipeline.Request)
}

type Bot struct {
	router     *Router
	sender     telegram.Sender
	downloader Downloader
	wg         sync.WaitGroup
}

func New(sender telegram.Sender, downloader Downloader) *Bot {
	b := &Bot{
		router:     NewRouter(),
		sender:     sender,
		downloader: downloader,
	}
	b.router.Handle("start", b.handleStart)
	b.router.Handle("help", b.handleStart)
	b.router.Handle("download", b.handleDownload)
	return b
}

func (b *Bot) Router() *Router {
	return b.router
}

// Serve handles every command from cmds on its own goroutine until cmds is
// closed, then waits for in-flight handlers.
func (b *Bot) Serve(ctx context.Context, cmds <-chan telegram.Command) {
	log.Info().Str("op", "bot/serve").Strs("commands", b.router.Commands()).Msg("serving commands")
	for cmd := range cmds {
		log.Debug().Str("op", "bot/serve").Str("command", cmd.Name).Int64("chat", cmd.ChatID).Str("from", cmd.From).Msg("command received")
		b.wg.Add(1)
		go func(cmd telegram.Command) {
			defer b.wg.Done()
			b.router.Dispatch(ctx, cmd)
		}(cmd)
	}
	log.Info().Str("op", "bot/serve").Msg("update stream closed, waiting for handlers")
	b.wg.Wait()
}

func (b *Bot) handleStart(ctx context.Context, cmd telegram.Command) {
	b.reply(ctx, cmd.ChatID, MsgUsage)
}

func (b *Bot) handleDownload(ctx context.Context, cmd telegram.Command) {
	raw, err := videoURL(cmd.Args)
	if err != nil {
		log.Info().Str("op", "bot/download").Int64("chat", cmd.ChatID).Err(err).Msg("prompting for url")
		b.reply(ctx, cmd.ChatID, MsgNoURL)
		return
	}
	b.downloader.Run(ctx, pipeline.Request{URL: raw, ChatID: cmd.ChatID})
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.sender.SendText(context.WithoutCancel(ctx), chatID, text); err != nil {
		log.Error().Str("op", "bot/reply").Int64("chat", chatID).Err(err).Msg("error sending reply")
	}
}

// videoURL returns the first argument if it is an absolute http(s) URL.
func videoURL(args []string) (string, error) {
	if len(args) == 0 {
		return "", pipeline.ErrNoURL
	}
	u, err := url.Parse(args[0])
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", pipeline.ErrNoURL
	}
	return args[0], nil
}
