// Package pipeline implements the /download flow: probe, admission, transfer
// to a scratch file on a worker, upload, and unconditional cleanup. Every
// outcome is reported to the requesting chat; nothing escapes Run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgytdl/internal/extractor"
	"github.com/tanq16/tgytdl/internal/scheduler"
	"github.com/tanq16/tgytdl/internal/scratch"
	"github.com/tanq16/tgytdl/internal/telegram"
	"github.com/tanq16/tgytdl/internal/utils"
)

const DefaultMaxSize = 50 * utils.MiB

const maxTitleRunes = 60

type Request struct {
	URL    string
	ChatID int64
}

type Options struct {
	Selector extractor.Selector
	MaxSize  int64
}

type Pipeline struct {
	extractor extractor.Extractor
	sender    telegram.Sender
	scratch   *scratch.Dir
	pool      *scheduler.Pool
	selector  extractor.Selector
	maxSize   int64
}

func New(ext extractor.Extractor, sender telegram.Sender, dir *scratch.Dir, pool *scheduler.Pool, opts Options) *Pipeline {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Selector.Format == "" {
		opts.Selector, _ = extractor.LookupSelector(extractor.DefaultPreset)
	}
	return &Pipeline{
		extractor: ext,
		sender:    sender,
		scratch:   dir,
		pool:      pool,
		selector:  opts.Selector,
		maxSize:   opts.MaxSize,
	}
}

func (p *Pipeline) MaxSize() int64 {
	return p.maxSize
}

// Run downloads req.URL and sends it to req.ChatID. Failures become a reply
// to the chat; the scratch file is gone by the time Run returns.
func (p *Pipeline) Run(ctx context.Context, req Request) {
	logger := log.With().
		Str("request", uuid.NewString()[:8]).
		Int64("chat", req.ChatID).
		Str("url", req.URL).
		Logger()
	// replies still go out while the bot is shutting down
	replyCtx := context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("op", "pipeline/run").Msgf("pipeline panicked: %v", r)
			p.reply(replyCtx, logger, req.ChatID, failureMessage(errors.New("internal error")))
		}
	}()

	logger.Info().Str("op", "pipeline/run").Msg("download requested")
	err := p.execute(ctx, req, logger)
	switch {
	case err == nil:
		logger.Info().Str("op", "pipeline/run").Msg("video delivered")
	case errors.Is(err, ErrSizeUnknown):
		logger.Info().Str("op", "pipeline/run").Msg("rejected, size unknown")
		p.reply(replyCtx, logger, req.ChatID, MsgSizeUnknown)
	case errors.Is(err, ErrTooLarge):
		logger.Info().Str("op", "pipeline/run").Msg("rejected, too large")
		p.reply(replyCtx, logger, req.ChatID, tooLargeMessage(p.maxSize))
	default:
		stage := "delivery"
		var te *TransferError
		if errors.As(err, &te) {
			stage = string(te.Stage)
		}
		logger.Error().Str("op", "pipeline/run").Str("stage", stage).Err(err).Msg("download failed")
		p.reply(replyCtx, logger, req.ChatID, failureMessage(err))
	}
}

func (p *Pipeline) execute(ctx context.Context, req Request, logger zerolog.Logger) error {
	adm := Admit(ctx, p.extractor, req.URL, p.selector, p.maxSize)
	if adm.Verdict != Accepted {
		return adm.Err
	}
	probe := adm.Probe
	logger.Debug().Str("op", "pipeline/admit").
		Str("size", utils.FormatBytes(uint64(*probe.Size))).
		Str("format", probe.FormatID).
		Msg("admitted")

	container := probe.Container
	if container == "" {
		container = p.selector.Container
	}
	file, err := p.scratch.Allocate(container)
	if err != nil {
		return &TransferError{Stage: StageAllocate, Err: err}
	}
	defer func() {
		if err := file.Remove(); err != nil {
			logger.Warn().Str("op", "pipeline/cleanup").Err(err).Msg("error removing scratch file")
		}
	}()

	if err := p.transfer(ctx, req, file); err != nil {
		return err
	}
	if err := p.verify(file, probe, logger); err != nil {
		return err
	}
	return p.deliver(ctx, req, probe, file, logger)
}

func (p *Pipeline) transfer(ctx context.Context, req Request, file *scratch.File) error {
	task, err := p.pool.Submit(ctx, func(taskCtx context.Context) error {
		return p.extractor.Transfer(taskCtx, req.URL, p.selector, file.Path())
	})
	if err != nil {
		return &TransferError{Stage: StageTransfer, Err: err}
	}
	if err := task.Wait(ctx); err != nil {
		// the worker has to let go of the file before cleanup runs
		<-task.Done()
		return &TransferError{Stage: StageTransfer, Err: err}
	}
	return nil
}

// verify checks the transferred file against the ceiling. A size that
// differs from the probe but stays under the ceiling is only logged.
func (p *Pipeline) verify(file *scratch.File, probe *extractor.ProbeResult, logger zerolog.Logger) error {
	size, err := file.Size()
	if err != nil {
		return &TransferError{Stage: StageTransfer, Err: err}
	}
	if size == 0 {
		return &TransferError{Stage: StageTransfer, Err: errors.New("transfer produced an empty file")}
	}
	if size > p.maxSize {
		logger.Warn().Str("op", "pipeline/verify").Int64("actual", size).Int64("probed", *probe.Size).Msg("transferred file exceeds limit")
		return ErrTooLarge
	}
	if size != *probe.Size {
		logger.Warn().Str("op", "pipeline/verify").Int64("actual", size).Int64("probed", *probe.Size).Msg("transferred size differs from probe")
	}
	return nil
}

func (p *Pipeline) deliver(ctx context.Context, req Request, probe *extractor.ProbeResult, file *scratch.File, logger zerolog.Logger) error {
	if err := p.sender.SendText(ctx, req.ChatID, MsgStarting); err != nil {
		return &DeliveryError{Err: err}
	}
	video := telegram.Video{
		Path:     file.Path(),
		FileName: attachmentName(probe.Title, file.Ext()),
		Caption:  probe.Title,
	}
	if err := p.sender.SendVideo(ctx, req.ChatID, video); err != nil {
		return &DeliveryError{Err: err}
	}
	// the video is already in the chat; a lost confirmation is not a failure
	p.reply(ctx, logger, req.ChatID, MsgSent)
	return nil
}

func (p *Pipeline) reply(ctx context.Context, logger zerolog.Logger, chatID int64, text string) {
	if err := p.sender.SendText(ctx, chatID, text); err != nil {
		logger.Error().Str("op", "pipeline/reply").Err(err).Msg("error sending reply")
	}
}

func attachmentName(title, ext string) string {
	name := utils.SanitizeFileName(title)
	if utf8.RuneCountInString(name) > maxTitleRunes {
		name = string([]rune(name)[:maxTitleRunes])
	}
	if name == "" {
		name = "video"
	}
	if ext == "" {
		return name
	}
	return fmt.Sprintf("%s.%s", name, ext)
}
