// Package telegram is the chat transport: it turns Bot API updates into
// commands and sends text and video replies.
package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgytdl/internal/utils"
)

// Sender delivers replies to a chat. Implementations must be safe for
// concurrent use.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendVideo(ctx context.Context, chatID int64, video Video) error
}

type Video struct {
	Path     string
	FileName string
	Caption  string
}

type Command struct {
	Name      string
	Args      []string
	ChatID    int64
	From      string
	MessageID int
}

type Client struct {
	api         *tgbotapi.BotAPI
	pollTimeout int
}

// NewClient authenticates against the Bot API. httpClient carries proxy and
// timeout settings; its timeout must exceed pollTimeout.
func NewClient(token string, httpClient tgbotapi.HTTPClient, pollTimeout time.Duration) (*Client, error) {
	if err := tgbotapi.SetLogger(botLogger{logger: utils.GetLogger("telegram-bot-api")}); err != nil {
		log.Warn().Str("op", "telegram/init").Err(err).Msg("could not replace bot api logger")
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("error connecting to telegram: %w", err)
	}
	api.Debug = zerolog.GlobalLevel() <= zerolog.DebugLevel
	if pollTimeout <= 0 {
		pollTimeout = 60 * time.Second
	}
	log.Info().Str("op", "telegram/init").Msgf("authorized as @%s", api.Self.UserName)
	return &Client{api: api, pollTimeout: int(pollTimeout.Seconds())}, nil
}

func (c *Client) Username() string {
	return c.api.Self.UserName
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}
	return nil
}

// SendVideo streams the file at v.Path as a video attachment.
func (c *Client) SendVideo(ctx context.Context, chatID int64, v Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(v.Path)
	if err != nil {
		return fmt.Errorf("error opening video: %w", err)
	}
	defer f.Close()

	name := v.FileName
	if name == "" {
		name = filepath.Base(v.Path)
	}
	msg := tgbotapi.NewVideo(chatID, tgbotapi.FileReader{Name: name, Reader: f})
	msg.SupportsStreaming = true
	msg.Caption = v.Caption
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("error sending video: %w", err)
	}
	return nil
}

// Commands long-polls for updates and emits bot commands until ctx is done.
// The returned channel is closed when polling stops.
func (c *Client) Commands(ctx context.Context) <-chan Command {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.pollTimeout
	updates := c.api.GetUpdatesChan(u)

	out := make(chan Command)
	go func() {
		defer close(out)
		defer c.api.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				cmd, ok := CommandFromUpdate(update)
				if !ok {
					continue
				}
				select {
				case out <- cmd:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// CommandFromUpdate extracts a command from a message update. Arguments are
// split on whitespace.
func CommandFromUpdate(update tgbotapi.Update) (Command, bool) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return Command{}, false
	}
	cmd := Command{
		Name:      strings.ToLower(msg.Command()),
		Args:      strings.Fields(msg.CommandArguments()),
		MessageID: msg.MessageID,
	}
	if msg.Chat != nil {
		cmd.ChatID = msg.Chat.ID
	}
	if msg.From != nil {
		cmd.From = msg.From.UserName
	}
	return cmd, true
}

// botLogger routes the library's internal logging into zerolog.
type botLogger struct {
	logger zerolog.Logger
}

func (l botLogger) Println(v ...interface{}) {
	l.logger.Debug().Msg(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}
