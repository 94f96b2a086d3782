package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tanq16/tgytdl/internal/bot"
	"github.com/tanq16/tgytdl/internal/config"
	"github.com/tanq16/tgytdl/internal/extractor"
	"github.com/tanq16/tgytdl/internal/output"
	"github.com/tanq16/tgytdl/internal/pipeline"
	"github.com/tanq16/tgytdl/internal/scheduler"
	"github.com/tanq16/tgytdl/internal/scratch"
	"github.com/tanq16/tgytdl/internal/telegram"
	"github.com/tanq16/tgytdl/internal/utils"
)

// scratch files older than this at startup belong to a dead process
const staleScratchAge = time.Hour

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [--token TOKEN]",
		Short: "Start the bot and answer chat commands until interrupted",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			if err := validateRun(cfg); err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			if err := runBot(cmd.Context(), cfg); err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
		},
	}

	addRunFlags(cmd.Flags())
	return cmd
}

func addRunFlags(fs *pflag.FlagSet) {
	fs.String("token", "", "Telegram bot token (prefer "+config.TokenEnv+")")
	fs.Duration("transfer-timeout", 0, "Abort a single transfer after this long (0 disables)")
	fs.Duration("poll-timeout", 60*time.Second, "Long poll timeout for Telegram updates")
}

func validateRun(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.ValidateRun()
}

func runBot(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := utils.NewHTTPClient(cfg.HTTP.ClientConfig())
	ext, err := newExtractor(cfg, httpClient)
	if err != nil {
		return err
	}
	sel, err := extractor.LookupSelector(cfg.Format)
	if err != nil {
		return err
	}
	dir, err := scratch.New(cfg.ScratchDir)
	if err != nil {
		return err
	}
	if n, err := dir.Sweep(staleScratchAge); err != nil {
		log.Warn().Str("op", "cmd/run").Err(err).Msg("error sweeping scratch directory")
	} else if n > 0 {
		log.Info().Str("op", "cmd/run").Int("removed", n).Msg("removed stale scratch files")
	}

	tg, err := telegram.NewClient(cfg.Token, httpClient.Std(), cfg.PollTimeout)
	if err != nil {
		return err
	}
	pool := scheduler.NewPool(cfg.TransferTimeout)
	pipe := pipeline.New(ext, tg, dir, pool, pipeline.Options{
		Selector: sel,
		MaxSize:  cfg.MaxSizeBytes(),
	})
	b := bot.New(tg, pipe)

	output.PrintSuccess(fmt.Sprintf("%s @%s is listening (backend %s, format %s, limit %d MB)",
		output.StyleSymbols["pass"], tg.Username(), cfg.Backend, sel.Name, cfg.MaxSizeMB))
	output.PrintFields(os.Stdout, map[string]string{
		"commands": "/" + strings.Join(b.Router().Commands(), ", /"),
		"scratch":  dir.Path(),
	})

	b.Serve(ctx, tg.Commands(ctx))
	pool.Close()
	output.PrintInfo(fmt.Sprintf("%s Bot stopped", output.StyleSymbols["info"]))
	return nil
}
