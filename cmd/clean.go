package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/tgytdl/internal/output"
	"github.com/tanq16/tgytdl/internal/scratch"
)

func newCleanCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean [--older-than DURATION]",
		Short: "Remove scratch files left behind by a stopped bot",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig(cmd)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			dir, err := scratch.New(cfg.ScratchDir)
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			n, err := dir.Sweep(olderThan)
			if err != nil {
				output.PrintError(fmt.Sprintf("Error cleaning up scratch files: %v", err))
				os.Exit(1)
			}
			output.PrintSuccess(fmt.Sprintf("%s Removed %d scratch file(s) from %s", output.StyleSymbols["pass"], n, dir.Path()))
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove files older than this (0 removes all)")
	return cmd
}
