package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/tgytdl/internal/extractor"
	"github.com/tanq16/tgytdl/internal/output"
	"github.com/tanq16/tgytdl/internal/pipeline"
	"github.com/tanq16/tgytdl/internal/utils"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe [URL]",
		Short: "Check whether the bot would accept a video, without downloading it",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig(cmd)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			httpClient := utils.NewHTTPClient(cfg.HTTP.ClientConfig())
			ext, err := newExtractor(cfg, httpClient)
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			sel, err := extractor.LookupSelector(cfg.Format)
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}

			adm := pipeline.Admit(cmd.Context(), ext, args[0], sel, cfg.MaxSizeBytes())
			output.PrintHeader(args[0])
			output.PrintFields(os.Stdout, probeFields(adm, sel, cfg.MaxSizeBytes()))
			switch adm.Verdict {
			case pipeline.Accepted:
				output.PrintSuccess(fmt.Sprintf("%s %s", output.StyleSymbols["pass"], adm.Verdict))
			case pipeline.Failed:
				output.PrintError(fmt.Sprintf("%s %s: %v", output.StyleSymbols["fail"], adm.Verdict, adm.Err))
				os.Exit(1)
			default:
				output.PrintWarning(fmt.Sprintf("%s %s", output.StyleSymbols["warning"], adm.Verdict))
			}
		},
	}
}

func probeFields(adm pipeline.Admission, sel extractor.Selector, limit int64) map[string]string {
	fields := map[string]string{
		"preset": sel.Name,
		"limit":  utils.FormatBytes(uint64(limit)),
	}
	if adm.Probe == nil {
		return fields
	}
	fields["title"] = adm.Probe.Title
	fields["format"] = adm.Probe.FormatID
	fields["container"] = adm.Probe.Container
	fields["size"] = "unknown"
	if adm.Probe.SizeKnown() {
		fields["size"] = utils.FormatBytes(uint64(*adm.Probe.Size))
	}
	return fields
}
