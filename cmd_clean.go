package main

import (
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/olivier-w/ytmp/internal/download"
	"github.com/olivier-w/ytmp/internal/ytdlp"
)

type CleanParams struct {
	All       bool   `short:"a" help:"Remove every downloaded file, not only stale ones."`
	ConfigDir string `help:"Directory holding settings.json (default: user config dir)." optional:"true"`
	CacheDir  string `help:"Directory for downloaded audio (default: configured cache dir)." optional:"true"`
}

func cleanCmd() *cobra.Command {
	return boa.CmdT[CleanParams]{
		Use:         "clean",
		Short:       "Remove downloaded audio from the cache",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *CleanParams, cmd *cobra.Command, args []string) {
			_, s := loadSettings(CommonParams{ConfigDir: params.ConfigDir, CacheDir: params.CacheDir, Volume: -1})
			maxAge := s.Downloads.StaleAge
			if params.All {
				maxAge = 0
			}

			res, err := download.Sweep(s.Downloads.CacheDir, ytdlp.FilePrefix, maxAge, time.Now())
			exitOnError(err)
			files, bytes, err := download.Usage(s.Downloads.CacheDir, ytdlp.FilePrefix)
			exitOnError(err)

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"", "Files", "Size"})
			t.AppendRow(table.Row{"Removed", res.Removed, humanize.Bytes(uint64(res.Freed))})
			t.AppendRow(table.Row{"Remaining", files, humanize.Bytes(uint64(bytes))})
			t.SetCaption("cache: %s", s.Downloads.CacheDir)
			t.Render()
		},
	}.ToCobra()
}
