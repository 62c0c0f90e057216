package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/olivier-w/ytmp/internal/queue"
	"github.com/olivier-w/ytmp/internal/util"
)

type SearchParams struct {
	Query              []string `pos:"true" help:"Words to search for."`
	Limit              int      `short:"n" help:"Number of results (0 uses the configured value)." default:"0"`
	ConfigDir          string   `help:"Directory holding settings.json (default: user config dir)." optional:"true"`
	CookiesFromBrowser string   `help:"Browser to read cookies from (e.g. firefox)." optional:"true"`
}

func searchCmd() *cobra.Command {
	return boa.CmdT[SearchParams]{
		Use:         "search",
		Short:       "Search YouTube and print the results",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *SearchParams, cmd *cobra.Command, args []string) {
			_, s := loadSettings(CommonParams{
				ConfigDir:          params.ConfigDir,
				CookiesFromBrowser: params.CookiesFromBrowser,
				Volume:             -1,
			})
			limit := params.Limit
			if limit <= 0 {
				limit = s.Library.SearchResults
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			tracks, err := newClient(s).Search(ctx, strings.Join(params.Query, " "), limit)
			exitOnError(err)
			printTracks(tracks)
		},
	}.ToCobra()
}

func printTracks(tracks []queue.Track) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Length", "Uploader", "Title"})
	for _, tr := range tracks {
		t.AppendRow(table.Row{tr.ID, util.FormatSeconds(tr.Duration), tr.Uploader, tr.Title})
	}
	t.Render()
}
