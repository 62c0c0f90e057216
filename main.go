package main

import (
	"runtime/debug"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
)

// CommonParams are the flags for running the player. Subcommands repeat
// the ones they need.
type CommonParams struct {
	ConfigDir          string `help:"Directory for settings, history and the queue (default: user config dir)." optional:"true"`
	CacheDir           string `help:"Directory for downloaded audio (default: user cache dir)." optional:"true"`
	MaxDownloads       int    `help:"Maximum concurrent downloads (0 keeps the configured value)." default:"0"`
	CookiesFromBrowser string `help:"Browser to read cookies from when downloading (e.g. firefox)." optional:"true"`
	Volume             int    `help:"Starting volume 0-100 (-1 keeps the configured value)." default:"-1"`
}

type PlayParams struct {
	ConfigDir          string   `help:"Directory for settings, history and the queue (default: user config dir)." optional:"true"`
	CacheDir           string   `help:"Directory for downloaded audio (default: user cache dir)." optional:"true"`
	MaxDownloads       int      `help:"Maximum concurrent downloads (0 keeps the configured value)." default:"0"`
	CookiesFromBrowser string   `help:"Browser to read cookies from when downloading (e.g. firefox)." optional:"true"`
	Volume             int      `help:"Starting volume 0-100 (-1 keeps the configured value)." default:"-1"`
	Items              []string `pos:"true" optional:"true" help:"Audio files, directories, m3u/pls playlists or URLs to enqueue."`
}

func main() {
	boa.CmdT[CommonParams]{
		Use:         "ytmp",
		Short:       "Terminal music player for YouTube audio and local files",
		Version:     appVersion(),
		ParamEnrich: defaultParamEnricher(),
		SubCmds: []*cobra.Command{
			playCmd(),
			searchCmd(),
			cleanCmd(),
		},
		RunFunc: func(params *CommonParams, cmd *cobra.Command, args []string) {
			exitOnError(runTUI(*params, nil))
		},
	}.Run()
}

func playCmd() *cobra.Command {
	return boa.CmdT[PlayParams]{
		Use:         "play",
		Short:       "Start the player and enqueue files, playlists or URLs",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *PlayParams, cmd *cobra.Command, args []string) {
			exitOnError(runTUI(CommonParams{
				ConfigDir:          params.ConfigDir,
				CacheDir:           params.CacheDir,
				MaxDownloads:       params.MaxDownloads,
				CookiesFromBrowser: params.CookiesFromBrowser,
				Volume:             params.Volume,
			}, params.Items))
		},
	}.ToCobra()
}

func defaultParamEnricher() boa.ParamEnricher {
	return boa.ParamEnricherCombine(
		boa.ParamEnricherBool,
		boa.ParamEnricherName,
		boa.ParamEnricherShort,
	)
}

func appVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown-(no build info)"
	}
	if bi.Main.Version == "" {
		return "unknown-(no version)"
	}
	return bi.Main.Version
}
