package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"ambientdeck/internal/lyrics"
)

var lyricsCmd = &cobra.Command{
	Use:   "lyrics",
	Short: "lyric lookup tools",
	Long:  `inspect what the lyric resolver would find for a track.`,
}

var lyricsSearchCmd = &cobra.Command{
	Use:   "search <artist> <title>",
	Short: "search for lyrics on lrclib",
	Long:  `runs the same lookup the dashboard uses and reports what it found.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist := args[0]
		title := args[1]

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		setupLogging(cfg)

		resolver, err := lyrics.NewResolver(lyrics.ResolverConfig{
			SearchURL:     cfg.LrclibSearchURL,
			HTTPClient:    &http.Client{Timeout: cfg.HTTPTimeout()},
			MaxPlainChars: cfg.LyricMaxChars,
		})
		if err != nil {
			return err
		}

		fmt.Printf("searching for: %s - %s\n", artist, title)
		fmt.Printf("normalized as: %s - %s\n\n", lyrics.PrimaryArtist(artist), lyrics.NormalizeTitle(title))

		res, _ := resolver.Resolve(context.Background(), artist, title)
		if res.Empty() {
			fmt.Println("no lyrics found")
			return nil
		}

		if len(res.Synced) > 0 {
			fmt.Printf("synced lines: %d\n\n", len(res.Synced))
			preview := res.Synced
			if len(preview) > 8 {
				preview = preview[:8]
			}
			for _, line := range preview {
				seconds := line.OffsetMs / 1000
				fmt.Printf("  [%d:%02d] %s\n", seconds/60, seconds%60, line.Text)
			}
			if len(res.Synced) > len(preview) {
				fmt.Printf("  ... %d more\n", len(res.Synced)-len(preview))
			}
			return nil
		}

		fmt.Printf("plain lines: %d\n\n", len(strings.Split(res.Plain, "\n")))
		fmt.Println(res.Plain)
		return nil
	},
}

func init() {
	lyricsCmd.AddCommand(lyricsSearchCmd)
	rootCmd.AddCommand(lyricsCmd)
}
