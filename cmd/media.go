package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mirofic/fetchr/internal/media"
	"github.com/mirofic/fetchr/internal/output"
	"github.com/mirofic/fetchr/internal/transfer"
)

func newMediaCmd() *cobra.Command {
	var format string
	var listFormats bool

	cmd := &cobra.Command{
		Use:   "media [URL]",
		Short: "Download video or audio via yt-dlp",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			url := args[0]
			ytdlpPath, err := media.EnsureYtdlp()
			if err != nil {
				output.PrintError(fmt.Sprintf("yt-dlp unavailable: %v", err))
				os.Exit(1)
			}
			source := &media.Source{
				YtdlpPath:  ytdlpPath,
				FFmpegPath: media.EnsureFFmpeg(),
			}
			if listFormats {
				os.Exit(printFormats(source, url))
			}
			dest := outputPath
			if dest == "" {
				dest = "%(title)s.%(ext)s"
			}
			req := transfer.Request{
				URL:        url,
				OutputPath: dest,
				Mode:       transfer.ModeMediaStream,
				Quality:    format,
			}
			session := transfer.NewSession(req, nil, source)
			os.Exit(runSession(session, url, true))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "best", "Quality preset (best, worst, 1080p, 720p, 480p, 360p, audio) or raw yt-dlp format id")
	cmd.Flags().BoolVar(&listFormats, "list-formats", false, "List available muxed formats and exit")
	return cmd
}

func printFormats(source *media.Source, url string) int {
	formats, err := source.ListFormats(context.Background(), url)
	if err != nil {
		output.PrintError(fmt.Sprintf("Failed to list formats: %v", err))
		return 1
	}
	if len(formats) == 0 {
		output.PrintWarning("No muxed audio+video formats reported, use a raw format id")
		return 0
	}
	output.PrintHeader("Available formats")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tHEIGHT\tFPS\tCONTAINER\tNOTE")
	for _, f := range formats {
		fmt.Fprintf(w, "%s\t%d\t%.0f\t%s\t%s\n", f.ID, f.Height, f.FPS, f.Container, f.Note)
	}
	w.Flush()
	return 0
}
