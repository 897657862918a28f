package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

func newHTTPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http [URL] [--output OUTPUT_PATH]",
		Short: "Download file via HTTP/HTTPS",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(runPlainDownload(args[0]))
		},
	}
	return cmd
}
