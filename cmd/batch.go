package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mirofic/fetchr/internal/fetch"
	"github.com/mirofic/fetchr/internal/media"
	"github.com/mirofic/fetchr/internal/output"
	"github.com/mirofic/fetchr/internal/transfer"
	"github.com/mirofic/fetchr/internal/utils"
)

type batchEntry struct {
	Link       string `yaml:"link"`
	OutputPath string `yaml:"op,omitempty"`
	Type       string `yaml:"type,omitempty"` // http (default) or media
	Format     string `yaml:"format,omitempty"`
}

type batchFile struct {
	Entries []batchEntry `yaml:"entries"`
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [YAML_FILE]",
		Short: "Process multiple downloads from a YAML file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			data, err := os.ReadFile(args[0])
			if err != nil {
				output.PrintError(fmt.Sprintf("Error reading YAML file: %v", err))
				os.Exit(1)
			}
			var bf batchFile
			if err := yaml.Unmarshal(data, &bf); err != nil {
				output.PrintError(fmt.Sprintf("Error parsing YAML file: %v", err))
				os.Exit(1)
			}
			entries := validBatchEntries(bf)
			if len(entries) == 0 {
				output.PrintError("No valid entries found in the batch file")
				os.Exit(1)
			}
			os.Exit(runBatch(entries))
		},
	}
	return cmd
}

func validBatchEntries(bf batchFile) []batchEntry {
	var entries []batchEntry
	for _, entry := range bf.Entries {
		if entry.Link == "" {
			output.PrintWarning("Skipping entry with empty link")
			continue
		}
		switch strings.ToLower(entry.Type) {
		case "", "http", "https":
			entry.Type = "http"
		case "media", "youtube", "yt":
			entry.Type = "media"
		default:
			output.PrintWarning(fmt.Sprintf("Skipping entry with unknown type %q", entry.Type))
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// runBatch fans entries out over a bounded pool. Each entry gets its own
// session; live single-line rendering is off since lines would interleave.
func runBatch(entries []batchEntry) int {
	poolSize := max(workers, 1)
	jobs := make(chan batchEntry)
	var failed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < poolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				if runBatchEntry(entry) != 0 {
					failed.Add(1)
				}
			}
		}()
	}
	for _, entry := range entries {
		jobs <- entry
	}
	close(jobs)
	wg.Wait()

	if n := failed.Load(); n > 0 {
		output.PrintError(fmt.Sprintf("%d of %d downloads failed", n, len(entries)))
		return 1
	}
	output.PrintSuccess(fmt.Sprintf("All %d downloads completed", len(entries)))
	return 0
}

var mediaSourceOnce = sync.OnceValues(func() (*media.Source, error) {
	ytdlpPath, err := media.EnsureYtdlp()
	if err != nil {
		return nil, err
	}
	return &media.Source{YtdlpPath: ytdlpPath, FFmpegPath: media.EnsureFFmpeg()}, nil
})

func runBatchEntry(entry batchEntry) int {
	output.PrintPending(fmt.Sprintf("%s %s", output.StyleSymbols["pending"], entry.Link))

	if entry.Type == "media" {
		source, err := mediaSourceOnce()
		if err != nil {
			output.PrintError(fmt.Sprintf("yt-dlp unavailable: %v", err))
			return 1
		}
		dest := entry.OutputPath
		if dest == "" {
			dest = "%(title)s.%(ext)s"
		}
		req := transfer.Request{
			URL:        entry.Link,
			OutputPath: dest,
			Mode:       transfer.ModeMediaStream,
			Quality:    entry.Format,
		}
		return runSession(transfer.NewSession(req, nil, source), entry.Link, false)
	}

	req, err := buildPlainRequest(entry.Link, entry.OutputPath)
	if err != nil {
		output.PrintError(err.Error())
		return 1
	}
	httpc := utils.NewFetchrHTTPClient(globalHTTPConfig)
	return runSession(transfer.NewSession(req, fetch.NewClient(httpc), nil), filepath.Base(req.OutputPath), false)
}
