// Package media drives yt-dlp as the external video source. The transfer
// core only sees byte-count events; format negotiation, extraction and
// muxing stay inside the tool.
package media

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mirofic/fetchr/internal/transfer"
)

// progressPrefix tags the machine-readable progress lines requested from
// yt-dlp so they can be told apart from its normal output.
const progressPrefix = "fetchr-progress"

var ytdlpFormats = map[string]string{
	"best":  "bestvideo+bestaudio/best",
	"worst": "worstvideo+worstaudio/worst",
	"1080p": "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]",
	"720p":  "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]",
	"480p":  "bestvideo[height<=480][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]",
	"360p":  "bestvideo[height<=360][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]",
	"audio": "bestaudio[ext=m4a]/bestaudio",
}

// Source downloads media through a yt-dlp binary resolved by EnsureYtdlp.
type Source struct {
	YtdlpPath  string
	FFmpegPath string // optional, passed through when set
}

// ResolveFormat maps a quality selector to a yt-dlp format expression. A
// selector that is not a known preset is passed through as a raw format id.
func ResolveFormat(quality string) string {
	if quality == "" {
		return ytdlpFormats["best"]
	}
	if expr, ok := ytdlpFormats[quality]; ok {
		return expr
	}
	return quality
}

// Fetch downloads one media URL, emitting a transfer.MediaEvent for every
// progress line yt-dlp prints and a final finished event. Cancelling ctx
// kills the subprocess.
func (s *Source) Fetch(ctx context.Context, url, quality, outputPath string, onEvent func(transfer.MediaEvent)) error {
	args := []string{
		"--newline",
		"--no-warnings",
		"--no-playlist",
		"--progress",
		"--progress-template", progressTemplate(),
		"-f", ResolveFormat(quality),
		"-o", outputPath,
	}
	if s.FFmpegPath != "" {
		args = append(args, "--ffmpeg-location", s.FFmpegPath)
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, s.YtdlpPath, args...)
	log.Debug().Str("op", "media/fetch").Msgf("Executing yt-dlp command: %s", cmd.String())

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("error creating stdout pipe: %v", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("error creating stderr pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error starting yt-dlp: %v", err)
	}

	var lastBytes, lastTotal int64
	go drainStderr(stderr)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		ev, ok := parseProgressLine(line)
		if !ok {
			continue
		}
		lastBytes, lastTotal = ev.Bytes, ev.Total
		if onEvent != nil {
			onEvent(ev)
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("yt-dlp failed: %v", err)
	}
	if onEvent != nil {
		onEvent(transfer.MediaEvent{Finished: true, Bytes: lastBytes, Total: lastTotal})
	}
	log.Debug().Str("op", "media/fetch").Msgf("yt-dlp download completed for %s", url)
	return nil
}

func progressTemplate() string {
	return fmt.Sprintf("download:%s %%(progress.downloaded_bytes)s %%(progress.total_bytes)s %%(progress.total_bytes_estimate)s", progressPrefix)
}

// parseProgressLine decodes "fetchr-progress <downloaded> <total> <estimate>"
// lines. yt-dlp prints NA for fields it cannot determine.
func parseProgressLine(line string) (transfer.MediaEvent, bool) {
	if !strings.HasPrefix(line, progressPrefix+" ") {
		return transfer.MediaEvent{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(line, progressPrefix+" "))
	if len(fields) != 3 {
		return transfer.MediaEvent{}, false
	}
	bytes := parseByteField(fields[0])
	total := parseByteField(fields[1])
	if total == 0 {
		total = parseByteField(fields[2])
	}
	return transfer.MediaEvent{Bytes: bytes, Total: total}, true
}

func parseByteField(s string) int64 {
	if s == "" || s == "NA" || s == "null" {
		return 0
	}
	// yt-dlp renders estimates as floats.
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return int64(f)
	}
	return 0
}

func drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			log.Debug().Str("op", "media/fetch").Msg(line)
		}
	}
}
