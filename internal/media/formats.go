package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// Format is one candidate download format reported by yt-dlp.
type Format struct {
	ID        string
	Height    int
	FPS       float64
	Container string
	Note      string
}

type ytdlpInfo struct {
	Title   string        `json:"title"`
	Formats []ytdlpFormat `json:"formats"`
}

type ytdlpFormat struct {
	FormatID   string  `json:"format_id"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	Ext        string  `json:"ext"`
	FormatNote string  `json:"format_note"`
	VCodec     string  `json:"vcodec"`
	ACodec     string  `json:"acodec"`
}

// ListFormats enumerates the muxed (audio+video) formats for url, the set a
// quality selector can name directly. An empty list is not an error; some
// sources only expose split streams.
func (s *Source) ListFormats(ctx context.Context, url string) ([]Format, error) {
	cmd := exec.CommandContext(ctx, s.YtdlpPath, "-J", "--no-warnings", "--no-playlist", url)
	log.Debug().Str("op", "media/formats").Msgf("Executing yt-dlp command: %s", cmd.String())
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("error listing formats: %v", err)
	}
	return parseFormats(out)
}

func parseFormats(data []byte) ([]Format, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("error parsing yt-dlp output: %v", err)
	}
	var formats []Format
	for _, f := range info.Formats {
		if f.VCodec == "none" || f.ACodec == "none" {
			continue
		}
		switch f.Ext {
		case "mp4", "webm", "mkv":
		default:
			continue
		}
		formats = append(formats, Format{
			ID:        f.FormatID,
			Height:    f.Height,
			FPS:       f.FPS,
			Container: f.Ext,
			Note:      f.FormatNote,
		})
	}
	return formats, nil
}
