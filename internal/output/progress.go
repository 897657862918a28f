package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/mirofic/fetchr/internal/transfer"
	"github.com/mirofic/fetchr/internal/utils"
)

// ProgressBar renders a fixed-width bar for a known total.
func ProgressBar(current, total int64, width int) string {
	if width <= 0 {
		width = 30
	}
	if total <= 0 {
		total = 1
	}
	if current < 0 {
		current = 0
	}
	if current > total {
		current = total
	}
	percent := float64(current) / float64(total)
	filled := max(0, min(int(percent*float64(width)), width))
	bar := StyleSymbols["bullet"]
	bar += strings.Repeat(StyleSymbols["hline"], filled)
	if filled < width {
		bar += strings.Repeat(" ", width-filled)
	}
	bar += StyleSymbols["bullet"]
	return debugStyle.Render(fmt.Sprintf("%s %.1f%%", bar, percent*100))
}

// RenderSample formats one progress sample as a status line. Unknown totals
// get byte-count-only output with no percentage or ETA, and an undefined ETA
// renders differently from a zero-second one.
func RenderSample(name string, s transfer.ProgressSample) string {
	if len(name) > 25 {
		name = "..." + name[len(name)-22:]
	}
	if !s.HasPercent {
		// Total unknown: byte count and speed only, no bar or ETA.
		return fmt.Sprintf("%s: %s %s", name,
			utils.FormatBytes(uint64(s.Bytes)),
			debugStyle.Render(utils.FormatSpeed(s.Speed)))
	}
	eta := "calculating..."
	if s.HasETA {
		eta = utils.FormatETA(s.ETA)
	}
	return fmt.Sprintf("%s: %s %s/%s %s ETA: %s", name,
		ProgressBar(s.Bytes, s.Total, barWidth()),
		utils.FormatBytes(uint64(s.Bytes)),
		utils.FormatBytes(uint64(s.Total)),
		debugStyle.Render(utils.FormatSpeed(s.Speed)),
		eta)
}

// Live consumes a session's sample stream and repaints one status line until
// the stream closes. Reading never blocks the worker; the feed drops
// intermediate samples on its own.
func Live(name string, samples <-chan transfer.ProgressSample, paused <-chan bool) {
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	var latest transfer.ProgressSample
	var have, drawn, isPaused bool
	redraw := func() {
		if drawn {
			fmt.Print("\033[1A\033[J")
		}
		line := RenderSample(name, latest)
		if isPaused {
			line += " " + warningStyle.Render("[paused]")
		}
		fmt.Println(line)
		drawn = true
	}

	for {
		select {
		case s, ok := <-samples:
			if !ok {
				if have {
					redraw()
				}
				return
			}
			latest = s
			have = true
		case p := <-paused:
			isPaused = p
			if have {
				redraw()
			}
		case <-ticker.C:
			if have {
				redraw()
			}
		}
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// barWidth leaves room for the name, byte counts, speed and ETA so the line
// never wraps and breaks the single-line repaint.
func barWidth() int {
	width := terminalWidth() - 60
	return max(15, min(width, 40))
}
