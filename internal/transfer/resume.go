package transfer

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// WriteMode says how the destination file must be opened.
type WriteMode int

const (
	Truncate WriteMode = iota
	Append
)

// Decision is the resume negotiation result, computed once before the first
// chunk is read and re-evaluated at most once if the server ignores the
// range request.
type Decision struct {
	Offset      int64
	Mode        WriteMode
	RangeHeader string // empty when no range is requested
}

// ErrAlreadyComplete short-circuits a session whose destination already holds
// the full remote content. It is an immediate-success outcome, not a failure.
var ErrAlreadyComplete = errors.New("file is already fully downloaded")

// Negotiate decides the initial write offset from the local file and the
// probed remote size. remoteSize <= 0 means the total is unknown; resume is
// still attempted from whatever is on disk.
func Negotiate(dest string, resumeAllowed bool, remoteSize int64) (Decision, error) {
	if !resumeAllowed {
		return Decision{Mode: Truncate}, nil
	}
	info, err := os.Stat(dest)
	if err != nil || info.Size() == 0 {
		return Decision{Mode: Truncate}, nil
	}
	localSize := info.Size()
	if remoteSize > 0 && localSize >= remoteSize {
		return Decision{}, ErrAlreadyComplete
	}
	log.Debug().Str("op", "transfer/resume").Int64("offset", localSize).Msgf("Resuming %s from partial file", dest)
	return Decision{
		Offset:      localSize,
		Mode:        Append,
		RangeHeader: fmt.Sprintf("bytes=%d-", localSize),
	}, nil
}

// Restart is the forced fallback when a range request was issued but the
// server answered with full content. Prior partial bytes are superseded; the
// destination must be reopened in truncate mode before any fresh byte lands.
func Restart() Decision {
	return Decision{Mode: Truncate}
}

// OpenDestination opens dest per the decision. Append requires a prior
// partial file, so offset > 0 always pairs with Append and offset == 0 with
// Truncate.
func (d Decision) OpenDestination(dest string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if d.Mode == Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(dest, flags, 0644)
}
