package transfer

import (
	"io"
	"os"
	"time"

	"github.com/mirofic/fetchr/internal/utils"
)

// copyStream is the chunked transfer loop. It reads forward-only from src and
// writes whole chunks to dst, honoring pause and cancel strictly between
// chunks: once a chunk is read it is always written, so the destination
// length stays a whole number of chunks and a later resume never observes a
// torn write.
//
// It returns the cumulative byte count (including the resume offset),
// whether the loop stopped because of cancellation, and any terminal error.
func (s *Session) copyStream(dst *os.File, src io.Reader, offset int64) (int64, bool, error) {
	written := offset
	if offset > 0 {
		s.feed.publish(s.tracker.Observe(written, time.Now()))
	}
	buf := make([]byte, utils.DefaultBufferSize)
	for {
		// Gate parks on the pause condition and reports cancellation;
		// both only matter here, at the chunk boundary.
		if !s.ctrl.Gate() {
			return written, true, nil
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return written, false, newError(KindIOFailure, "error writing to output file: %v", writeErr)
			}
			written += int64(n)
			if total := s.tracker.Total(); total > 0 && written > total {
				return written, false, newError(KindProtocol, "server sent %d bytes, more than the declared %d", written, total)
			}
			s.feed.publish(s.tracker.Observe(written, time.Now()))
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, false, nil
			}
			return written, false, newError(KindTransportFailure, "error reading response body: %v", readErr)
		}
	}
}
