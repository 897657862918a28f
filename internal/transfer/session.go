package transfer

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mirofic/fetchr/internal/fetch"
)

// MediaEvent is one byte-count report from the media source. Granularity is
// whatever the external tool emits; pause and cancel are honored per event.
type MediaEvent struct {
	Finished bool
	Bytes    int64
	Total    int64 // may be an estimate, 0 = unknown
}

// MediaFetcher is the media source contract consumed by media-mode sessions.
type MediaFetcher interface {
	Fetch(ctx context.Context, url, format, outputPath string, onEvent func(MediaEvent)) error
}

// Only one session may own a destination path at a time. This is an in-core
// usage check, not an OS-level lock.
var activeDests = struct {
	mu    sync.Mutex
	paths map[string]struct{}
}{paths: make(map[string]struct{})}

func claimDestination(path string) bool {
	activeDests.mu.Lock()
	defer activeDests.mu.Unlock()
	if _, busy := activeDests.paths[path]; busy {
		return false
	}
	activeDests.paths[path] = struct{}{}
	return true
}

func releaseDestination(path string) {
	activeDests.mu.Lock()
	defer activeDests.mu.Unlock()
	delete(activeDests.paths, path)
}

// Session binds one Request to one transfer loop run. The caller drives it
// through Pause/Resume/Cancel and reads the sample feed; the worker owns the
// destination file and all state transitions.
type Session struct {
	ID  string
	req Request

	ctrl    *Controller
	tracker *Tracker
	feed    *sampleFeed
	opener  fetch.Opener
	media   MediaFetcher

	mu      sync.Mutex
	state   State
	outcome Outcome
	done    chan struct{}
}

func NewSession(req Request, opener fetch.Opener, media MediaFetcher) *Session {
	return &Session{
		ID:      uuid.New().String(),
		req:     req,
		ctrl:    NewController(),
		tracker: NewTracker(req.DeclaredSize),
		feed:    newSampleFeed(),
		opener:  opener,
		media:   media,
		state:   StateIdle,
		done:    make(chan struct{}),
	}
}

// Start claims the destination and launches the worker. A destination already
// owned by a running session fails immediately with a conflict.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return newError(KindConflict, "session already started")
	}
	if !claimDestination(s.req.OutputPath) {
		err := newError(KindConflict, "%s: %v", s.req.OutputPath, ErrDestinationBusy)
		s.state = StateFailed
		s.outcome = Outcome{State: StateFailed, Path: s.req.OutputPath, Err: err}
		close(s.done)
		s.feed.close()
		s.mu.Unlock()
		return err
	}
	s.state = StateRunning
	s.mu.Unlock()

	log.Debug().Str("op", "transfer/session").Str("id", s.ID).Str("mode", s.req.Mode.String()).Str("url", s.req.URL).Msg("Session started")
	go s.run()
	return nil
}

func (s *Session) Pause() {
	s.mu.Lock()
	if s.state == StateRunning {
		s.state = StatePaused
		s.ctrl.Pause()
	}
	s.mu.Unlock()
}

func (s *Session) Resume() {
	s.mu.Lock()
	if s.state == StatePaused {
		s.state = StateRunning
		s.ctrl.Resume()
	}
	s.mu.Unlock()
}

func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state == StateRunning || s.state == StatePaused {
		s.state = StateCancelling
		s.ctrl.Cancel()
	}
	s.mu.Unlock()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Samples yields progress with latest-value semantics; intermediate samples
// may be dropped under load but cumulative bytes never go backwards. The
// channel closes when the session reaches a terminal state.
func (s *Session) Samples() <-chan ProgressSample {
	return s.feed.ch
}

// Wait blocks until the session is terminal and returns the single outcome.
func (s *Session) Wait() Outcome {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

func (s *Session) finish(state State, bytes int64, err error) {
	releaseDestination(s.req.OutputPath)
	s.mu.Lock()
	s.state = state
	s.outcome = Outcome{State: state, Path: s.req.OutputPath, Bytes: bytes, Err: err}
	s.mu.Unlock()
	if state == StateCompleted {
		s.feed.publish(s.tracker.Final(time.Now()))
	}
	s.feed.close()
	close(s.done)
	switch state {
	case StateCompleted:
		log.Debug().Str("op", "transfer/session").Str("id", s.ID).Int64("bytes", bytes).Msg("Session completed")
	case StateCancelled:
		log.Debug().Str("op", "transfer/session").Str("id", s.ID).Int64("bytes", bytes).Msg("Session cancelled")
	default:
		log.Debug().Str("op", "transfer/session").Str("id", s.ID).Err(err).Msg("Session failed")
	}
}

func (s *Session) run() {
	if s.req.Mode == ModeMediaStream {
		s.runMedia()
		return
	}
	s.runPlain()
}

func (s *Session) runPlain() {
	dest := s.req.OutputPath

	decision, err := Negotiate(dest, s.req.Resume, s.req.DeclaredSize)
	if err == ErrAlreadyComplete {
		// Immediate success without opening any stream.
		s.finish(StateCompleted, destinationSize(dest), nil)
		return
	}

	stream, err := s.opener.Open(context.Background(), s.req.URL, decision.RangeHeader)
	if err != nil {
		s.finish(StateFailed, 0, newError(KindTransportFailure, "%v", err))
		return
	}
	defer stream.Close()

	// A range was requested but the server answered with full content:
	// renegotiate to a forced restart before any fresh byte is written, so
	// stale and fresh data never interleave.
	if decision.Offset > 0 && stream.Status != fetch.StatusPartial {
		log.Warn().Str("op", "transfer/session").Str("id", s.ID).Msg("Server ignored range request, restarting from scratch")
		decision = Restart()
	}

	if total := declaredTotal(s.req.DeclaredSize, decision.Offset, stream); total != s.tracker.Total() {
		s.tracker.SetTotal(total)
	}

	dst, err := decision.OpenDestination(dest)
	if err != nil {
		s.finish(StateFailed, 0, newError(KindIOFailure, "error opening output file: %v", err))
		return
	}

	written, cancelled, copyErr := s.copyStream(dst, stream.Body, decision.Offset)
	closeErr := dst.Close()

	switch {
	case cancelled:
		// Partial bytes stay on disk for a future resume.
		s.finish(StateCancelled, written, nil)
	case copyErr != nil:
		s.finish(StateFailed, written, copyErr)
	case closeErr != nil:
		s.finish(StateFailed, written, newError(KindIOFailure, "error closing output file: %v", closeErr))
	case s.tracker.Total() > 0 && written != s.tracker.Total():
		s.finish(StateFailed, written, newError(KindProtocol, "stream ended at %d bytes, expected %d", written, s.tracker.Total()))
	default:
		s.finish(StateCompleted, written, nil)
	}
}

// declaredTotal reconciles the probed size with the response headers. For a
// partial response the declared length covers only the remainder.
func declaredTotal(probed, offset int64, stream *fetch.Stream) int64 {
	if probed > 0 {
		return probed
	}
	if stream.DeclaredLength <= 0 {
		return 0
	}
	if stream.Status == fetch.StatusPartial {
		return offset + stream.DeclaredLength
	}
	return stream.DeclaredLength
}

func (s *Session) runMedia() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.ctrl.Done():
			cancel()
		case <-s.done:
		}
	}()

	// yt-dlp style sources download video and audio as separate segments
	// whose byte counters restart; base carries finished segments forward so
	// the sample stream stays monotonic.
	var base, last, final int64
	onEvent := func(ev MediaEvent) {
		if !s.ctrl.Gate() {
			return
		}
		if ev.Bytes < last {
			base += last
			s.tracker.SetTotal(0)
		}
		last = ev.Bytes
		cumulative := base + ev.Bytes
		if ev.Total > 0 && base == 0 {
			s.tracker.SetTotal(ev.Total)
		}
		if ev.Finished {
			final = cumulative
		}
		s.feed.publish(s.tracker.Observe(cumulative, time.Now()))
	}

	err := s.media.Fetch(ctx, s.req.URL, s.req.Quality, s.req.OutputPath, onEvent)
	if s.ctrl.Cancelled() {
		s.finish(StateCancelled, base+last, nil)
		return
	}
	if err != nil {
		s.finish(StateFailed, base+last, newError(KindTransportFailure, "media download failed: %v", err))
		return
	}
	if final == 0 {
		final = base + last
	}
	if final > 0 {
		s.tracker.SetTotal(final)
	}
	s.finish(StateCompleted, final, nil)
}

// Stat of the destination after the fact, for already-complete outcomes where
// the probed size was the only signal.
func destinationSize(path string) int64 {
	if info, err := os.Stat(path); err == nil {
		return info.Size()
	}
	return 0
}
