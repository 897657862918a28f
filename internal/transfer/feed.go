package transfer

// sampleFeed delivers progress samples to the caller with latest-value
// semantics: publishing never blocks the worker, and a slow reader only loses
// intermediate samples, never the newest one.
type sampleFeed struct {
	ch chan ProgressSample
}

func newSampleFeed() *sampleFeed {
	return &sampleFeed{ch: make(chan ProgressSample, 1)}
}

func (f *sampleFeed) publish(s ProgressSample) {
	select {
	case f.ch <- s:
	default:
		// Slot occupied, evict the stale sample and retry once. If the
		// reader raced us and took it, the slot is free again.
		select {
		case <-f.ch:
		default:
		}
		select {
		case f.ch <- s:
		default:
		}
	}
}

func (f *sampleFeed) close() {
	close(f.ch)
}
