package transfer

import "time"

// ProgressSample is one read-only snapshot of transfer progress. Percent and
// ETA are only meaningful when their Has flag is set; a total of 0 means the
// server never declared a length.
type ProgressSample struct {
	Bytes      int64
	Total      int64
	Speed      float64 // bytes/sec over the last inter-observation interval
	Percent    float64
	HasPercent bool
	ETA        time.Duration
	HasETA     bool
	Time       time.Time
}

// Tracker turns cumulative byte counts into progress samples. One tracker
// belongs to exactly one session and is discarded with it; a retry of the
// same destination gets a fresh one.
type Tracker struct {
	total     int64
	started   bool
	prevBytes int64
	prevTime  time.Time
	speed     float64
}

func NewTracker(total int64) *Tracker {
	if total < 0 {
		total = 0
	}
	return &Tracker{total: total}
}

func (t *Tracker) Total() int64 {
	return t.total
}

// SetTotal adjusts the declared total. The media source reports estimated
// totals that firm up (or vanish) as its segments progress.
func (t *Tracker) SetTotal(total int64) {
	if total < 0 {
		total = 0
	}
	t.total = total
}

// Observe records a new cumulative byte count and returns the derived sample.
// Speed covers the interval since the previous observation, not the session
// start. A zero or negative interval keeps the previous speed, which avoids
// divide-by-zero spikes on duplicate ticks or a non-monotonic clock.
func (t *Tracker) Observe(cumulative int64, now time.Time) ProgressSample {
	if t.started {
		interval := now.Sub(t.prevTime).Seconds()
		if interval > 0 {
			t.speed = float64(cumulative-t.prevBytes) / interval
			t.prevTime = now
			t.prevBytes = cumulative
		}
	} else {
		t.started = true
		t.prevTime = now
		t.prevBytes = cumulative
	}

	sample := ProgressSample{
		Bytes: cumulative,
		Total: t.total,
		Speed: t.speed,
		Time:  now,
	}
	if t.total > 0 {
		sample.Percent = float64(cumulative) / float64(t.total) * 100
		sample.HasPercent = true
		if t.speed > 0 {
			remaining := float64(t.total-cumulative) / t.speed
			sample.ETA = time.Duration(remaining * float64(time.Second))
			sample.HasETA = true
		}
	}
	return sample
}

// Final normalizes the closing sample of a completed transfer so the caller
// always observes bytes == total and 100%.
func (t *Tracker) Final(now time.Time) ProgressSample {
	bytes := t.prevBytes
	if t.total > 0 {
		bytes = t.total
	}
	sample := ProgressSample{Bytes: bytes, Total: t.total, Speed: t.speed, Time: now}
	if t.total > 0 {
		sample.Percent = 100
		sample.HasPercent = true
		sample.ETA = 0
		sample.HasETA = true
	}
	return sample
}
