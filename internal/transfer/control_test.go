package transfer

import (
	"testing"
	"time"
)

func TestControllerCancelLatch(t *testing.T) {
	c := NewController()
	if c.Cancelled() {
		t.Fatal("fresh controller should not be cancelled")
	}
	c.Cancel()
	c.Cancel() // idempotent
	if !c.Cancelled() {
		t.Error("cancel should latch")
	}
	select {
	case <-c.Done():
	default:
		t.Error("Done should be closed after cancel")
	}
	if c.Gate() {
		t.Error("Gate should report cancellation")
	}
}

func TestControllerPauseBlocksGate(t *testing.T) {
	c := NewController()
	c.Pause()

	passed := make(chan bool, 1)
	go func() {
		passed <- c.Gate()
	}()

	select {
	case <-passed:
		t.Fatal("Gate should block while paused")
	case <-time.After(50 * time.Millisecond):
	}

	c.Resume()
	select {
	case ok := <-passed:
		if !ok {
			t.Error("Gate should pass after resume")
		}
	case <-time.After(time.Second):
		t.Fatal("Gate did not unblock after resume")
	}
}

func TestControllerCancelWhilePaused(t *testing.T) {
	c := NewController()
	c.Pause()

	passed := make(chan bool, 1)
	go func() {
		passed <- c.Gate()
	}()

	time.Sleep(20 * time.Millisecond)
	c.Cancel()

	select {
	case ok := <-passed:
		if ok {
			t.Error("Gate should report cancellation even while paused")
		}
	case <-time.After(time.Second):
		t.Fatal("cancel did not release a paused Gate")
	}
}

func TestSampleFeedLatestValue(t *testing.T) {
	feed := newSampleFeed()

	// Publishing with no reader never blocks; the newest sample wins.
	for i := int64(1); i <= 100; i++ {
		feed.publish(ProgressSample{Bytes: i})
	}
	sample := <-feed.ch
	if sample.Bytes != 100 {
		t.Errorf("expected the newest sample, got bytes=%d", sample.Bytes)
	}

	feed.publish(ProgressSample{Bytes: 101})
	feed.close()
	sample, ok := <-feed.ch
	if !ok || sample.Bytes != 101 {
		t.Errorf("expected buffered sample before close, got %v ok=%v", sample.Bytes, ok)
	}
	if _, ok := <-feed.ch; ok {
		t.Error("channel should be closed")
	}
}
