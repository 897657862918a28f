package transfer

import "sync"

// Controller carries the cooperative pause/cancel signals between the driving
// caller and the transfer worker. Pause is level-triggered and may be set and
// cleared freely; cancel latches once and never clears. The worker samples
// both only at chunk boundaries.
type Controller struct {
	mu        sync.Mutex
	cond      *sync.Cond
	paused    bool
	cancelled bool
	done      chan struct{}
}

func NewController() *Controller {
	c := &Controller{done: make(chan struct{})}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *Controller) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

func (c *Controller) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
	c.cond.Broadcast()
}

func (c *Controller) Cancel() {
	c.mu.Lock()
	if !c.cancelled {
		c.cancelled = true
		close(c.done)
	}
	c.mu.Unlock()
	c.cond.Broadcast()
}

func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Controller) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Done is closed once Cancel has been called. It lets collaborators that
// block on I/O (the media subprocess) observe cancellation without polling.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Gate blocks while paused and returns false once cancelled. The worker calls
// it between chunks; the wait parks on a condition variable, so a paused
// transfer costs no CPU.
func (c *Controller) Gate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.paused && !c.cancelled {
		c.cond.Wait()
	}
	return !c.cancelled
}
