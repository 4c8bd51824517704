package observability

import (
	"context"
	"sync"
)

// ChannelObserver forwards events to a buffered channel for a UI to
// consume. Sends never block; events are dropped when the buffer is full.
type ChannelObserver struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// NewChannelObserver creates an observer with the given buffer size
// (64 when size < 1).
func NewChannelObserver(size int) *ChannelObserver {
	if size < 1 {
		size = 64
	}
	return &ChannelObserver{ch: make(chan Event, size)}
}

func (c *ChannelObserver) OnEvent(ctx context.Context, event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- event:
	default:
	}
}

// Events returns the receive side.
func (c *ChannelObserver) Events() <-chan Event {
	return c.ch
}

// Close closes the channel. Later events are discarded.
func (c *ChannelObserver) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
