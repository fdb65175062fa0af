// Package bus decouples the socket reader from the sync engine. Inbound
// decoded frames flow one way, outbound client frames the other; both
// sides observe a single done channel so shutdown never strands a
// goroutine.
package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrBusClosed is returned when publishing to a closed FrameBus.
var ErrBusClosed = errors.New("frame bus closed")

// FrameBus carries decoded inbound frames from the connection to the
// engine and outbound client frames from the engine to the connection.
type FrameBus struct {
	inbound  chan any
	outbound chan any
	done     chan struct{}
	closed   atomic.Bool
}

func NewFrameBus() *FrameBus {
	return &FrameBus{
		inbound:  make(chan any, 100),
		outbound: make(chan any, 100),
		done:     make(chan struct{}),
	}
}

func (fb *FrameBus) PublishInbound(ctx context.Context, frame any) error {
	if fb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case fb.inbound <- frame:
		return nil
	case <-fb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (fb *FrameBus) ConsumeInbound(ctx context.Context) (any, bool) {
	select {
	case frame, ok := <-fb.inbound:
		return frame, ok
	case <-fb.done:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

func (fb *FrameBus) PublishOutbound(ctx context.Context, frame any) error {
	if fb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case fb.outbound <- frame:
		return nil
	case <-fb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (fb *FrameBus) SubscribeOutbound(ctx context.Context) (any, bool) {
	select {
	case frame, ok := <-fb.outbound:
		return frame, ok
	case <-fb.done:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

func (fb *FrameBus) Close() {
	if fb.closed.CompareAndSwap(false, true) {
		close(fb.done)
	}
}
