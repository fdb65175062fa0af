package bus

import (
	"context"
	"testing"
	"time"
)

func TestFrameBus_InboundRoundTrip(t *testing.T) {
	fb := NewFrameBus()
	defer fb.Close()
	ctx := context.Background()

	if err := fb.PublishInbound(ctx, "frame-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	frame, ok := fb.ConsumeInbound(ctx)
	if !ok || frame != "frame-1" {
		t.Errorf("got %v ok=%v", frame, ok)
	}
}

func TestFrameBus_OutboundRoundTrip(t *testing.T) {
	fb := NewFrameBus()
	defer fb.Close()
	ctx := context.Background()

	if err := fb.PublishOutbound(ctx, "frame-2"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	frame, ok := fb.SubscribeOutbound(ctx)
	if !ok || frame != "frame-2" {
		t.Errorf("got %v ok=%v", frame, ok)
	}
}

func TestFrameBus_PublishAfterClose(t *testing.T) {
	fb := NewFrameBus()
	fb.Close()

	if err := fb.PublishInbound(context.Background(), "x"); err != ErrBusClosed {
		t.Errorf("inbound: got %v, want ErrBusClosed", err)
	}
	if err := fb.PublishOutbound(context.Background(), "x"); err != ErrBusClosed {
		t.Errorf("outbound: got %v, want ErrBusClosed", err)
	}
}

func TestFrameBus_CloseUnblocksConsumers(t *testing.T) {
	fb := NewFrameBus()
	done := make(chan struct{})
	go func() {
		_, ok := fb.ConsumeInbound(context.Background())
		if ok {
			t.Error("consume after close reported ok")
		}
		close(done)
	}()

	fb.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer not unblocked by close")
	}
}

func TestFrameBus_ConsumeRespectsContext(t *testing.T) {
	fb := NewFrameBus()
	defer fb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, ok := fb.ConsumeInbound(ctx); ok {
		t.Error("expected context timeout")
	}
}

func TestFrameBus_CloseIdempotent(t *testing.T) {
	fb := NewFrameBus()
	fb.Close()
	fb.Close()
}
