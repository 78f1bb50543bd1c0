package bus

import (
	"context"
	"testing"
	"time"
)

func TestPublishConsume(t *testing.T) {
	b := NewMessageBus()
	b.PublishInbound(&InboundMessage{Channel: "telegram", ChatID: "c1", Text: "hi"})

	if b.InboundSize() != 1 {
		t.Fatalf("expected 1 queued message, got %d", b.InboundSize())
	}

	msg, err := b.ConsumeInbound(context.Background())
	if err != nil {
		t.Fatalf("ConsumeInbound: %v", err)
	}
	if msg.ChatID != "c1" || msg.Text != "hi" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Timestamp.IsZero() {
		t.Fatal("publish should stamp a timestamp")
	}
}

func TestConsumeRespectsContext(t *testing.T) {
	b := NewMessageBus()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := b.ConsumeInbound(ctx); err == nil {
		t.Fatal("expected context error on empty bus")
	}
}

func TestTimestampPreserved(t *testing.T) {
	b := NewMessageBus()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b.PublishInbound(&InboundMessage{Timestamp: ts})

	msg, _ := b.ConsumeInbound(context.Background())
	if !msg.Timestamp.Equal(ts) {
		t.Fatalf("existing timestamp overwritten: %v", msg.Timestamp)
	}
}
