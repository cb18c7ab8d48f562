package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/resonance-relay/sniffer/protocol"
)

func TestBus_PublishDeliversToUI(t *testing.T) {
	b := NewBus(4, true)
	ev := protocol.Event{Chat: &protocol.ChatEvent{Message: "hi"}}

	b.Publish(ev)

	got := <-b.UI()
	assert.Equal(t, ev, got)
}

func TestBus_PublishRoutesChatToTranslatorWhenEnabled(t *testing.T) {
	b := NewBus(4, true)
	ev := protocol.Event{Chat: &protocol.ChatEvent{Message: "hi"}}

	b.Publish(ev)
	<-b.UI()

	got := <-b.Translator()
	assert.Equal(t, ev, got)
}

func TestBus_PublishSkipsTranslatorWhenDisabled(t *testing.T) {
	b := NewBus(4, false)
	ev := protocol.Event{Chat: &protocol.ChatEvent{Message: "hi"}}

	b.Publish(ev)
	<-b.UI()

	select {
	case <-b.Translator():
		t.Fatal("expected no translator delivery when disabled")
	default:
	}
}

func TestBus_PublishNonChatSkipsTranslator(t *testing.T) {
	b := NewBus(4, true)
	ev := protocol.Event{Recruit: &protocol.RecruitEvent{RecruitID: 1}}

	b.Publish(ev)
	<-b.UI()

	select {
	case <-b.Translator():
		t.Fatal("expected no translator delivery for a non-chat event")
	default:
	}
}

func TestBus_PublishNeverBlocksWhenUIFull(t *testing.T) {
	b := NewBus(1, false)
	ev := protocol.Event{Chat: &protocol.ChatEvent{Message: "hi"}}

	b.Publish(ev) // fills the capacity-1 UI channel

	done := make(chan struct{})
	go func() {
		b.Publish(ev) // must not block even though nothing is draining the channel
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full UI channel")
	}
}
