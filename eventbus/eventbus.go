// Package eventbus fans decoded protocol events out to the UI sink (best
// effort, never blocks the capture pipeline) and the translator sink (a
// bounded queue, dropped when full or absent).
package eventbus

import "github.com/resonance-relay/sniffer/protocol"

const translatorQueueCapacity = 256

// Bus fans out protocol.Event values to a UI channel and an optional
// translator job channel.
type Bus struct {
	ui         chan protocol.Event
	translator chan protocol.Event

	translatorEnabled bool
}

// NewBus creates a bus. uiCapacity bounds the UI channel (best-effort,
// non-blocking sends: an event published while the channel is full is
// dropped rather than stalling capture). When translatorEnabled is false, Chat events are
// delivered only to the UI sink.
func NewBus(uiCapacity int, translatorEnabled bool) *Bus {
	return &Bus{
		ui:                make(chan protocol.Event, uiCapacity),
		translator:        make(chan protocol.Event, translatorQueueCapacity),
		translatorEnabled: translatorEnabled,
	}
}

func (b *Bus) UI() <-chan protocol.Event {
	return b.ui
}

func (b *Bus) Translator() <-chan protocol.Event {
	return b.translator
}

// Publish delivers ev to the UI sink, best-effort, and to the translator
// sink when it carries a Chat payload and translation is enabled. Neither
// send ever blocks the caller.
func (b *Bus) Publish(ev protocol.Event) {
	select {
	case b.ui <- ev:
	default:
	}

	if ev.Chat == nil || !b.translatorEnabled {
		return
	}

	select {
	case b.translator <- ev:
	default:
	}
}

// PublishTranslated re-delivers an event to the UI sink after the
// translator worker has filled in its Translated field.
func (b *Bus) PublishTranslated(ev protocol.Event) {
	select {
	case b.ui <- ev:
	default:
	}
}
