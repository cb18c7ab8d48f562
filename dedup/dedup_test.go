package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/resonance-relay/sniffer/protocol"
)

func TestGate_ChatAlwaysPasses(t *testing.T) {
	g := NewGate(nil)
	ev := protocol.Event{Chat: &protocol.ChatEvent{Message: "hi"}}

	assert.True(t, g.Pass(ev))
	assert.True(t, g.Pass(ev))
}

func TestGate_RecruitFirstSightingPasses(t *testing.T) {
	g := NewGate(nil)
	ev := protocol.Event{Recruit: &protocol.RecruitEvent{RecruitID: 1, Description: "need dps"}}

	assert.True(t, g.Pass(ev))
}

func TestGate_RecruitUnchangedContentSuppressed(t *testing.T) {
	g := NewGate(nil)
	ev := protocol.Event{Recruit: &protocol.RecruitEvent{RecruitID: 1, Description: "need dps"}}

	assert.True(t, g.Pass(ev))
	assert.False(t, g.Pass(ev))
}

func TestGate_RecruitChangedContentPasses(t *testing.T) {
	g := NewGate(nil)
	first := protocol.Event{Recruit: &protocol.RecruitEvent{RecruitID: 1, Description: "need dps"}}
	changed := protocol.Event{Recruit: &protocol.RecruitEvent{RecruitID: 1, Description: "need healer"}}

	assert.True(t, g.Pass(first))
	assert.True(t, g.Pass(changed))
	assert.False(t, g.Pass(changed))
}

func TestGate_AssetKeyedSeparatelyFromRecruit(t *testing.T) {
	g := NewGate(nil)
	recruit := protocol.Event{Recruit: &protocol.RecruitEvent{RecruitID: 1}}
	asset := protocol.Event{Asset: &protocol.AssetEvent{UID: 1}}

	assert.True(t, g.Pass(recruit))
	assert.True(t, g.Pass(asset))
}

func TestGate_SweepEvictsExpiredEntryAndNotifies(t *testing.T) {
	var evicted []string
	g := newGate(10*time.Millisecond, func(key string) {
		evicted = append(evicted, key)
	})
	ev := protocol.Event{Recruit: &protocol.RecruitEvent{RecruitID: 1, Description: "need dps"}}
	assert.True(t, g.Pass(ev))

	time.Sleep(20 * time.Millisecond)
	g.Sweep()

	assert.Equal(t, []string{"recruit_1"}, evicted)
	assert.True(t, g.Pass(ev), "a swept entry must be treated as a fresh sighting")
}

func TestGate_SweepLeavesFreshEntriesAlone(t *testing.T) {
	var evicted []string
	g := newGate(time.Hour, func(key string) {
		evicted = append(evicted, key)
	})
	ev := protocol.Event{Recruit: &protocol.RecruitEvent{RecruitID: 1, Description: "need dps"}}
	assert.True(t, g.Pass(ev))

	g.Sweep()

	assert.Empty(t, evicted)
	assert.False(t, g.Pass(ev))
}
