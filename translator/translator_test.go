package translator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonance-relay/sniffer/archive"
	"github.com/resonance-relay/sniffer/eventbus"
	"github.com/resonance-relay/sniffer/logging"
	"github.com/resonance-relay/sniffer/protocol"
)

func TestCollectBatch_GrabsAvailableJobsUpToFive(t *testing.T) {
	bus := eventbus.NewBus(8, true)
	w := &Worker{jobs: bus.Translator()}

	for i := 0; i < 10; i++ {
		bus.Publish(protocol.Event{Chat: &protocol.ChatEvent{PID: uint64(i), Message: "hi"}})
	}

	first := <-w.jobs
	batch := w.collectBatch(first)

	assert.Len(t, batch, maxBatchSize)
}

func TestCollectBatch_StopsAtWindowTimeoutWithOnlyOneJob(t *testing.T) {
	bus := eventbus.NewBus(8, true)
	w := &Worker{jobs: bus.Translator()}

	bus.Publish(protocol.Event{Chat: &protocol.ChatEvent{PID: 1, Message: "hi"}})
	first := <-w.jobs

	start := time.Now()
	batch := w.collectBatch(first)
	elapsed := time.Since(start)

	assert.Len(t, batch, 1)
	assert.GreaterOrEqual(t, elapsed, microBatchWindow-50*time.Millisecond)
}

type fakeDoer struct {
	resp *http.Response
	err  error
}

func (f fakeDoer) Do(*retryablehttp.Request) (*http.Response, error) {
	return f.resp, f.err
}

func TestProcessOne_ConnectionErrorSentinelWhenDoFails(t *testing.T) {
	bus := eventbus.NewBus(8, true)
	w := &Worker{bus: bus, log: logging.New(nopWriter{})}

	ev := protocol.Event{Chat: &protocol.ChatEvent{PID: 7, Message: "こんにちは", Nickname: "たろう"}}
	w.processOne(context.Background(), fakeDoer{err: fmt.Errorf("connection refused")}, ev)

	out := <-bus.UI()
	require.NotNil(t, out.Chat)
	assert.Equal(t, connectionErrorSentinel, out.Chat.Translated)
}

func TestProcessOne_IgnoresNonChatEvent(t *testing.T) {
	bus := eventbus.NewBus(8, true)
	w := &Worker{bus: bus, log: logging.New(nopWriter{})}

	w.processOne(context.Background(), fakeDoer{err: fmt.Errorf("unused")}, protocol.Event{
		Recruit: &protocol.RecruitEvent{RecruitID: 1},
	})

	select {
	case <-bus.UI():
		t.Fatal("a non-chat event must not be republished by processOne")
	default:
	}
}

func TestProcessOne_ArchivesAndRestoresShieldedTerms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"[P0]\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	oldBase := baseURL
	baseURL = server.URL
	defer func() { baseURL = oldBase }()

	tmp := t.TempDir()
	writer, err := archive.NewWriter(tmp, logging.New(nopWriter{}))
	require.NoError(t, err)
	defer writer.Close()

	bus := eventbus.NewBus(8, true)
	w := &Worker{
		cfg:     Config{CustomDict: map[string]string{"タンク": "탱커"}},
		bus:     bus,
		archive: writer,
		log:     logging.New(nopWriter{}),
	}

	client := newHTTPClient(w.log)
	ev := protocol.Event{Chat: &protocol.ChatEvent{PID: 3, Message: "タンク募集中"}}
	w.processOne(context.Background(), client, ev)

	out := <-bus.UI()
	require.NotNil(t, out.Chat)
	assert.Equal(t, "탱커", out.Chat.Translated)
}

func TestServerGuard_CloseKillsRunningProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("sleep is not available on windows")
	}

	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())

	guard := &serverGuard{cmd: cmd}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	guard.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("process was not killed by Close")
	}
}

func TestServerGuard_CloseIsSafeOnZeroValue(t *testing.T) {
	var guard *serverGuard
	guard.Close()

	guard = &serverGuard{}
	guard.Close()
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
