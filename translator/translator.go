// Package translator supervises a local inference child process and
// translates chat text through it: micro-batching jobs, shielding
// terminology before the call and restoring/correcting it after, archiving
// the pair, and re-emitting the enriched event to the UI.
package translator

import (
	"context"
	"time"

	"github.com/resonance-relay/sniffer/archive"
	"github.com/resonance-relay/sniffer/eventbus"
	"github.com/resonance-relay/sniffer/gid"
	"github.com/resonance-relay/sniffer/logging"
	"github.com/resonance-relay/sniffer/protocol"
	"github.com/resonance-relay/sniffer/textproc"
)

const (
	maxBatchSize     = 5
	microBatchWindow = time.Second
)

// Config is everything the worker needs to spawn and drive the inference
// child for one run.
type Config struct {
	BinaryPath string
	ModelPath  string
	GPULayers  int
	CustomDict map[string]string
}

// Worker is the single long-lived translation task described by the
// translator spec.
type Worker struct {
	cfg     Config
	jobs    <-chan protocol.Event
	bus     *eventbus.Bus
	archive *archive.Writer
	log     logging.L
}

func NewWorker(cfg Config, bus *eventbus.Bus, archiveWriter *archive.Writer, log logging.L) *Worker {
	return &Worker{
		cfg:     cfg,
		jobs:    bus.Translator(),
		bus:     bus,
		archive: archiveWriter,
		log:     log,
	}
}

// Run spawns the inference child, waits for it to report healthy, then
// consumes translation jobs until ctx is cancelled or the job channel
// closes. The child is always killed on return, including on a recovered
// panic.
func (w *Worker) Run(ctx context.Context) (err error) {
	guard, spawnErr := spawnServer(w.cfg.BinaryPath, w.cfg.ModelPath, w.cfg.GPULayers, w.log)
	if spawnErr != nil {
		w.log.Errorf("failed to start inference child: %v\n", spawnErr)
		return spawnErr
	}
	defer func() {
		if r := recover(); r != nil {
			guard.Close()
			panic(r)
		}
		guard.Close()
	}()

	client := newHTTPClient(w.log)

	w.log.Infoln("waiting for AI engine to warm up...")
	if healthErr := waitForHealth(ctx, client, w.log); healthErr != nil {
		w.log.Errorf("AI engine failed to initialize within 30s: %v\n", healthErr)
		return healthErr
	}
	w.log.Infoln("AI server running, ready for translation")

	for {
		select {
		case <-ctx.Done():
			return nil
		case first, ok := <-w.jobs:
			if !ok {
				return nil
			}
			batch := w.collectBatch(first)
			w.log.Debugf("batch %s: translating %d messages sequentially...\n", gid.GenerateBatchID(), len(batch))
			for _, ev := range batch {
				w.processOne(ctx, client, ev)
			}
		}
	}
}

// collectBatch blocks on first, which was already received, then grabs up
// to maxBatchSize-1 additional jobs whose combined wait does not exceed
// microBatchWindow.
func (w *Worker) collectBatch(first protocol.Event) []protocol.Event {
	batch := []protocol.Event{first}
	deadline := time.Now().Add(microBatchWindow)

	for len(batch) < maxBatchSize {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		select {
		case ev, ok := <-w.jobs:
			if !ok {
				return batch
			}
			batch = append(batch, ev)
		case <-time.After(remaining):
			return batch
		}
	}
	return batch
}

func (w *Worker) processOne(ctx context.Context, client httpDoer, ev protocol.Event) {
	if ev.Chat == nil {
		return
	}
	chat := *ev.Chat

	shield := textproc.Preprocess(chat.Message, w.cfg.CustomDict, chat.NicknameRomaji, chat.Nickname)

	raw, ok := translateText(ctx, client, shield.MaskedText)
	var final string
	if !ok {
		final = connectionErrorSentinel
	} else {
		final = textproc.Postprocess(raw, shield)
	}

	chat.Translated = final

	if w.archive != nil {
		w.archive.Append(archive.Record{
			PID:         chat.PID,
			Original:    chat.Message,
			Translated:  final,
			TimestampMs: chat.TimestampMs,
		})
	}

	w.bus.PublishTranslated(protocol.Event{Chat: &chat})
}
