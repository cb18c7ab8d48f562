// Package archive appends one JSON object per line to the translation
// dataset log, via a single goroutine that owns the file handle so callers
// never block on disk I/O.
package archive

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/resonance-relay/sniffer/logging"
)

const datasetFilename = "dataset_raw.jsonl"

// Record is one line of the archive: the original and translated text for
// a given chat pid.
type Record struct {
	PID         uint64 `json:"pid"`
	Original    string `json:"original"`
	Translated  string `json:"translated"`
	TimestampMs uint64 `json:"timestamp_ms"`
}

// Writer serializes Record appends through a channel onto a single
// background goroutine, so the translation worker never blocks on disk I/O.
type Writer struct {
	jobs chan Record
	done chan struct{}
}

// NewWriter creates the app data directory and dataset file if absent, then
// starts the background append goroutine. Write failures are logged and do
// not block callers or further writes.
func NewWriter(appDataDir string, log logging.L) (*Writer, error) {
	if err := os.MkdirAll(appDataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create app data directory")
	}

	path := filepath.Join(appDataDir, datasetFilename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open dataset archive")
	}

	w := &Writer{
		jobs: make(chan Record, 64),
		done: make(chan struct{}),
	}

	go w.run(f, log)

	return w, nil
}

func (w *Writer) run(f *os.File, log logging.L) {
	defer f.Close()
	defer close(w.done)

	enc := json.NewEncoder(f)
	for rec := range w.jobs {
		if err := enc.Encode(rec); err != nil && log != nil {
			log.Errorf("archive write failed for pid %d: %v\n", rec.PID, err)
		}
	}
}

// Append enqueues rec for the background writer. It never blocks on disk
// I/O; if the queue is momentarily full it blocks only on the channel send,
// matching the translation worker's own sequential-write expectations.
func (w *Writer) Append(rec Record) {
	w.jobs <- rec
}

// Close stops accepting new records and waits for the background writer to
// drain and close the file.
func (w *Writer) Close() {
	close(w.jobs)
	<-w.done
}
