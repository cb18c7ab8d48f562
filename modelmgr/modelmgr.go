// Package modelmgr resolves the local path of the translator's model file
// and downloads it from a configured URL, reporting whole-percent progress.
package modelmgr

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

// Status reports whether the model file exists, and its resolved absolute
// path either way.
type Status struct {
	Exists bool
	Path   string
}

// Progress is emitted at each whole-percent boundary crossed during a
// download. No progress is emitted when the server doesn't report
// Content-Length.
type Progress struct {
	CurrentBytes int64
	TotalBytes   int64
	Percent      uint8
}

// Manager resolves and downloads the model file under appDataDir/models.
type Manager struct {
	appDataDir string
	modelURL   string
	filename   string
	client     *retryablehttp.Client
}

func New(appDataDir, modelURL, filename string) *Manager {
	client := retryablehttp.NewClient()
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.RetryMax = 3
	client.Logger = nil

	return &Manager{
		appDataDir: appDataDir,
		modelURL:   modelURL,
		filename:   filename,
		client:     client,
	}
}

// Path returns the absolute path the model file would live at, regardless
// of whether it currently exists.
func (m *Manager) Path() string {
	return filepath.Join(m.appDataDir, "models", m.filename)
}

// CheckStatus reports whether the model file is already present.
func (m *Manager) CheckStatus() Status {
	path := m.Path()
	_, err := os.Stat(path)
	return Status{Exists: err == nil, Path: path}
}

// ErrAlreadyPresent is returned by Download when the model file already
// exists and force is false.
var ErrAlreadyPresent = errors.New("model file already present; pass force to re-download")

// Download streams the configured model URL to disk, invoking onProgress at
// each whole-percent boundary crossed (only when the server reports
// Content-Length; otherwise onProgress is never called). It refuses to
// overwrite an existing file unless force is true. A failure mid-download
// leaves the partial file in place; there is no resume support, matching
// the original tool's behavior — a retry starts from scratch.
func (m *Manager) Download(ctx context.Context, force bool, onProgress func(Progress)) error {
	status := m.CheckStatus()
	if status.Exists && !force {
		return ErrAlreadyPresent
	}

	if err := os.MkdirAll(filepath.Dir(status.Path), 0o755); err != nil {
		return errors.Wrap(err, "create models directory")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, m.modelURL, nil)
	if err != nil {
		return errors.Wrap(err, "build model download request")
	}
	req.Header.Set("User-Agent", "resonance-relay-sniffer/1.0")

	resp, err := m.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request model download")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("model download failed: status %d", resp.StatusCode)
	}

	out, err := os.Create(status.Path)
	if err != nil {
		return errors.Wrap(err, "create model file")
	}
	defer out.Close()

	total := resp.ContentLength
	var downloaded int64
	var lastPercent uint8

	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return errors.Wrap(writeErr, "write model file")
			}
			downloaded += int64(n)

			if total > 0 && onProgress != nil {
				percent := uint8(downloaded * 100 / total)
				if percent > lastPercent {
					lastPercent = percent
					onProgress(Progress{CurrentBytes: downloaded, TotalBytes: total, Percent: percent})
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return errors.Wrap(readErr, "read model download stream")
		}
	}

	return nil
}
