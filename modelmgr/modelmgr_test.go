package modelmgr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_PathAndCheckStatus(t *testing.T) {
	dir := t.TempDir()
	m := New(dir, "http://example.invalid/model.gguf", "model.gguf")

	want := filepath.Join(dir, "models", "model.gguf")
	assert.Equal(t, want, m.Path())

	status := m.CheckStatus()
	assert.False(t, status.Exists)
	assert.Equal(t, want, status.Path)
}

func TestManager_DownloadWritesFileAndReportsProgress(t *testing.T) {
	body := strings.Repeat("x", 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	m := New(dir, srv.URL, "model.gguf")

	var progresses []Progress
	err := m.Download(context.Background(), false, func(p Progress) {
		progresses = append(progresses, p)
	})
	require.NoError(t, err)

	data, err := os.ReadFile(m.Path())
	require.NoError(t, err)
	assert.Equal(t, body, string(data))

	require.NotEmpty(t, progresses)
	last := progresses[len(progresses)-1]
	assert.Equal(t, uint8(100), last.Percent)

	for i := 1; i < len(progresses); i++ {
		assert.Greater(t, progresses[i].Percent, progresses[i-1].Percent)
	}
}

func TestManager_DownloadRefusesOverwriteWithoutForce(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "models"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", "model.gguf"), []byte("existing"), 0o644))

	m := New(dir, "http://example.invalid/model.gguf", "model.gguf")
	err := m.Download(context.Background(), false, nil)
	assert.ErrorIs(t, err, ErrAlreadyPresent)
}

func TestManager_DownloadForceOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "models"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", "model.gguf"), []byte("stale"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	m := New(dir, srv.URL, "model.gguf")
	err := m.Download(context.Background(), true, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(m.Path())
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestManager_DownloadSurfacesHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	m := New(dir, srv.URL, "model.gguf")
	err := m.Download(context.Background(), false, nil)
	assert.Error(t, err)
}
