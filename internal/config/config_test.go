package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CreatesDefaultFileOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	store, err := Load(dir)
	require.NoError(t, err)

	settings := store.Settings()
	assert.Equal(t, ComputeModeGPU, settings.ComputeMode)
	assert.Equal(t, TierMiddle, settings.Tier)
	assert.False(t, settings.IsDebug)

	_, err = os.Stat(filepath.Join(dir, "config.json"))
	assert.NoError(t, err)
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	raw := `{"compute_mode":"cpu","tier":"low","is_debug":true,"theme":"dark","compact_mode":true}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	store, err := Load(dir)
	require.NoError(t, err)

	settings := store.Settings()
	assert.Equal(t, ComputeModeCPU, settings.ComputeMode)
	assert.Equal(t, TierLow, settings.Tier)
	assert.True(t, settings.IsDebug)
}

func TestStore_SavePreservesUIOwnedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	raw := `{"compute_mode":"cpu","tier":"low","is_debug":false,"theme":"dark","compact_mode":true}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	store, err := Load(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(AppSettings{ComputeMode: ComputeModeGPU, Tier: TierHigh, IsDebug: true}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var roundTripped map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &roundTripped))

	assert.Equal(t, "gpu", roundTripped["compute_mode"])
	assert.Equal(t, "high", roundTripped["tier"])
	assert.Equal(t, true, roundTripped["is_debug"])
	assert.Equal(t, "dark", roundTripped["theme"])
	assert.Equal(t, true, roundTripped["compact_mode"])
}

func TestGPULayers(t *testing.T) {
	cases := []struct {
		settings AppSettings
		want     int
	}{
		{AppSettings{ComputeMode: ComputeModeCPU, Tier: TierExtreme}, 0},
		{AppSettings{ComputeMode: ComputeModeGPU, Tier: TierLow}, 10},
		{AppSettings{ComputeMode: ComputeModeGPU, Tier: TierMiddle}, 15},
		{AppSettings{ComputeMode: ComputeModeGPU, Tier: TierHigh}, 25},
		{AppSettings{ComputeMode: ComputeModeGPU, Tier: TierExtreme}, 99},
		{AppSettings{ComputeMode: ComputeModeGPU, Tier: "unknown"}, 15},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, GPULayers(c.settings))
	}
}
