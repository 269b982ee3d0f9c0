package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/marchkov/internal/shuttle"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "https://iaaa.pku.edu.cn", cfg.Portal.IAAABase)
	assert.Equal(t, "https://wproc.pku.edu.cn", cfg.Portal.WprocBase)
	assert.Equal(t, 10, cfg.Timing.PrevInterval)
	assert.Equal(t, 60, cfg.Timing.NextInterval)
	assert.Equal(t, "14:00", cfg.Timing.CriticalTime)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	chdirTemp(t)
	yaml := []byte(`
timing:
  prev_interval: 5
  next_interval: 20
  critical_time: "13:30"
server:
  addr: ":9090"
`)
	require.NoError(t, os.WriteFile(filepath.Join(".", "marchkov.yaml"), yaml, 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Timing.PrevInterval)
	assert.Equal(t, 20, cfg.Timing.NextInterval)
	assert.Equal(t, "13:30", cfg.Timing.CriticalTime)
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("MARCHKOV_TIMING_PREV_INTERVAL", "25")
	t.Setenv("MARCHKOV_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Timing.PrevInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBadTiming(t *testing.T) {
	chdirTemp(t)
	t.Setenv("MARCHKOV_TIMING_CRITICAL_TIME", "25:00")

	_, err := Load()
	assert.Error(t, err)
}

func TestShuttleConversion(t *testing.T) {
	tc := TimingConfig{PrevInterval: 7, NextInterval: 42, CriticalTime: "12:00"}
	s := tc.Shuttle()
	assert.Equal(t, 7, s.PrevInterval)
	assert.Equal(t, 42, s.NextInterval)
	assert.Equal(t, "12:00", s.CriticalTime)
}

func TestTempResourceMap(t *testing.T) {
	empty := TimingConfig{}
	assert.Nil(t, empty.TempResourceMap())

	tc := TimingConfig{TempResources: map[string]TempResourceConfig{
		"to_changping": {ID: 7, Name: "加班车"},
	}}
	m := tc.TempResourceMap()
	require.Len(t, m, 1)
	assert.Equal(t, shuttle.TempResource{ID: 7, Name: "加班车"}, m[shuttle.ToChangping])
}

func TestDecodeKey(t *testing.T) {
	raw := []byte("0123456789abcdef0123456789abcdef")
	enc := base64.StdEncoding.EncodeToString(raw)

	got, err := DecodeKey(enc + "\n")
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = DecodeKey("")
	assert.Error(t, err)
	_, err = DecodeKey("not-base64!!!")
	assert.Error(t, err)
}
