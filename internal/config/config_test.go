package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverridesOnlySpecifiedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gameserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listener:
  port: 7777
save:
  kind: parallel
  parallelism: 4
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 7777, cfg.Listener.Port)
	require.Equal(t, "0.0.0.0", cfg.Listener.BindAddress, "unset fields keep their default")
	require.Equal(t, "parallel", cfg.Save.Kind)
	require.Equal(t, 4, cfg.Save.Parallelism)
	require.Equal(t, 90*time.Second, cfg.ActivityTimeout, "unrelated defaults survive a partial override")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gameserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listener: [this is not a mapping"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestDefaultMatchesDocumentedValues(t *testing.T) {
	cfg := Default()

	require.Equal(t, 2593, cfg.Listener.Port)
	require.Equal(t, 8, cfg.Listener.Backlog)
	require.Equal(t, 512, cfg.Pools.GramSize)
	require.Equal(t, 4096, cfg.Pools.PacketBufSize)
	require.Equal(t, 65536, cfg.Pools.CompressorSize)
	require.Equal(t, 512, cfg.Caps.GumpCap)
	require.Equal(t, 256*1024, cfg.SendQueueCapacity)
	require.Equal(t, 200, cfg.DisposalBatchSize)
	require.Equal(t, "standard", cfg.Save.Kind)
	require.Equal(t, "info", cfg.LogLevel)
}
