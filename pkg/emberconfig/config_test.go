package emberconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigPassesValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 32, cfg.Compiler.MaxParams)
	assert.Equal(t, "memory", cfg.Artifacts.Backend)
}

func TestValidateFillsZeroValuesWithDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 32, cfg.Compiler.MaxParams)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 256, cfg.Cache.Capacity)
	assert.Equal(t, "memory", cfg.Artifacts.Backend)
	assert.Equal(t, 150*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.Equal(t, "stdout", cfg.Tracing.Exporter)
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := &Config{Log: LogConfig{Format: "xml"}}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownArtifactsBackend(t *testing.T) {
	cfg := &Config{Artifacts: ArtifactsConfig{Backend: "carrier-pigeon"}}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownTracingExporter(t *testing.T) {
	cfg := &Config{Tracing: TracingConfig{Exporter: "zipkin"}}
	assert.Error(t, cfg.Validate())
}

func TestLoadReadsYAMLAndAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "emberc.yaml")
	yamlDoc := `
compiler:
  max_params: 16
log:
  level: debug
artifacts:
  backend: sqlite
  dsn: "./artifacts.db"
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Compiler.MaxParams)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format) // untouched field keeps DefaultConfig's value
	assert.Equal(t, "sqlite", cfg.Artifacts.Backend)
	assert.Equal(t, "./artifacts.db", cfg.Artifacts.DSN)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "emberc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("artifacts:\n  backend: carrier-pigeon\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
