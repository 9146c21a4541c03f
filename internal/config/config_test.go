package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config file at a temp dir and clears overrides
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(EnvConfigPath, filepath.Join(dir, "config.yaml"))
	for _, key := range []string{EnvOutputDir, EnvMaxFileSize, EnvWorkers, EnvLanguages, EnvStrict, EnvMemoryLimit} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadYAML(t *testing.T) {
	dir := isolate(t)
	outDir := filepath.Join(dir, "out")
	yaml := "output_dir: " + outDir + "\nworkers: 4\nocr_languages: [eng, deu]\nstrict_validation: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, outDir, cfg.OutputDir)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, []string{"eng", "deu"}, cfg.OCRLanguages)
	assert.True(t, cfg.StrictValidation)
	assert.Equal(t, DefaultMaxFileSize, cfg.MaxFileSize)
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("workers: 4\n"), 0o600))

	t.Setenv(EnvWorkers, "2")
	t.Setenv(EnvMaxFileSize, "1024")
	t.Setenv(EnvLanguages, "fra+spa")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, int64(1024), cfg.MaxFileSize)
	assert.Equal(t, []string{"fra", "spa"}, cfg.OCRLanguages)
}

func TestInvalidValues(t *testing.T) {
	isolate(t)

	t.Setenv(EnvMaxFileSize, "lots")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv(EnvMaxFileSize, "")
	t.Setenv(EnvOutputDir, "relative")
	_, err = Load()
	assert.Error(t, err)
}

func TestBrokenYAML(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("workers: [\n"), 0o600))

	cfg, err := Load()
	assert.Error(t, err)
	require.NotNil(t, cfg, "defaults are returned alongside the error")
	assert.Equal(t, 1, cfg.Workers)
}
