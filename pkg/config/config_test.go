package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/scottdavis/inferpipe/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFromFile(t *testing.T) {
	path := writeConfig(t, "configuration.yaml", `
task: text-classification
model:
  type: ollama
  endpoint: http://localhost:11434
preprocessor:
  lowercase: true
  max_length: 512
`)

	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path())

	task, ok := cfg.GetString("task")
	assert.True(t, ok)
	assert.Equal(t, "text-classification", task)

	modelType, ok := cfg.GetString("model.type")
	assert.True(t, ok)
	assert.Equal(t, "ollama", modelType)

	maxLength, ok := cfg.GetInt("preprocessor.max_length")
	assert.True(t, ok)
	assert.Equal(t, 512, maxLength)

	lowercase, ok := cfg.GetBool("preprocessor.lowercase")
	assert.True(t, ok)
	assert.True(t, lowercase)
}

func TestFromFileJSON(t *testing.T) {
	path := writeConfig(t, "configuration.json", `{"task": "image-matting", "model": {"type": "unet"}}`)

	cfg, err := FromFile(path)
	require.NoError(t, err)

	modelType, ok := cfg.GetString("model.type")
	assert.True(t, ok)
	assert.Equal(t, "unet", modelType)
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.Code(err))
}

func TestFromFileMalformed(t *testing.T) {
	path := writeConfig(t, "bad.yaml", "task: [unclosed")

	_, err := FromFile(path)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.Code(err))
}

func TestGetMissingPaths(t *testing.T) {
	path := writeConfig(t, "configuration.yaml", "model:\n  type: ollama\n")

	cfg, err := FromFile(path)
	require.NoError(t, err)

	_, ok := cfg.Get("model.missing")
	assert.False(t, ok)

	// Traversing through a scalar segment misses rather than panics.
	_, ok = cfg.Get("model.type.deeper")
	assert.False(t, ok)

	_, ok = cfg.GetString("model")
	assert.False(t, ok)
}
