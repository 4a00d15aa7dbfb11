package ai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePrompts(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadPrompts(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		p, err := LoadPrompts("")
		require.NoError(t, err)
		assert.Equal(t, DefaultPrompts(), p)
	})

	t.Run("partial override keeps the other default", func(t *testing.T) {
		path := writePrompts(t, "goal: 'Break \"{input}\" into small steps.'\n")
		p, err := LoadPrompts(path)
		require.NoError(t, err)
		assert.Equal(t, `Break "plan" into small steps.`, render(p.Goal, "plan"))
		assert.Equal(t, DefaultPrompts().Transcript, p.Transcript)
	})

	t.Run("override without placeholder is rejected", func(t *testing.T) {
		path := writePrompts(t, "transcript: list my tasks\n")
		_, err := LoadPrompts(path)
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writePrompts(t, "goal: [unclosed\n")
		_, err := LoadPrompts(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPrompts(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
