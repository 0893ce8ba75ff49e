package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedInstructionMentionsWelcomeMenu(t *testing.T) {
	text := SystemInstruction()
	assert.Contains(t, text, "You are MovieRecs AI")
	assert.Contains(t, text, "Welcome to MovieRecs AI!")
	assert.Contains(t, text, "3. Kannada (Sandalwood)")
}

func TestWelcomeListsThreeLanguages(t *testing.T) {
	assert.Contains(t, Welcome, "1. English (Hollywood)")
	assert.Contains(t, Welcome, "2. Hindi (Bollywood)")
	assert.Contains(t, Welcome, "3. Kannada (Sandalwood)")
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns embedded", func(t *testing.T) {
		text, err := Load("  ")
		require.NoError(t, err)
		assert.Equal(t, SystemInstruction(), text)
	})

	t.Run("file override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "instruction.md")
		require.NoError(t, os.WriteFile(path, []byte("  Be terse.\n"), 0o600))

		text, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "Be terse.", text)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.md")
		require.NoError(t, os.WriteFile(path, []byte("\n\n"), 0o600))

		_, err := Load(path)
		assert.ErrorContains(t, err, "empty")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.md"))
		assert.ErrorContains(t, err, "read system instruction")
	})
}
