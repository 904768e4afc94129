package words

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVocabulary(t *testing.T) {
	// Given: answers and extra guesses with some junk entries
	vocab, err := NewVocabulary(5, []string{"crane", "Water", "toolong", "ab1de"}, []string{"rater", "xyz"})
	require.NoError(t, err)

	// Then: only well-formed words are kept and answers are valid guesses
	answers, allowed := vocab.Size()
	assert.Equal(t, 2, answers)
	assert.Equal(t, 3, allowed)

	assert.True(t, vocab.IsValid("CRANE"))
	assert.True(t, vocab.IsValid("water"))
	assert.True(t, vocab.IsValid(" rater "))
	assert.False(t, vocab.IsValid("toolong"))
	assert.False(t, vocab.IsValid("xyz"))

	assert.Contains(t, []string{"CRANE", "WATER"}, vocab.RandomAnswer())
}

func TestNewVocabulary_Empty(t *testing.T) {
	_, err := NewVocabulary(5, []string{"abc"}, nil)

	require.ErrorIs(t, err, ErrEmptyVocabulary)
}

func TestLoadVocabulary(t *testing.T) {
	t.Run("embedded defaults", func(t *testing.T) {
		vocab, err := LoadVocabulary(DefaultWordLength, "", "")
		require.NoError(t, err)

		answers, _ := vocab.Size()
		assert.Greater(t, answers, 100)
		assert.Len(t, vocab.RandomAnswer(), DefaultWordLength)
		assert.True(t, vocab.IsValid("water"))
	})

	t.Run("files", func(t *testing.T) {
		dir := t.TempDir()
		answersPath := filepath.Join(dir, "answers.txt")
		allowedPath := filepath.Join(dir, "allowed.txt")
		require.NoError(t, os.WriteFile(answersPath, []byte("plumb\n\n"), 0o600))
		require.NoError(t, os.WriteFile(allowedPath, []byte("zesty\n"), 0o600))

		vocab, err := LoadVocabulary(DefaultWordLength, answersPath, allowedPath)
		require.NoError(t, err)

		assert.Equal(t, "PLUMB", vocab.RandomAnswer())
		assert.True(t, vocab.IsValid("zesty"))
		assert.False(t, vocab.IsValid("water"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadVocabulary(DefaultWordLength, filepath.Join(t.TempDir(), "nope.txt"), "")

		require.Error(t, err)
	})
}
