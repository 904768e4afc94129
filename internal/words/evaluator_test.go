package words

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
	"github.com/DanDan1134/wordle-battle/internal/entity"
)

const (
	c = entity.MarkCorrect
	p = entity.MarkPresent
	m = entity.MarkMiss
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		target string
		guess  string
		want   []entity.Mark
	}{
		{"exact match", "CRANE", "CRANE", []entity.Mark{c, c, c, c, c}},
		{"no shared letters", "CRANE", "PILOT", []entity.Mark{m, m, m, m, m}},
		{"single R already used by last position", "WATER", "RATER", []entity.Mark{m, c, c, c, c}},
		{"present letters", "CRANE", "NACRE", []entity.Mark{p, p, p, p, c}},
		{"duplicate guess letter, single in target", "ROBIN", "FLOOR", []entity.Mark{m, m, p, m, p}},
		{"duplicate letters in target", "SPEED", "ERASE", []entity.Mark{p, m, m, p, p}},
		{"five copies guessed, three in target", "EERIE", "EEEEE", []entity.Mark{c, c, m, m, c}},
		{"lower case input", "water", "Rater", []entity.Mark{m, c, c, c, c}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marks, err := Evaluate(tt.target, tt.guess)

			require.NoError(t, err)
			assert.Equal(t, tt.want, marks)
		})
	}
}

func TestEvaluate_LengthMismatch(t *testing.T) {
	// When: the guess is shorter than the target
	marks, err := Evaluate("CRANE", "CRAN")

	// Then: the precondition violation is reported
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Nil(t, marks)
}

func TestEvaluate_Properties(t *testing.T) {
	faker := gofakeit.New(108)
	alphabet := []string{"A", "B", "C", "D"}

	randomWord := func(n int) string {
		var sb strings.Builder
		for range n {
			sb.WriteString(faker.RandomString(alphabet))
		}
		return sb.String()
	}

	for range 2000 {
		// Given: a random target and guess over a small alphabet, so duplicates are common
		target, guess := randomWord(5), randomWord(5)

		marks, err := Evaluate(target, guess)
		require.NoError(t, err)
		require.Len(t, marks, len(target))

		// Then: no letter earns more credit than it occurs in the target
		credited := map[byte]int{}
		for i, mark := range marks {
			if mark != entity.MarkMiss {
				credited[guess[i]]++
			}
			if mark == entity.MarkCorrect {
				require.Equal(t, target[i], guess[i])
			}
		}

		for letter, n := range credited {
			require.LessOrEqual(t, n, strings.Count(target, string(letter)), "target %s guess %s", target, guess)
		}

		// Then: evaluating a word against itself is all correct
		self, err := Evaluate(target, target)
		require.NoError(t, err)
		require.True(t, entity.AllCorrect(self))
	}
}

func TestEvaluate_CaseInsensitive(t *testing.T) {
	faker := gofakeit.New(7)

	for range 200 {
		word := faker.LetterN(5)

		marks, err := Evaluate(strings.ToLower(word), strings.ToUpper(word))

		require.NoError(t, err)
		require.True(t, entity.AllCorrect(marks), word)
	}
}

func TestIsAlpha(t *testing.T) {
	assert.True(t, IsAlpha("crane"))
	assert.True(t, IsAlpha("CRANE"))
	assert.False(t, IsAlpha("cr4ne"))
	assert.False(t, IsAlpha("crané"))
	assert.False(t, IsAlpha(""))
}
