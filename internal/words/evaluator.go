package words

import (
	"fmt"
	"strings"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
	"github.com/DanDan1134/wordle-battle/internal/entity"
)

// Evaluate scores guess against target with the two-pass algorithm.
//
// Pass 1 marks exact matches and counts the target letters left unmatched.
// Pass 2 marks a non-exact letter present while the target still has an unmatched
// copy of it, and miss otherwise. A letter is therefore never credited more times
// than it occurs in the target.
func Evaluate(target, guess string) ([]entity.Mark, error) {
	t := []rune(strings.ToUpper(target))
	g := []rune(strings.ToUpper(guess))

	if len(t) != len(g) {
		return nil, fmt.Errorf("%w: target has %d letters, guess has %d", apperror.ErrInvalidInput, len(t), len(g))
	}

	marks := make([]entity.Mark, len(t))
	available := make(map[rune]int, len(t))

	for i := range t {
		if g[i] == t[i] {
			marks[i] = entity.MarkCorrect
			continue
		}

		available[t[i]]++
	}

	for i := range g {
		if marks[i] == entity.MarkCorrect {
			continue
		}

		if available[g[i]] > 0 {
			marks[i] = entity.MarkPresent
			available[g[i]]--
			continue
		}

		marks[i] = entity.MarkMiss
	}

	return marks, nil
}

// IsAlpha reports whether s is made of ASCII letters only.
func IsAlpha(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}

	return true
}

// Normalize upper-cases and trims a word.
func Normalize(word string) string {
	return strings.ToUpper(strings.TrimSpace(word))
}
