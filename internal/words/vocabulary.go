package words

import (
	"bufio"
	"crypto/rand"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
)

const DefaultWordLength = 5

//go:embed answers.txt
var embeddedAnswers string

var ErrEmptyVocabulary = errors.New("answers list is empty")

// Vocabulary holds the secret-word candidates and the set of accepted guesses.
// Answers are always accepted guesses.
type Vocabulary struct {
	wordLength int
	answers    []string
	allowed    map[string]struct{}
}

func NewVocabulary(wordLength int, answers, allowed []string) (*Vocabulary, error) {
	vocab := &Vocabulary{
		wordLength: wordLength,
		allowed:    make(map[string]struct{}, len(answers)+len(allowed)),
	}

	for _, word := range answers {
		if word = Normalize(word); vocab.fits(word) {
			vocab.answers = append(vocab.answers, word)
			vocab.allowed[word] = struct{}{}
		}
	}

	for _, word := range allowed {
		if word = Normalize(word); vocab.fits(word) {
			vocab.allowed[word] = struct{}{}
		}
	}

	if len(vocab.answers) == 0 {
		return nil, ErrEmptyVocabulary
	}

	return vocab, nil
}

// LoadVocabulary reads one word per line from the given files. An empty answers path
// falls back to the embedded list, an empty allowed path reuses the answers.
func LoadVocabulary(wordLength int, answersPath, allowedPath string) (*Vocabulary, error) {
	answers := readWords(strings.NewReader(embeddedAnswers))

	if answersPath != "" {
		list, err := readWordFile(answersPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read answers: %w", err)
		}
		answers = list
	}

	var allowed []string
	if allowedPath != "" {
		list, err := readWordFile(allowedPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read allowed words: %w", err)
		}
		allowed = list
	}

	return NewVocabulary(wordLength, answers, allowed)
}

func (that *Vocabulary) WordLength() int {
	return that.wordLength
}

// IsValid reports whether word is an accepted guess.
func (that *Vocabulary) IsValid(word string) bool {
	_, ok := that.allowed[Normalize(word)]
	return ok
}

// RandomAnswer returns a uniformly random secret word.
func (that *Vocabulary) RandomAnswer() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(that.answers))))
	if err != nil {
		return that.answers[0]
	}

	return that.answers[n.Int64()]
}

func (that *Vocabulary) Size() (answers, allowed int) {
	return len(that.answers), len(that.allowed)
}

func (that *Vocabulary) fits(word string) bool {
	return len(word) == that.wordLength && IsAlpha(word)
}

func readWordFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return readWords(file), nil
}

func readWords(r io.Reader) []string {
	var out []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if word := strings.TrimSpace(scanner.Text()); word != "" {
			out = append(out, word)
		}
	}

	return out
}
