package tokenizer

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	tmath "github.com/crislerwin/tiny-attention/pkg/math"
)

// Tokenizer maps words to vocabulary indices and encodes text as matrices
type Tokenizer struct {
	Vocab     []string
	VocabMap  map[string]int
	UnknownID int
}

// NewTokenizer creates a new tokenizer with the given vocabulary
func NewTokenizer(vocab []string) *Tokenizer {
	t := &Tokenizer{
		VocabMap:  make(map[string]int),
		UnknownID: -1,
	}
	for _, word := range vocab {
		t.addWord(word)
	}
	return t
}

// Clean lowercases text and drops everything but letters, digits, '_' and whitespace
func Clean(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, text)
}

// AddText adds every unseen word of the cleaned text to the vocabulary
func (t *Tokenizer) AddText(text string) {
	for _, word := range strings.Fields(Clean(text)) {
		t.addWord(word)
	}
}

func (t *Tokenizer) addWord(word string) {
	if _, exists := t.VocabMap[word]; exists {
		return
	}
	t.VocabMap[word] = len(t.Vocab)
	t.Vocab = append(t.Vocab, word)
}

// Encode converts text to token IDs
func (t *Tokenizer) Encode(text string) ([]int, error) {
	words := strings.Fields(text)
	tokens := make([]int, 0, len(words))

	for _, word := range words {
		if id, exists := t.VocabMap[word]; exists {
			tokens = append(tokens, id)
		} else {
			return nil, fmt.Errorf("word not in vocabulary: %s", word)
		}
	}

	if len(tokens) == 0 {
		return nil, fmt.Errorf("no valid tokens found in text: %s", text)
	}

	return tokens, nil
}

// Decode converts token IDs back to text
func (t *Tokenizer) Decode(tokens []int) (string, error) {
	words := make([]string, 0, len(tokens))

	for _, id := range tokens {
		if id < 0 || id >= len(t.Vocab) {
			return "", fmt.Errorf("invalid token ID: %d (vocab size: %d)", id, len(t.Vocab))
		}
		words = append(words, t.Vocab[id])
	}

	return strings.Join(words, " "), nil
}

// VocabSize returns the size of the vocabulary
func (t *Tokenizer) VocabSize() int {
	return len(t.Vocab)
}

// ToMatrix encodes the cleaned text row-major into a rows x cols matrix.
// Token id k becomes (k+1)/VocabSize so zero marks padding. Words outside
// the vocabulary take UnknownID and encode as padding; words past rows*cols
// are dropped.
func (t *Tokenizer) ToMatrix(text string, rows, cols int) *tmath.Matrix {
	size := float64(t.VocabSize())
	words := strings.Fields(Clean(text))
	values := make([]float64, len(words))
	for i, word := range words {
		id, exists := t.VocabMap[word]
		if !exists {
			id = t.UnknownID
		}
		if size > 0 {
			values[i] = float64(id+1) / size
		}
	}
	return tmath.FromArray(values, rows, cols)
}

// FromMatrix decodes a matrix produced by ToMatrix, or a model output in the
// same encoding, by rounding each element to the nearest token id.
// Elements that round outside the vocabulary are skipped.
func (t *Tokenizer) FromMatrix(m *tmath.Matrix) string {
	size := float64(t.VocabSize())
	words := make([]string, 0, m.Rows*m.Cols)
	for _, v := range m.ToArray() {
		id := int(math.Round(v*size)) - 1
		if id < 0 || id >= len(t.Vocab) {
			continue
		}
		words = append(words, t.Vocab[id])
	}
	return strings.Join(words, " ")
}
