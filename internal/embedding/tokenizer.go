package embedding

import (
	"strings"
	"unicode"

	"github.com/hyperjump/tanya/internal/fingerprint"
)

// DefaultMaxTokens is the sequence length used when none is configured.
const DefaultMaxTokens = 256

// BERT reserved ids; hashed word ids start above them.
const (
	clsToken    = 101
	sepToken    = 102
	vocabSize   = 30000
	firstWordID = 1000
)

// Encoding is the padded model input for one text.
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
	// Words is the number of words encoded; Truncated is set when some did not fit.
	Words     int
	Truncated bool
}

// Tokenizer encodes text for BERT-style models.
type Tokenizer interface {
	Encode(text string, maxTokens int) Encoding
}

// HashTokenizer maps each word to a stable id by hashing. It stands in for a
// vocabulary when the ONNX model ships without one.
type HashTokenizer struct{}

// Encode produces [CLS] words... [SEP] padded with zeros to maxTokens.
func (HashTokenizer) Encode(text string, maxTokens int) Encoding {
	if maxTokens < 2 {
		maxTokens = DefaultMaxTokens
	}
	enc := Encoding{
		InputIDs:      make([]int64, maxTokens),
		AttentionMask: make([]int64, maxTokens),
		TokenTypeIDs:  make([]int64, maxTokens),
	}
	enc.InputIDs[0] = clsToken
	enc.AttentionMask[0] = 1

	pos := 1
	words := splitWords(text)
	for _, w := range words {
		if pos == maxTokens-1 {
			enc.Truncated = true
			break
		}
		enc.InputIDs[pos] = firstWordID + int64(fingerprint.Sum64([]byte(w))%(vocabSize-firstWordID))
		enc.AttentionMask[pos] = 1
		pos++
	}
	enc.Words = pos - 1
	enc.InputIDs[pos] = sepToken
	enc.AttentionMask[pos] = 1
	return enc
}

// splitWords lowercases text and splits it on anything that is not a letter or digit.
func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
