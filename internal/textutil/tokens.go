package textutil

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// messageOverhead approximates the per-message framing tokens of chat APIs.
const messageOverhead = 4

// TokenCounter estimates the token count of a text.
type TokenCounter interface {
	CountText(text string) int
}

// Tokenizer counts tokens with a tiktoken encoding and falls back to a
// heuristic when the encoding cannot be loaded (offline, no BPE cache).
type Tokenizer struct {
	encodingName string
	encoder      *tiktoken.Tiktoken
	fallback     bool
	mu           sync.Mutex
}

// NewTokenizer loads encodingName, falling back to the heuristic on error.
func NewTokenizer(encodingName string) *Tokenizer {
	t := &Tokenizer{encodingName: encodingName}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		t.fallback = true
		return t
	}
	t.encoder = enc
	return t
}

// HeuristicTokenizer returns a tokenizer that never loads an encoding.
func HeuristicTokenizer() *Tokenizer {
	return &Tokenizer{encodingName: "heuristic", fallback: true}
}

// CountText returns the estimated token count of text.
func (t *Tokenizer) CountText(text string) int {
	if text == "" {
		return 0
	}
	if t == nil || t.fallback {
		return HeuristicTokens(text)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.encoder.Encode(text, nil, nil))
}

// Precise reports whether counts come from a real encoding.
func (t *Tokenizer) Precise() bool {
	return t != nil && !t.fallback
}

// EncodingName returns the encoding in use.
func (t *Tokenizer) EncodingName() string {
	if t == nil {
		return ""
	}
	return t.encodingName
}

// CountMessages sums token estimates over message contents plus framing.
func CountMessages(counter TokenCounter, contents ...string) int {
	if counter == nil {
		counter = HeuristicTokenizer()
	}
	total := 0
	for _, content := range contents {
		total += messageOverhead + counter.CountText(content)
	}
	return total
}

// HeuristicTokens estimates tokens from character classes: CJK runes cost
// about 1.5 tokens, other runes about a quarter token.
func HeuristicTokens(text string) int {
	if text == "" {
		return 0
	}
	cjk, other := 0, 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}
	estimate := int(float64(cjk)*1.5 + float64(other)*0.25)
	if estimate < 1 {
		estimate = 1
	}
	return estimate
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x3000 && r <= 0x303F) ||
		(r >= 0xFF00 && r <= 0xFFEF) ||
		(r >= 0xAC00 && r <= 0xD7AF)
}
