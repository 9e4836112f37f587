package ctxengine

import (
	"log/slog"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"

	"github.com/flemzord/pplx/internal/provider"
)

// CharsPerToken is the fallback ratio used when no tokenizer is available.
// Callers may rely on it for budget sizing.
const CharsPerToken = 4

// TokenEstimator estimates the token count of a string.
type TokenEstimator interface {
	Estimate(text string) int
}

// CharEstimator estimates tokens as ceil(characters / CharsPerToken).
type CharEstimator struct{}

// Estimate returns the estimated token count for the given text.
func (CharEstimator) Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}

// TiktokenEstimator counts tokens with the cl100k_base subword tokenizer.
// It is an approximation of the endpoint's own tokenizer, not an exact match.
type TiktokenEstimator struct {
	codec    tokenizer.Codec
	fallback CharEstimator
}

// NewTiktokenEstimator loads the cl100k_base encoding.
func NewTiktokenEstimator() (*TiktokenEstimator, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, err
	}
	return &TiktokenEstimator{codec: codec}, nil
}

// Estimate returns the tokenizer count, or the character estimate if the
// tokenizer rejects the input.
func (e *TiktokenEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	n, err := e.codec.Count(text)
	if err != nil {
		return e.fallback.Estimate(text)
	}
	return n
}

// DefaultEstimator returns a tokenizer-backed estimator when the encoding
// can be loaded and the character estimator otherwise.
func DefaultEstimator(logger *slog.Logger) TokenEstimator {
	est, err := NewTiktokenEstimator()
	if err != nil {
		if logger != nil {
			logger.Warn("ctxengine: tokenizer unavailable, using character estimate", "error", err)
		}
		return CharEstimator{}
	}
	return est
}

// EstimateMessages returns the total estimated tokens for a slice of messages.
func EstimateMessages(estimator TokenEstimator, messages []provider.LLMMessage) int {
	total := 0
	for i := range messages {
		total += estimator.Estimate(messages[i].Content)
	}
	return total
}
