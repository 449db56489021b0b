package analyze

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// KagomeAnalyzer tokenizes Japanese text with the IPA dictionary.
// Readings come back as Katakana and are converted to Hiragana; they
// are attached only to surfaces containing Kanji.
type KagomeAnalyzer struct {
	tok    *tokenizer.Tokenizer
	logger *slog.Logger
}

// NewKagomeAnalyzer builds the morphological analyzer. Dictionary
// construction is the expensive part, so build once and share.
func NewKagomeAnalyzer(logger *slog.Logger) (*KagomeAnalyzer, error) {
	tok, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("init kagome tokenizer: %w", err)
	}
	return &KagomeAnalyzer{tok: tok, logger: logger}, nil
}

// Name returns the analyzer identifier.
func (k *KagomeAnalyzer) Name() string {
	return "kagome"
}

// Analyze tokenizes text and aligns the result with the source so that
// concatenated surfaces reproduce the input exactly.
func (k *KagomeAnalyzer) Analyze(ctx context.Context, text string) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	morphs := k.tok.Tokenize(text)
	tokens := make([]Token, 0, len(morphs))

	for _, m := range morphs {
		tok := Token{Surface: m.Surface}
		if ContainsHan(m.Surface) {
			if reading, ok := m.Reading(); ok && reading != "*" {
				tok.Reading = KatakanaToHiragana(reading)
			}
		}
		tokens = append(tokens, tok)
	}

	aligned, err := Align(text, tokens)
	if err != nil {
		k.logger.Warn("kagome output misaligned with source text",
			"text_length", len(text),
			"tokens", len(tokens),
		)
		return nil, err
	}

	return aligned, nil
}
