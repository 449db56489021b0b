// Package segment maps analyzed text onto character-indexed spans and
// estimates their position on the audio timeline.
package segment

import (
	"math"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/kikitori-app/kikitori-go/internal/analyze"
)

// Segment is a contiguous character span of the source text, the unit
// of playback highlighting. Start and End are rune indices; End is
// exclusive. Segments tile the source text with no gaps or overlaps.
type Segment struct {
	Text     string `json:"text"`
	Reading  string `json:"reading,omitempty"`
	Ordinal  int    `json:"ordinal"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	WordLike bool   `json:"word_like"`
}

// WordSegmenter splits text into consecutive spans that concatenate
// back to the input. It abstracts over whether a locale-aware word
// segmenter is available.
type WordSegmenter func(text string) []string

// Build converts text into segments using three ranked strategies:
// analyzer tokens when supplied, Unicode word boundaries otherwise,
// and a single whole-text segment as the last resort.
func Build(text string, tokens []analyze.Token) []Segment {
	return BuildWithSegmenter(text, tokens, UnicodeWords)
}

// BuildWithSegmenter is Build with an explicit fallback segmenter.
// A nil segmenter degrades to the single whole-text segment.
func BuildWithSegmenter(text string, tokens []analyze.Token, segmenter WordSegmenter) []Segment {
	if text == "" {
		return nil
	}

	// Analyzer token boundaries are authoritative; no re-segmentation.
	if len(tokens) > 0 {
		return fromTokens(tokens)
	}

	if segmenter != nil {
		if spans := segmenter(text); len(spans) > 0 {
			return fromSpans(spans)
		}
	}

	return []Segment{{
		Text:     text,
		Ordinal:  0,
		Start:    0,
		End:      utf8.RuneCountInString(text),
		WordLike: true,
	}}
}

// UnicodeWords splits text at UAX #29 word boundaries. Separators come
// out as their own spans, so the spans tile the input.
func UnicodeWords(text string) []string {
	var spans []string
	state := -1
	var word string
	rest := text
	for len(rest) > 0 {
		word, rest, state = uniseg.FirstWordInString(rest, state)
		spans = append(spans, word)
	}
	return spans
}

// TotalChars returns the rune count of text.
func TotalChars(text string) int {
	return utf8.RuneCountInString(text)
}

// EstimateStart maps a segment to its estimated start time assuming
// uniform narration speed. This is deliberately a linear approximation;
// there are no per-token timestamps from the synthesis source.
func EstimateStart(s Segment, totalChars int, duration float64) float64 {
	if totalChars <= 0 || duration <= 0 {
		return 0
	}
	return float64(s.Start) / float64(totalChars) * duration
}

// CharIndex maps a playback time to an approximate character index
// under the same uniform-speed assumption.
func CharIndex(currentTime, duration float64, totalChars int) int {
	if duration <= 0 || totalChars <= 0 {
		return 0
	}
	idx := int(math.Round(currentTime / duration * float64(totalChars)))
	if idx < 0 {
		return 0
	}
	if idx >= totalChars {
		return totalChars - 1
	}
	return idx
}

// At returns the ordinal of the segment whose [Start, End) range
// contains charIndex, clamped to the first and last segments.
// Returns -1 for an empty segment list.
func At(segments []Segment, charIndex int) int {
	if len(segments) == 0 {
		return -1
	}
	if charIndex < segments[0].Start {
		return segments[0].Ordinal
	}
	last := segments[len(segments)-1]
	if charIndex >= last.End {
		return last.Ordinal
	}
	i := sort.Search(len(segments), func(i int) bool {
		return segments[i].End > charIndex
	})
	return segments[i].Ordinal
}

func fromTokens(tokens []analyze.Token) []Segment {
	segments := make([]Segment, 0, len(tokens))
	pos := 0
	for _, tok := range tokens {
		if tok.Surface == "" {
			continue
		}
		n := utf8.RuneCountInString(tok.Surface)
		segments = append(segments, Segment{
			Text:     tok.Surface,
			Reading:  tok.Reading,
			Ordinal:  len(segments),
			Start:    pos,
			End:      pos + n,
			WordLike: isWordLike(tok.Surface),
		})
		pos += n
	}
	return segments
}

func fromSpans(spans []string) []Segment {
	segments := make([]Segment, 0, len(spans))
	pos := 0
	for _, span := range spans {
		if span == "" {
			continue
		}
		n := utf8.RuneCountInString(span)
		segments = append(segments, Segment{
			Text:     span,
			Ordinal:  len(segments),
			Start:    pos,
			End:      pos + n,
			WordLike: isWordLike(span),
		})
		pos += n
	}
	return segments
}

// isWordLike reports whether a span carries word content rather than
// being a separator run.
func isWordLike(span string) bool {
	for _, r := range span {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
