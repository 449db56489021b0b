package segment

import (
	"strings"
	"testing"

	"github.com/kikitori-app/kikitori-go/internal/analyze"
)

// checkTiling verifies segments are contiguous, ordered, and
// reconstruct the source text.
func checkTiling(t *testing.T, text string, segments []Segment) {
	t.Helper()

	var b strings.Builder
	pos := 0
	for i, s := range segments {
		if s.Ordinal != i {
			t.Errorf("segment %d has ordinal %d", i, s.Ordinal)
		}
		if s.Start != pos {
			t.Errorf("segment %d starts at %d, want %d", i, s.Start, pos)
		}
		if s.End <= s.Start {
			t.Errorf("segment %d has empty range [%d,%d)", i, s.Start, s.End)
		}
		pos = s.End
		b.WriteString(s.Text)
	}

	if b.String() != text {
		t.Errorf("concatenated segments = %q, want %q", b.String(), text)
	}
	if len(segments) > 0 && segments[len(segments)-1].End != TotalChars(text) {
		t.Errorf("last segment ends at %d, want %d",
			segments[len(segments)-1].End, TotalChars(text))
	}
}

func TestBuildFromTokens(t *testing.T) {
	text := "私は猫が好き"
	tokens := []analyze.Token{
		{Surface: "私", Reading: "わたし"},
		{Surface: "は"},
		{Surface: "猫", Reading: "ねこ"},
		{Surface: "が"},
		{Surface: "好き", Reading: "すき"},
	}

	segments := Build(text, tokens)
	checkTiling(t, text, segments)

	if len(segments) != 5 {
		t.Fatalf("got %d segments, want 5", len(segments))
	}
	if segments[0].Reading != "わたし" {
		t.Errorf("segment 0 reading = %q, want わたし", segments[0].Reading)
	}
	if segments[1].Reading != "" {
		t.Errorf("segment 1 reading = %q, want empty", segments[1].Reading)
	}
	if segments[4].Start != 4 || segments[4].End != 6 {
		t.Errorf("segment 4 range = [%d,%d), want [4,6)", segments[4].Start, segments[4].End)
	}
	for i, s := range segments {
		if !s.WordLike {
			t.Errorf("token segment %d not word-like", i)
		}
	}
}

func TestBuildFallbackWords(t *testing.T) {
	text := "hello, brave new world"

	segments := Build(text, nil)
	checkTiling(t, text, segments)

	var words, separators int
	for _, s := range segments {
		if s.Reading != "" {
			t.Errorf("fallback segment %q carries reading %q", s.Text, s.Reading)
		}
		if s.WordLike {
			words++
		} else {
			separators++
		}
	}
	if words != 4 {
		t.Errorf("got %d word-like segments, want 4", words)
	}
	if separators == 0 {
		t.Error("expected separator segments between words")
	}
}

func TestBuildNoSegmenter(t *testing.T) {
	text := "全部ひとつ"

	segments := BuildWithSegmenter(text, nil, nil)
	checkTiling(t, text, segments)

	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	if segments[0].Start != 0 || segments[0].End != TotalChars(text) {
		t.Errorf("whole-text segment range = [%d,%d)", segments[0].Start, segments[0].End)
	}
}

func TestBuildEmptyText(t *testing.T) {
	if segments := Build("", nil); segments != nil {
		t.Errorf("Build(\"\") = %v, want nil", segments)
	}
}

func TestBuildTokensWithWhitespace(t *testing.T) {
	// Filler tokens from alignment keep the invariant intact.
	text := "ab cd"
	tokens := []analyze.Token{
		{Surface: "ab"},
		{Surface: " "},
		{Surface: "cd"},
	}

	segments := Build(text, tokens)
	checkTiling(t, text, segments)
}

func TestEstimateStart(t *testing.T) {
	tests := []struct {
		name       string
		start      int
		totalChars int
		duration   float64
		want       float64
	}{
		{"mid segment", 20, 100, 10, 2.0},
		{"first segment", 0, 100, 10, 0},
		{"zero chars", 20, 0, 10, 0},
		{"zero duration", 20, 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Segment{Start: tt.start, End: tt.start + 10}
			got := EstimateStart(s, tt.totalChars, tt.duration)
			if got != tt.want {
				t.Errorf("EstimateStart = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCharIndex(t *testing.T) {
	tests := []struct {
		name       string
		time       float64
		duration   float64
		totalChars int
		want       int
	}{
		{"start", 0, 10, 100, 0},
		{"midpoint", 5, 10, 100, 50},
		{"rounds", 2.46, 10, 100, 25},
		{"end clamps", 10, 10, 100, 99},
		{"past end clamps", 12, 10, 100, 99},
		{"negative clamps", -1, 10, 100, 0},
		{"zero duration", 5, 0, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CharIndex(tt.time, tt.duration, tt.totalChars)
			if got != tt.want {
				t.Errorf("CharIndex = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAt(t *testing.T) {
	segments := []Segment{
		{Ordinal: 0, Start: 0, End: 3},
		{Ordinal: 1, Start: 3, End: 4},
		{Ordinal: 2, Start: 4, End: 10},
	}

	tests := []struct {
		name  string
		index int
		want  int
	}{
		{"first", 0, 0},
		{"inside first", 2, 0},
		{"boundary", 3, 1},
		{"inside last", 7, 2},
		{"past end clamps", 10, 2},
		{"negative clamps", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := At(segments, tt.index); got != tt.want {
				t.Errorf("At(%d) = %d, want %d", tt.index, got, tt.want)
			}
		})
	}

	if got := At(nil, 0); got != -1 {
		t.Errorf("At(nil) = %d, want -1", got)
	}
}
