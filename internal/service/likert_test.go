package service

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"persona-probe/internal/domain"
	"persona-probe/internal/taxonomy"
)

func TestLikertParser(t *testing.T) {
	p := NewLikertParser(taxonomy.Default().LikertOptions())
	cases := []struct {
		raw  string
		want int
	}{
		{"I disagree strongly with the statement", 1},
		{"disagree a little with the statement.", 2},
		{"I neither agree nor disagree with the statement", 3},
		{"Agree a little with the statement", 4},
		{"AGREE STRONGLY WITH THE STATEMENT", 5},
		{"```\nagree strongly with the statement\n```", 5},
		{"I   disagree\n strongly  with the statement", 1},
		{"Disagree strongly", 1},
		{"agree strongly", 5},
		{"4", 4},
		{" (2) ", 2},
	}
	for _, tc := range cases {
		got, err := p.Parse(tc.raw)
		if err != nil {
			t.Fatalf("Parse(%q) unexpected error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestLikertParserNeverDefaults(t *testing.T) {
	p := NewLikertParser(taxonomy.Default().LikertOptions())
	for _, raw := range []string{"", "   ", "I am not sure", "6", "maybe 3 or 4", "As an AI I cannot answer"} {
		if v, err := p.Parse(raw); !errors.Is(err, domain.ErrUnparsedAnswer) || v != 0 {
			t.Fatalf("Parse(%q) = %d, %v; want unparsed", raw, v, err)
		}
	}
}

func TestLikertParserErrorKeepsRunes(t *testing.T) {
	p := NewLikertParser(taxonomy.Default().LikertOptions())
	raw := strings.Repeat("ñ", 100)
	_, err := p.Parse(raw)
	if !errors.Is(err, domain.ErrUnparsedAnswer) {
		t.Fatalf("expected unparsed answer, got %v", err)
	}
	if !utf8.ValidString(err.Error()) || !strings.Contains(err.Error(), strings.Repeat("ñ", 80)+"...") {
		t.Fatalf("error must truncate by runes, got %q", err.Error())
	}
}
