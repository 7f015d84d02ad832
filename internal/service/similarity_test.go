package service

import (
	"math"
	"testing"
)

func TestTokenizerNormalizes(t *testing.T) {
	got := Tokenizer{}.Tokens("Hello, WORLD!! It's 2024 -- café.")
	want := []string{"hello", "world", "it's", "2024", "café"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	if got := (Tokenizer{RemoveStopWords: true}).Tokens("I am at the beach with my friends"); len(got) != 2 || got[0] != "beach" || got[1] != "friends" {
		t.Fatalf("stop words must be removed, got %v", got)
	}
}

func TestMetricsAreSymmetricAndBounded(t *testing.T) {
	texts := []string{
		"I love meeting new people at parties.",
		"Parties exhaust me; I prefer a quiet book.",
		"i LOVE meeting new people at parties",
		"",
		"!!!",
		"people people people",
	}
	for _, metric := range []SimilarityMetric{JaccardMetric{}, CosineMetric{}, CosineMetric{Tokenizer: Tokenizer{RemoveStopWords: true}}} {
		for _, a := range texts {
			if got := metric.Similarity(a, a); got != 1 {
				t.Fatalf("%s: sim(A,A) = %v for %q", metric.Name(), got, a)
			}
			for _, b := range texts {
				ab, ba := metric.Similarity(a, b), metric.Similarity(b, a)
				if ab != ba {
					t.Fatalf("%s: asymmetric for %q / %q: %v vs %v", metric.Name(), a, b, ab, ba)
				}
				if ab < 0 || ab > 1 {
					t.Fatalf("%s: out of range %v", metric.Name(), ab)
				}
			}
		}
		if got := metric.Similarity(texts[0], texts[2]); got != 1 {
			t.Fatalf("%s: case and punctuation must be normalized, got %v", metric.Name(), got)
		}
		if got := metric.Similarity("abc", ""); got != 0 {
			t.Fatalf("%s: empty vs non-empty must be 0, got %v", metric.Name(), got)
		}
	}
}

func TestJaccardValue(t *testing.T) {
	// {a,b,c} vs {b,c,d}: 2/4
	if got := (JaccardMetric{}).Similarity("a b c", "b c d"); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
}

func TestCosineValue(t *testing.T) {
	// tf a=2,b=1 vs a=1: 2 / (sqrt(5)*1)
	got := (CosineMetric{}).Similarity("a a b", "a")
	if math.Abs(got-2/math.Sqrt(5)) > 1e-12 {
		t.Fatalf("unexpected cosine %v", got)
	}
}

func TestNewSimilarityMetric(t *testing.T) {
	for name, want := range map[string]string{"": "cosine", "Cosine": "cosine", "jaccard": "jaccard"} {
		m, err := NewSimilarityMetric(name, false)
		if err != nil || m.Name() != want {
			t.Fatalf("NewSimilarityMetric(%q) = %v, %v", name, m, err)
		}
	}
	if _, err := NewSimilarityMetric("levenshtein", false); err == nil {
		t.Fatalf("expected error for unknown metric")
	}
}

func TestLexicalVector(t *testing.T) {
	v := LexicalVector(Tokenizer{}, "Hello hello world", 256)
	if len(v) != 256 {
		t.Fatalf("expected 256 dims, got %d", len(v))
	}
	sum := 0.0
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Fatalf("vector must be L2 normalized, norm^2=%v", sum)
	}
	again := LexicalVector(Tokenizer{}, "hello, HELLO world!", 256)
	for i := range v {
		if v[i] != again[i] {
			t.Fatalf("vector must be deterministic after normalization")
		}
	}
	for _, x := range LexicalVector(Tokenizer{}, "...", 16) {
		if x != 0 {
			t.Fatalf("empty text must map to the zero vector")
		}
	}
}
