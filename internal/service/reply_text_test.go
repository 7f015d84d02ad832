package service

import "testing"

func TestStripReplyFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"score\": 1}\n```": `{"score": 1}`,
		"\uFEFF  high  ":               "high",
		"```\nagree a little\n```":     "agree a little",
		"":                             "",
	}
	for in, want := range cases {
		if got := stripReplyFences(in); got != want {
			t.Fatalf("stripReplyFences(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFirstJSONObject(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`Sure! {"score": 2, "clues": ["a {b}"]} trailing`, `{"score": 2, "clues": ["a {b}"]}`},
		{`{"reasoning": "she said \"hi}\"", "score": 0}`, `{"reasoning": "she said \"hi}\"", "score": 0}`},
		{`{"outer": {"inner": 1}} {"second": 2}`, `{"outer": {"inner": 1}}`},
		{`{"score": `, ""},
		{"no json here", ""},
	}
	for _, tc := range cases {
		if got := firstJSONObject(tc.in); got != tc.want {
			t.Fatalf("firstJSONObject(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncateText(t *testing.T) {
	if got := truncateText("héllo world", 5); got != "héllo..." {
		t.Fatalf("unexpected %q", got)
	}
	if got := truncateText("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
}
