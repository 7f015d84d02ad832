package llm

import (
	"context"
	"testing"
	"time"
)

func TestBuildRegistry(t *testing.T) {
	specs := []ModelSpec{
		{Name: "mock-a", Backend: BackendMock},
		{Name: "local-b", Backend: BackendLocal, ModelID: "llama3", BaseURL: "http://localhost:11434/v1", Fallback: "mock-a"},
	}
	reg, err := BuildRegistry(context.Background(), specs, Credentials{MockResponse: "hello"}, BuildOptions{Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if names := reg.Names(); len(names) != 2 || names[0] != "local-b" || names[1] != "mock-a" {
		t.Fatalf("unexpected names %v", names)
	}
	g, err := reg.Get("mock-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := g.Generate(context.Background(), Prompt{User: "x"}, GenerateConfig{})
	if err != nil || out != "hello" {
		t.Fatalf("unexpected output %q %v", out, err)
	}
	if _, err := reg.Get("missing"); err == nil {
		t.Fatalf("expected error for unknown model")
	}
}

func TestBuildRegistryRejectsBadSpecs(t *testing.T) {
	cases := []struct {
		name  string
		specs []ModelSpec
	}{
		{"unknown backend", []ModelSpec{{Name: "x", Backend: "carrier-pigeon"}}},
		{"local without url", []ModelSpec{{Name: "x", Backend: BackendLocal}}},
		{"gemini without key", []ModelSpec{{Name: "x", Backend: BackendGemini}}},
		{"unknown fallback", []ModelSpec{{Name: "x", Backend: BackendMock, Fallback: "y"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := BuildRegistry(context.Background(), tc.specs, Credentials{}, BuildOptions{}, nil); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestScriptedClientRulesBeforeQueue(t *testing.T) {
	s := NewScriptedClient().When("judge", "medium").Enqueue(ScriptedReply{Text: "first"}, ScriptedReply{Text: "second"})
	s.Default = ScriptedReply{Text: "default"}

	ctx := context.Background()
	got := []string{}
	for _, p := range []Prompt{{User: "a"}, {System: "you are a judge", User: "b"}, {User: "c"}, {User: "d"}} {
		out, _ := s.Generate(ctx, p, GenerateConfig{})
		got = append(got, out)
	}
	want := []string{"first", "medium", "second", "default"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d: got %q want %q", i, got[i], want[i])
		}
	}
	if len(s.Calls()) != 4 {
		t.Fatalf("expected 4 recorded calls")
	}
}
