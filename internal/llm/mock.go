package llm

import (
	"context"
	"strings"
	"sync"
)

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response string
	Err      error
}

func (m *MockClient) Generate(ctx context.Context, prompt Prompt, cfg GenerateConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.Response, m.Err
}

// ScriptedReply es una respuesta enlatada de ScriptedClient.
type ScriptedReply struct {
	Text string
	Err  error
}

// ScriptedClient devuelve respuestas deterministas. Primero busca una regla cuyo
// substring aparezca en el prompt; si ninguna aplica, consume la cola en orden
// de llamada; si la cola esta vacia usa Default.
type ScriptedClient struct {
	mu      sync.Mutex
	rules   []scriptedRule
	queue   []ScriptedReply
	Default ScriptedReply
	calls   []Prompt
}

type scriptedRule struct {
	contains string
	reply    ScriptedReply
}

func NewScriptedClient() *ScriptedClient {
	return &ScriptedClient{}
}

// When registra una respuesta para prompts que contengan substr (user o system).
func (s *ScriptedClient) When(substr string, text string) *ScriptedClient {
	return s.WhenReply(substr, ScriptedReply{Text: text})
}

func (s *ScriptedClient) WhenReply(substr string, reply ScriptedReply) *ScriptedClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, scriptedRule{contains: substr, reply: reply})
	return s
}

// Enqueue agrega respuestas consumidas en orden de llamada.
func (s *ScriptedClient) Enqueue(replies ...ScriptedReply) *ScriptedClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, replies...)
	return s
}

func (s *ScriptedClient) Generate(ctx context.Context, prompt Prompt, cfg GenerateConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, prompt)

	full := prompt.System + "\n" + prompt.User
	for _, r := range s.rules {
		if strings.Contains(full, r.contains) {
			return r.reply.Text, r.reply.Err
		}
	}
	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		return next.Text, next.Err
	}
	return s.Default.Text, s.Default.Err
}

// Calls devuelve una copia de los prompts recibidos.
func (s *ScriptedClient) Calls() []Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Prompt, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *ScriptedClient) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
