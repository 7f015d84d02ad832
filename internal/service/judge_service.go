package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"persona-probe/internal/domain"
	"persona-probe/internal/llm"
)

// Judgment es la clasificacion del juez para un texto generado.
type Judgment struct {
	Level        domain.Level
	Score        *int
	Clues        string
	Reasoning    string
	DecisionType string
	Raw          string
	Retried      bool
}

// JudgeService clasifica textos libres en un nivel del rasgo usando un modelo juez.
type JudgeService struct {
	gateway llm.Gateway
	prompts *PromptBuilder
	cfg     llm.GenerateConfig
	logger  *zap.Logger
}

func NewJudgeService(gateway llm.Gateway, prompts *PromptBuilder, cfg llm.GenerateConfig, logger *zap.Logger) *JudgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JudgeService{gateway: gateway, prompts: prompts, cfg: cfg, logger: logger}
}

// Classify pide al juez el nivel del rasgo. Si la respuesta no se puede
// interpretar reintenta una sola vez con un prompt estricto; si sigue sin
// interpretarse devuelve ErrUnclassifiable. Los errores del gateway se devuelven tal cual.
func (s *JudgeService) Classify(ctx context.Context, text string, trait domain.Trait, question string) (Judgment, error) {
	if !trait.Valid() {
		return Judgment{}, fmt.Errorf("%w: %q", domain.ErrUnknownTrait, trait)
	}
	prompt, err := s.prompts.Judge(trait, question, text)
	if err != nil {
		return Judgment{}, err
	}

	raw, err := s.gateway.Generate(ctx, prompt, s.cfg)
	if err != nil {
		return Judgment{}, fmt.Errorf("judge call: %w", err)
	}

	j, verdict := parseJudgeReply(raw)
	switch verdict {
	case judgeParsed:
		return j, nil
	case judgeNondistinguishable:
		return j, fmt.Errorf("%w: judge answered %s", domain.ErrUnclassifiable, j.DecisionType)
	}

	s.logger.Debug("judge reply unparseable, retrying with strict prompt",
		zap.String("trait", string(trait)),
		zap.String("raw", truncateText(raw, 200)),
	)

	strict, err := s.prompts.StrictJudge(trait, question, text)
	if err != nil {
		return j, err
	}
	retryRaw, err := s.gateway.Generate(ctx, strict, s.cfg)
	if err != nil {
		return j, fmt.Errorf("judge strict retry: %w", err)
	}

	rj, verdict := parseJudgeReply(retryRaw)
	rj.Retried = true
	rj.Raw = raw + "\n---\n" + retryRaw
	if rj.Clues == "" {
		rj.Clues = j.Clues
	}
	if rj.Reasoning == "" {
		rj.Reasoning = j.Reasoning
	}
	if verdict == judgeParsed {
		return rj, nil
	}
	return rj, fmt.Errorf("%w: %q", domain.ErrUnclassifiable, truncateText(retryRaw, 80))
}

type judgeVerdict int

const (
	judgeParsed judgeVerdict = iota
	judgeNondistinguishable
	judgeUnparseable
)

// parseJudgeReply primero busca un objeto JSON (level, luego score) y, si no hay
// JSON, interpreta el texto como una etiqueta.
func parseJudgeReply(raw string) (Judgment, judgeVerdict) {
	j := Judgment{Raw: raw}
	cleaned := stripReplyFences(raw)

	obj := firstJSONObject(cleaned)
	if obj == "" {
		obj = firstJSONObject(raw)
	}
	if obj == "" {
		lvl, ok := ParseLevelLabel(cleaned)
		if !ok {
			return j, judgeUnparseable
		}
		j.Level = lvl
		return j, judgeParsed
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return j, judgeUnparseable
	}

	j.Clues = stringifyField(lookupField(fields, "clues"))
	j.Reasoning = stringifyField(lookupField(fields, "reasoning"))
	j.DecisionType = stringifyField(lookupField(fields, "decision type", "decision_type", "decisiontype"))

	levelField := stringifyField(lookupField(fields, "level"))
	scoreField := lookupField(fields, "score")

	if isNondistinguishable(j.DecisionType) || isNondistinguishable(levelField) || isNondistinguishable(stringifyField(scoreField)) {
		if j.DecisionType == "" {
			j.DecisionType = "Nondistinguishable"
		}
		return j, judgeNondistinguishable
	}

	if score, ok := judgeScore(scoreField); ok {
		j.Score = &score
	}

	if levelField != "" {
		if lvl, ok := ParseLevelLabel(levelField); ok {
			j.Level = lvl
			return j, judgeParsed
		}
	}
	if j.Score != nil {
		if lvl, err := domain.LevelForJudgeScore(*j.Score); err == nil {
			j.Level = lvl
			return j, judgeParsed
		}
	}
	return j, judgeUnparseable
}

var levelLabels = map[string]domain.Level{
	"low":    domain.LevelLow,
	"medium": domain.LevelMedium,
	"high":   domain.LevelHigh,
}

// Una etiqueta precedida por una negacion ("not high") no cuenta como respuesta.
var negations = map[string]bool{"not": true, "no": true, "never": true, "nor": true, "hardly": true}

// ParseLevelLabel interpreta una etiqueta de nivel en texto libre. Acepta
// coincidencia exacta o por prefijo y luego busca palabras completas; debe
// aparecer exactamente una etiqueta distinta y ninguna negada.
func ParseLevelLabel(text string) (domain.Level, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.Trim(s, " \t\r\n\"'`.,;:!?*")
	if s == "" {
		return domain.LevelUnknown, false
	}
	if lvl, ok := levelLabels[s]; ok {
		return lvl, true
	}

	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	found := domain.LevelUnknown
	for i, w := range words {
		lvl, ok := levelLabels[w]
		if !ok {
			continue
		}
		if i > 0 && negations[words[i-1]] {
			return domain.LevelUnknown, false
		}
		if found != domain.LevelUnknown && found != lvl {
			return domain.LevelUnknown, false
		}
		found = lvl
	}
	return found, found != domain.LevelUnknown
}

func lookupField(fields map[string]any, names ...string) any {
	for _, n := range names {
		if v, ok := fields[n]; ok {
			return v
		}
	}
	for k, v := range fields {
		norm := strings.ToLower(strings.TrimSpace(k))
		for _, n := range names {
			if norm == n {
				return v
			}
		}
	}
	return nil
}

func stringifyField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := stringifyField(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func judgeScore(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func isNondistinguishable(s string) bool {
	return strings.Contains(strings.ToLower(s), "nondistinguishable")
}

// IsUnclassifiable reporta si err viene de una clasificacion imposible.
func IsUnclassifiable(err error) bool {
	return errors.Is(err, domain.ErrUnclassifiable)
}
