package service

import (
	"fmt"
	"strings"

	"persona-probe/internal/domain"
	"persona-probe/internal/llm"
	"persona-probe/internal/taxonomy"
)

// PromptBuilder arma los prompts de generacion, cuestionario y juez a partir de la taxonomia.
type PromptBuilder struct {
	tax *taxonomy.Taxonomy
}

func NewPromptBuilder(tax *taxonomy.Taxonomy) *PromptBuilder {
	return &PromptBuilder{tax: tax}
}

// Generation pide responder una pregunta abierta con el rasgo puntuado 1-5.
func (b *PromptBuilder) Generation(trait domain.Trait, score int, question string) (llm.Prompt, error) {
	def, ok := b.tax.Trait(trait)
	if !ok {
		return llm.Prompt{}, fmt.Errorf("%w: %q", domain.ErrUnknownTrait, trait)
	}
	if score < 1 || score > 5 {
		return llm.Prompt{}, fmt.Errorf("prompt score %d out of range 1-5", score)
	}

	var sb strings.Builder
	sb.WriteString("TASK: Answer the QUESTION according to your PERSONALITY. Use INSTRUCTION. ")
	sb.WriteString("Use at most 5 sentences. Do not mention your personality traits in the text. ")
	sb.WriteString("Type only the answer, without the information about your personality score.\n")
	sb.WriteString("PERSONALITY:\n")
	fmt.Fprintf(&sb, "- Your personality trait %q is rated as %d.\n", string(trait), score)
	sb.WriteString("INSTRUCTION:\n")
	sb.WriteString("- The personality trait is rated from 1 to 5. 1 is the lowest score and 5 is the highest score.\n")
	fmt.Fprintf(&sb, "- %s\n", def.Generation.Low)
	fmt.Fprintf(&sb, "- %s", def.Generation.High)

	return llm.Prompt{
		System: sb.String(),
		User:   "QUESTION:\n```\n" + strings.TrimSpace(question) + "\n```",
	}, nil
}

// QuestionnaireSystem describe el perfil completo y las opciones Likert permitidas.
func (b *PromptBuilder) QuestionnaireSystem(profile domain.TraitProfile) (string, error) {
	if err := profile.Validate(); err != nil {
		return "", err
	}

	var persona strings.Builder
	for i, trait := range domain.AllTraits() {
		def, ok := b.tax.Trait(trait)
		if !ok {
			return "", fmt.Errorf("%w: %q", domain.ErrUnknownTrait, trait)
		}
		lvl := profile[trait]
		if i > 0 {
			persona.WriteString("\n")
		}
		fmt.Fprintf(&persona, "Act as a person with a %s score in %s. %s", lvl, trait, def.Generation.For(lvl))
	}

	options := b.tax.LikertOptions()
	phrases := make([]string, 0, len(options))
	var list strings.Builder
	for _, o := range options {
		fmt.Fprintf(&list, "- %s\n", o.Phrase)
		phrases = append(phrases, fmt.Sprintf("%q", o.Phrase))
	}

	var sb strings.Builder
	sb.WriteString("TASK: Indicate your level of agreement or disagreement with the statement in the CHARACTERISTICS according to your PERSONALITY. ")
	sb.WriteString("Use only the PROVIDED OPTIONS.\n")
	sb.WriteString("PERSONALITY:\n```\n")
	sb.WriteString(persona.String())
	sb.WriteString("\n```\n")
	sb.WriteString("PROVIDED OPTIONS:\n")
	sb.WriteString(list.String())
	fmt.Fprintf(&sb, "Provide your output only from the constant list [%s] without explanation.", strings.Join(phrases, ", "))
	return sb.String(), nil
}

// QuestionnaireItem arma el prompt de un item puntual.
func (b *PromptBuilder) QuestionnaireItem(system string, item domain.QuestionnaireItem) llm.Prompt {
	return llm.Prompt{
		System: system,
		User:   "CHARACTERISTICS:\n```\n" + item.Statement + "\n```",
	}
}

// Judge pide al juez clasificar el texto en bajo, medio o alto, con pistas y razonamiento.
func (b *PromptBuilder) Judge(trait domain.Trait, question, text string) (llm.Prompt, error) {
	def, ok := b.tax.Trait(trait)
	if !ok {
		return llm.Prompt{}, fmt.Errorf("%w: %q", domain.ErrUnknownTrait, trait)
	}
	name := string(trait)
	cls := def.Classification

	var sb strings.Builder
	fmt.Fprintf(&sb, "You will be provided with answers to questions. Detect the level of %s for the author of the INPUT: low, medium or high, or Nondistinguishable. Use INSTRUCTION.\n", name)
	sb.WriteString("TASK:\n")
	fmt.Fprintf(&sb, "1. First, list CLUES (i.e., keywords, phrases, contextual information, semantic relations, semantic meaning, tones, references) that support the level determination of %s of INPUT.\n", name)
	sb.WriteString("2. Second, deduce the diagnostic REASONING process from premises (i.e., clues, input) that supports the INPUT level determination (Limit the number of words to 130).\n")
	fmt.Fprintf(&sb, "3. Third, based on clues, reasoning and input, determine the level of %s for the author of INPUT (low, medium or high) and the matching score from the list [-2, -1, 0, 1, 2].\n", name)
	sb.WriteString("4. Mark what made you choose this level as decision type: Explicit signs, Implicit signs, Intuition, Nondistinguishable.\n")
	sb.WriteString("5. Provide your output in JSON format with the keys: level, score, clues, reasoning, decision type. PROVIDE ONLY JSON.\n")
	sb.WriteString("INSTRUCTION:\n")
	fmt.Fprintf(&sb, "- Definition: %s\n", def.Definition)
	fmt.Fprintf(&sb, "- High level of %s (score 1 or 2): '%s'\n", name, cls.High)
	fmt.Fprintf(&sb, "- Medium level of %s (score 0): '%s'\n", name, cls.Medium)
	fmt.Fprintf(&sb, "- Low level of %s (score -1 or -2): '%s'\n", name, cls.Low)
	sb.WriteString("- Explicit signs: The person mentions obvious facts that are connected with this trait level.\n")
	sb.WriteString("- Implicit signs: The person mentions facts that may imply them having this trait level.\n")
	sb.WriteString("- Intuition: My intuition tells that the person has this trait level.\n")
	sb.WriteString("- Nondistinguishable: I can't tell what trait level the person has.\n")
	sb.WriteString("- If the text does not contain substantial, significant, and convincing indicators of the trait level, then use Nondistinguishable.\n")
	sb.WriteString("- Choose something other than Nondistinguishable if you have a high degree of confidence in the answer.")

	return llm.Prompt{
		System: sb.String(),
		User:   judgeInput(question, text),
	}, nil
}

// StrictJudge es el reintento cuando la primera respuesta del juez no se pudo interpretar.
func (b *PromptBuilder) StrictJudge(trait domain.Trait, question, text string) (llm.Prompt, error) {
	def, ok := b.tax.Trait(trait)
	if !ok {
		return llm.Prompt{}, fmt.Errorf("%w: %q", domain.ErrUnknownTrait, trait)
	}
	cls := def.Classification

	var sb strings.Builder
	fmt.Fprintf(&sb, "Classify the level of %s of the author of the INPUT.\n", trait)
	fmt.Fprintf(&sb, "- low: %s\n", cls.Low)
	fmt.Fprintf(&sb, "- medium: %s\n", cls.Medium)
	fmt.Fprintf(&sb, "- high: %s\n", cls.High)
	sb.WriteString("Answer with exactly one word: low, medium or high. Do not add anything else.")

	return llm.Prompt{
		System: sb.String(),
		User:   judgeInput(question, text),
	}, nil
}

func judgeInput(question, text string) string {
	return "Question: " + strings.TrimSpace(question) + " INPUT: " + strings.TrimSpace(text)
}
