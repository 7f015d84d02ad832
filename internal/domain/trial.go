package domain

import "time"

// Mode identifica el tipo de experimento que produjo un resultado.
type Mode string

const (
	ModeGeneration    Mode = "generation"
	ModeQuestionnaire Mode = "questionnaire"
)

// TrialStatus marca el resultado de una llamada o de una clasificacion.
type TrialStatus string

const (
	StatusOK             TrialStatus = "ok"
	StatusFailed         TrialStatus = "failed"
	StatusUnparsed       TrialStatus = "unparsed"
	StatusUnclassifiable TrialStatus = "unclassifiable"
)

// GenerationTrial es una generacion libre bajo un puntaje de rasgo. Inmutable una vez producida.
type GenerationTrial struct {
	ID            string      `json:"id"`
	RunID         string      `json:"run_id"`
	Seq           int         `json:"seq"`
	Model         string      `json:"model"`
	Trait         Trait       `json:"trait"`
	PromptScore   int         `json:"prompt_score"`
	Level         Level       `json:"level"`
	QuestionIndex int         `json:"question_index"`
	Question      string      `json:"question"`
	Repeat        int         `json:"repeat"`
	Text          string      `json:"text"`
	Status        TrialStatus `json:"status"`
	Error         string      `json:"error,omitempty"`
	StartedAt     time.Time   `json:"started_at"`
	FinishedAt    time.Time   `json:"finished_at"`
}

func (t GenerationTrial) Failed() bool { return t.Status != StatusOK }

// ItemAnswer es la respuesta del modelo a un item del cuestionario.
type ItemAnswer struct {
	ItemNumber int         `json:"item_number"`
	Raw        string      `json:"raw"`
	Value      int         `json:"value"` // 1-5; 0 si no hubo valor valido
	Status     TrialStatus `json:"status"`
	Error      string      `json:"error,omitempty"`
}

// QuestionnaireTrial es una pasada completa del BFI-44 bajo un perfil de rasgos.
type QuestionnaireTrial struct {
	ID         string       `json:"id"`
	RunID      string       `json:"run_id"`
	Seq        int          `json:"seq"`
	Model      string       `json:"model"`
	Trait      Trait        `json:"trait"`
	Level      Level        `json:"level"`
	Profile    TraitProfile `json:"profile"`
	Answers    []ItemAnswer `json:"answers"`
	Status     TrialStatus  `json:"status"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

func (t QuestionnaireTrial) Failed() bool { return t.Status != StatusOK }

// CountAnswers devuelve cuantas respuestas tienen el estado dado.
func (t QuestionnaireTrial) CountAnswers(status TrialStatus) int {
	n := 0
	for _, a := range t.Answers {
		if a.Status == status {
			n++
		}
	}
	return n
}

// LabeledResult es la unidad que consume el motor de analisis. Append-only.
type LabeledResult struct {
	Mode          Mode        `json:"mode"`
	TrialID       string      `json:"trial_id"`
	Model         string      `json:"model"`
	Trait         Trait       `json:"trait"`
	PromptedLevel Level       `json:"prompted_level"`
	PromptScore   int         `json:"prompt_score,omitempty"`
	DetectedLevel Level       `json:"detected_level"`
	Score         *float64    `json:"score,omitempty"`
	Text          string      `json:"text,omitempty"`
	Status        TrialStatus `json:"status"`
	Error         string      `json:"error,omitempty"`

	JudgeClues        string `json:"judge_clues,omitempty"`
	JudgeReasoning    string `json:"judge_reasoning,omitempty"`
	JudgeDecisionType string `json:"judge_decision_type,omitempty"`
	JudgeRaw          string `json:"judge_raw,omitempty"`
}

func (r LabeledResult) Classified() bool {
	return r.Status == StatusOK && r.DetectedLevel.Valid() && r.PromptedLevel.Valid()
}

// RunStatus es el estado final de una corrida.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunDegraded  RunStatus = "degraded"
	RunAborted   RunStatus = "aborted"
)

// RunSummary es lo que ve el usuario al terminar una corrida.
type RunSummary struct {
	RunID               string    `json:"run_id"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
	Status              RunStatus `json:"status"`
	TotalTrials         int       `json:"total_trials"`
	Failures            int       `json:"failures"`
	Unclassifiable      int       `json:"unclassifiable"`
	UnparsedAnswers     int       `json:"unparsed_answers"`
	GenerationTrials    int       `json:"generation_trials"`
	QuestionnaireTrials int       `json:"questionnaire_trials"`
	Warnings            []string  `json:"warnings,omitempty"`
}

// FailureRatio devuelve fallas / total, 0 si no hubo trials.
func (s RunSummary) FailureRatio() float64 {
	if s.TotalTrials == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.TotalTrials)
}
