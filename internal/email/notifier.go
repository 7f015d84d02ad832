package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"persona-probe/internal/domain"
)

// RunNotifier manda el resumen de cada corrida por correo.
type RunNotifier struct {
	sender Sender
	to     string
	logger *zap.Logger
}

func NewRunNotifier(sender Sender, to string, logger *zap.Logger) *RunNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunNotifier{sender: sender, to: to, logger: logger}
}

func (n *RunNotifier) NotifyRunFinished(ctx context.Context, summary domain.RunSummary) error {
	if n.sender == nil || IsDisabled(n.sender) || strings.TrimSpace(n.to) == "" {
		n.logger.Debug("run notification skipped", zap.String("run_id", summary.RunID))
		return nil
	}
	subject := fmt.Sprintf("[persona-probe] run %s %s", summary.RunID, summary.Status)
	if err := n.sender.Send(ctx, n.to, subject, SummaryBody(summary)); err != nil {
		return fmt.Errorf("send run summary: %w", err)
	}
	n.logger.Info("run notification sent", zap.String("run_id", summary.RunID), zap.String("to", n.to))
	return nil
}

// SummaryBody arma el texto del correo.
func SummaryBody(s domain.RunSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run:             %s\n", s.RunID)
	fmt.Fprintf(&sb, "Status:          %s\n", s.Status)
	fmt.Fprintf(&sb, "Started:         %s\n", s.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Finished:        %s\n", s.FinishedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Trials:          %d (%d generation, %d questionnaire)\n", s.TotalTrials, s.GenerationTrials, s.QuestionnaireTrials)
	fmt.Fprintf(&sb, "Failures:        %d (%.1f%%)\n", s.Failures, 100*s.FailureRatio())
	fmt.Fprintf(&sb, "Unclassifiable:  %d\n", s.Unclassifiable)
	fmt.Fprintf(&sb, "Unparsed answers: %d\n", s.UnparsedAnswers)
	if len(s.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range s.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
	}
	return sb.String()
}
