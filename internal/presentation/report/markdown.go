// Package report renders a finished run as a Markdown document.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/freelingo/pkg/domain"
)

// Markdown renders the outputs of a run. A non-empty notice is shown as a
// quote under the title, for runs whose chain was not validated.
func Markdown(state *domain.WorkflowState, notice string) string {
	var sb strings.Builder
	sb.WriteString("# Session report\n\n")
	if state == nil {
		fmt.Fprintf(&sb, "> %s\n", orDefault(notice, "no run"))
		return sb.String()
	}

	fmt.Fprintf(&sb, "_Status: %s · run %s · %d stage calls · %s_\n\n",
		state.Status, state.RunID, state.Invocations(), state.Duration().Round(time.Millisecond))
	if notice != "" {
		fmt.Fprintf(&sb, "> %s\n\n", notice)
	}

	writeFeedback(&sb, state.LastFeedback)
	writePlan(&sb, state.LastPlan)
	writeWords(&sb, state.LastWords)
	writeReferee(&sb, state)
	return sb.String()
}

func writeFeedback(sb *strings.Builder, f *domain.FeedbackOutput) {
	if f == nil {
		return
	}
	sb.WriteString("## Feedback\n\n")
	writeList(sb, "Strengths", f.Strengths)

	if len(f.Mistakes) > 0 {
		sb.WriteString("### Mistakes\n\n")
		sb.WriteString("| Priority | Kind | You said | Hint |\n")
		sb.WriteString("|---|---|---|---|\n")
		mistakes := append([]domain.Mistake(nil), f.Mistakes...)
		sort.SliceStable(mistakes, func(i, j int) bool { return mistakes[i].Priority < mistakes[j].Priority })
		for _, m := range mistakes {
			hint := m.FixHint
			if m.FixHintTranslation != "" {
				hint += " (" + m.FixHintTranslation + ")"
			}
			fmt.Fprintf(sb, "| %d | %s | %s | %s |\n", m.Priority, m.Kind, cell(m.Evidence), cell(hint))
		}
		sb.WriteString("\n")
	}

	if len(f.ConversationExamples) > 0 {
		sb.WriteString("### Well used\n\n")
		for _, ex := range f.ConversationExamples {
			fmt.Fprintf(sb, "- **%s**: %s%s\n", ex.Word, ex.Sentence, translation(ex.Translation))
		}
		sb.WriteString("\n")
	}
}

func writePlan(sb *strings.Builder, p *domain.PlanOutput) {
	if p == nil {
		return
	}
	sb.WriteString("## Next session\n\n")
	writeList(sb, "Objectives", p.SessionObjectives)
	writeList(sb, "Vocabulary gaps", p.VocabGaps)
}

func writeWords(sb *strings.Builder, w *domain.WordSuggestionOutput) {
	if w == nil || len(w.NewWords) == 0 {
		return
	}
	sb.WriteString("## New words\n\n")
	for _, word := range w.NewWords {
		usage, ok := w.Usages[word]
		if !ok {
			fmt.Fprintf(sb, "- **%s**\n", word)
			continue
		}
		fmt.Fprintf(sb, "- **%s**: %s%s\n", word, usage.Sentence, translation(usage.Translation))
	}
	sb.WriteString("\n")
}

func writeReferee(sb *strings.Builder, state *domain.WorkflowState) {
	r := state.LastRefereeDecision
	if r == nil {
		return
	}
	sb.WriteString("## Referee\n\n")
	fmt.Fprintf(sb, "%s\n\n", r.Rationale.ReasoningSummary)
	writeList(sb, "Violations", r.Violations)
	if state.TerminationReason != "" {
		fmt.Fprintf(sb, "Stopped: %s\n", state.TerminationReason)
	}
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "### %s\n\n", title)
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", it)
	}
	sb.WriteString("\n")
}

func translation(t string) string {
	if t == "" {
		return ""
	}
	return " _(" + t + ")_"
}

// cell keeps table rows on one line.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.Join(strings.Fields(s), " ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
