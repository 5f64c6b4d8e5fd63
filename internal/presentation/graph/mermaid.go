package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/freelingo/internal/runtime"
	"github.com/aretw0/freelingo/pkg/domain"
)

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedStages []domain.Stage
	CurrentStage  domain.Stage
}

// OverlayOf builds the overlay of a finished or running state.
// A run the router ended is shown as standing on END.
func OverlayOf(state *domain.WorkflowState) *GraphOverlay {
	if state == nil {
		return nil
	}
	overlay := &GraphOverlay{
		VisitedStages: append([]domain.Stage(nil), state.StateTransitions...),
		CurrentStage:  state.CurrentStage,
	}
	if state.NextStage == domain.StageEnd {
		overlay.CurrentStage = domain.StageEnd
	}
	return overlay
}

// GenerateMermaid produces a Mermaid flowchart from the compiled edges.
// It applies semantic styling:
// - Entry stage: ((Circle))
// - REFEREE: {Decision}
// - END: ([Stadium])
// - Default: [Rectangle]
// Conditional edges are dotted and labelled with the verdicts that take them.
// Visit counts and Visited/Current styles come from the overlay, if provided.
func GenerateMermaid(edges []runtime.Edge, entry domain.Stage, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	visits := map[domain.Stage]int{}
	if overlay != nil {
		for _, s := range overlay.VisitedStages {
			visits[s]++
		}
	}

	seen := map[domain.Stage]bool{}
	declare := func(s domain.Stage) {
		if seen[s] {
			return
		}
		seen[s] = true

		opener, closer := "[", "]"
		switch {
		case s == entry:
			opener, closer = "((", "))"
		case s == domain.StageReferee:
			opener, closer = "{", "}"
		case s == domain.StageEnd:
			opener, closer = "([", "])"
		}

		label := string(s)
		if n := visits[s]; n > 1 {
			label = fmt.Sprintf("%s ×%d", s, n)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", sanitizeMermaidID(s), opener, label, closer))
	}

	for _, e := range edges {
		declare(e.From)
		declare(e.To)
	}

	for _, e := range edges {
		arrow := "-->"
		if e.Conditional {
			arrow = "-.->"
			if e.Label != "" {
				// Escape double quotes in the label for Mermaid
				arrow = fmt.Sprintf("-. \"%s\" .->", strings.ReplaceAll(e.Label, "\"", "'"))
			}
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", sanitizeMermaidID(e.From), arrow, sanitizeMermaidID(e.To)))
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		styled := make(map[domain.Stage]bool)
		for _, s := range overlay.VisitedStages {
			if !styled[s] && seen[s] {
				styled[s] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", sanitizeMermaidID(s)))
			}
		}

		if overlay.CurrentStage != "" && seen[overlay.CurrentStage] {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentStage)))
		}
	}

	return sb.String()
}

// Mermaid keywords such as "end" cannot be node ids.
func sanitizeMermaidID(s domain.Stage) string {
	id := strings.ToLower(string(s))
	id = strings.NewReplacer(".", "_", "-", "_", "/", "_", " ", "_").Replace(id)
	return "stage_" + id
}
