package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/policy"
)

// ConstructionError is recorded when the graph cannot be compiled.
// The engine recovers from it by running the degraded manual path.
type ConstructionError struct {
	Err error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("engine construction failed: %v", e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// Edge is a transition of the compiled graph.
type Edge struct {
	From        domain.Stage
	To          domain.Stage
	Label       string
	Conditional bool
}

// Graph is the compiled agent chain.
type Graph struct {
	entry  domain.Stage
	next   map[domain.Stage]domain.Stage
	router *policy.Router
	edges  []Edge
}

// Compile validates the routing table and budgets and wires the fixed chain.
func Compile(rules []policy.Rule, budgets policy.Budgets) (*Graph, error) {
	breaker, err := policy.NewCircuitBreaker(budgets)
	if err != nil {
		return nil, err
	}
	router, err := policy.NewRouter(rules, breaker)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		entry:  domain.ChainOrder[0],
		next:   make(map[domain.Stage]domain.Stage, len(domain.ChainOrder)-1),
		router: router,
	}
	for i := 0; i < len(domain.ChainOrder)-1; i++ {
		from, to := domain.ChainOrder[i], domain.ChainOrder[i+1]
		g.next[from] = to
		g.edges = append(g.edges, Edge{From: from, To: to})
	}
	g.edges = append(g.edges, routeEdges(router.Rules())...)
	return g, nil
}

// routeEdges merges the rules that share a target into one labelled edge.
func routeEdges(rules []policy.Rule) []Edge {
	labels := make(map[domain.Stage][]string)
	var order []domain.Stage
	add := func(to domain.Stage, label string) {
		if _, ok := labels[to]; !ok {
			order = append(order, to)
		}
		labels[to] = append(labels[to], label)
	}
	for _, r := range rules {
		add(r.Target, r.Violation)
	}
	add(policy.UnmappedTarget, "unmapped")
	add(domain.StageEnd, "is_valid or breaker")

	edges := make([]Edge, 0, len(order))
	for _, to := range order {
		edges = append(edges, Edge{
			From:        domain.StageReferee,
			To:          to,
			Label:       strings.Join(labels[to], ", "),
			Conditional: true,
		})
	}
	return edges
}

// Entry is the first stage of every run.
func (g *Graph) Entry() domain.Stage {
	return g.entry
}

// Next returns the unconditional successor of s. REFEREE has none.
func (g *Graph) Next(s domain.Stage) (domain.Stage, bool) {
	to, ok := g.next[s]
	return to, ok
}

// Router returns the conditional router attached to REFEREE.
func (g *Graph) Router() *policy.Router {
	return g.router
}

// Edges lists every transition, unconditional ones first.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}
