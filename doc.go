/*
Package freelingo runs the end-of-session agent chain of a language tutor.

A completed conversation is turned into pedagogical feedback, a practice plan
and new vocabulary, then checked for internal consistency by a referee stage.
The referee can send the run back to an earlier stage; per-stage retry budgets
and a referee visit budget guarantee that every run terminates.

# Concept

The chain is a fixed graph FEEDBACK → PLANNER → WORDS → REFEREE. Each stage
calls one method of a ports.Evaluator (an LLM client, a rule-based offline
evaluator or a test double) and validates the output. A failed call never
fails the run: the stage substitutes a neutral fallback and the run goes on.
The referee verdict is mapped to the next stage by a routing table and a
circuit breaker in package policy.

# Usage

	package main

	import (
		"context"
		"fmt"

		"github.com/aretw0/freelingo"
		"github.com/aretw0/freelingo/pkg/adapters/memory"
		"github.com/aretw0/freelingo/pkg/domain"
	)

	func main() {
		pipeline := freelingo.New(memory.NewEvaluator())

		history := []domain.Message{
			{Role: domain.RoleAI, Text: "Bonjour ! Comment ça va ?"},
			{Role: domain.RoleLearner, Text: "bien"},
		}
		snapshot := domain.SessionSnapshot{UserID: "u-1", DialogueHistory: history}

		state := pipeline.Run(context.Background(), "u-1", snapshot, domain.BuildTranscript(history))
		res := freelingo.ResultOf(state)
		if !res.Available {
			fmt.Println(res.Notice)
			return
		}
		fmt.Println(state.LastPlan.SessionObjectives)
	}

With a session manager attached (WithSessions), EndSession reads the
snapshot and builds the transcript itself.
*/
package freelingo
