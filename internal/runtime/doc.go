/*
Package runtime executes the freelingo agent chain.

The chain is a fixed graph: FEEDBACK, PLANNER, WORDS and REFEREE run in that
order, then the referee's verdict is routed back to one of the first three
stages or to END. The graph is compiled once per Engine; if compilation fails
the Engine keeps working in a degraded mode that runs each stage once without
routing.

Run never returns an error and never panics. Evaluator failures are replaced
by per-stage fallbacks, and engine faults end the run with a partial state
whose LastRefereeDecision explains what happened.
*/
package runtime
