// Package llm implements ports.Evaluator on top of a langchaingo chat model.
//
// Each stage sends a system prompt and the JSON-encoded stage bundle, asks
// for a JSON answer and decodes it strictly with package schema. Answers that
// cannot be decoded are reported with domain.ErrMalformedOutput so the engine
// substitutes the stage fallback.
package llm
