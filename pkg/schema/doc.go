// Package schema decodes and checks the closed output schemas produced by stage evaluators.
//
// Evaluators answer with loosely typed JSON. Decode maps such a document onto a
// typed Go struct and rejects any field the struct does not declare, so a
// response either matches its schema exactly or fails with a typed error.
// Checker accumulates field-level rule violations for the Validate methods of
// the domain output types.
//
// Basic usage:
//
//	var out domain.PlanOutput
//	if err := schema.Decode([]byte(raw), &out); err != nil {
//	    // unknown fields, wrong types or a non-object document
//	}
//	if err := out.Validate(); err != nil {
//	    // required fields missing or blank
//	}
package schema
