/*
Package observability provides tools for monitoring the freelingo pipeline.

It includes lifecycle hooks that log or count stage visits, routing decisions
and finished runs, a helper to combine hook sets, and an Evaluator decorator
that wraps every model call in an OpenTelemetry span. NewTracerProvider
exports those spans over OTLP/HTTP.
*/
package observability
