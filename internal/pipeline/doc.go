// Package pipeline sends a conversation to the generation API with bounded
// retries and returns a single terminal Result.
//
// Each request gets a request id. Every attempt runs under its own deadline
// and is logged and, when a recorder is configured, written to the request
// journal. Failures are classified by llm.Classify: transient errors are
// retried with the configured backoff until the attempt budget is spent,
// permanent errors and caller cancellation stop immediately. A terminal
// failure leaves a diagnostics file with the full request so the prompt can be
// replayed by hand; a success optionally leaves an interaction transcript.
//
// Send never panics and never returns a bare error: callers branch on
// Result.OK and read Result.Err for the cause.
package pipeline
