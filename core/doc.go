// Package core implements the resilient integration layer between the
// test-case generation frontend and a conversational agent backend.
//
// The package is organized around a small set of cooperating pieces:
//
//   - Classify maps raw failures to an ErrorClass taxonomy.
//   - RetryPolicy computes retry eligibility and backoff delays.
//   - CircuitBreaker gates calls to an unhealthy upstream target.
//   - ModeSelector tracks the live/fallback operating mode per target.
//   - StreamProcessor reassembles newline-delimited event records from a
//     streaming response body into typed StreamEvents.
//   - Orchestrator combines all of the above into one call path that
//     returns the same result shape whether the upstream answered or the
//     local fallback responder did.
//
// CircuitBreaker and ModeSelector are the only shared mutable state; both
// are safe for concurrent use. Everything else is created per call.
package core
