// Package errors provides custom error types for sonarqube-verify.
//
// Each error type includes a constructor, Error() method, and a type-checking
// helper using errors.As for proper error unwrapping.
//
// # Error Types Overview
//
//	┌───────────────────────────┬─────────────────────────────────────────────┐
//	│ Error Type                │ Description                                 │
//	├───────────────────────────┼─────────────────────────────────────────────┤
//	│ ReadinessTimeoutError     │ Readiness marker not seen before deadline   │
//	│ ServiceFailedError        │ Service logged a start-failure marker       │
//	│ ExpectationMismatchError  │ Live value differs from the fixture value   │
//	│ ResourceNotFoundError     │ Plugin, gate, profile or container missing  │
//	│ UnexpectedStatusError     │ Admin API answered with a refused status    │
//	│ HostPreconditionError     │ Host settings prevent the service to run    │
//	└───────────────────────────┴─────────────────────────────────────────────┘
//
// # ReadinessTimeoutError and ServiceFailedError
//
// Both are returned by the readiness poller. A timeout means the marker never
// appeared (slow startup or a hung service); a failure means the service
// itself reported it could not start. Callers must not treat them alike:
//
//	switch {
//	case errors.IsServiceFailedError(err):
//	    // expected for the secret guard scenario
//	case errors.IsReadinessTimeoutError(err):
//	    // increase --readiness-timeout or inspect the container logs
//	}
//
// # ExpectationMismatchError
//
// Carries the category (plugin, quality gate, quality profile, status), the
// named resource and the expected and actual values:
//
//	plugin "Checkstyle": expected 8.40, got 8.39
//
// # Type Checking Pattern
//
// All error types provide Is* helper functions that use errors.As
// for proper error chain unwrapping:
//
//	wrapped := fmt.Errorf("verify plugins: %w", errors.NewPluginNotFoundError("PMD"))
//	errors.IsResourceNotFoundError(wrapped) // returns true
package errors
