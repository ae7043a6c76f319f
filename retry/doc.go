// Package retry provides a generic retry combinator for calls to unreliable
// external services.
//
// Retries are driven by an explicit Policy: a bounded number of attempts, a
// fixed delay between them and a predicate that decides which failures are
// transient. Non-transient failures and exhausted budgets are returned to the
// caller untouched.
package retry
