// Package retry provides a bounded retry combinator for calls to external
// collaborators (the tabular store and the workspace API).
//
// Every attempt runs under its own timeout derived from the caller's context,
// and attempts are spaced with exponential backoff (base * 2^attempt, capped).
// The combinator returns the typed result of the first successful attempt, or
// an *ExhaustedError wrapping the last failure.
//
// # Usage
//
//	rows, err := retry.Do(ctx, policy, func(ctx context.Context) ([]tabular.Row, error) {
//	    return store.SelectPage(ctx, table, "id", 10000, offset)
//	})
//
// Errors wrapped with Permanent stop the loop immediately.
package retry
