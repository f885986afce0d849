/*
Package errors provides semantic error types for storeflow.

Every failure produced by the request pipeline falls into one of four
families, each with a sentinel that can be checked with the standard
errors.Is() function or the provided helpers:

	ErrConfiguration  // request missing a field its operation needs; never retried
	ErrUsage          // typed entry point called with an untyped operation, or vice versa; never retried
	ErrStore          // the store failed a blocking call; retried, then surfaced
	ErrProcessor      // a caller-supplied result processor failed

Usage:

	records, err := result.Await(ctx, proc.ExecuteRecords(ctx, req)).Get()
	if err != nil {
	    if errors.IsConfiguration(err) {
	        // fix the request, retrying will not help
	    }
	    return err
	}

Store-side validation failures use ValidationError (ErrInvalidInput), and
the registry reports duplicates with AlreadyExistsError.
*/
package errors
