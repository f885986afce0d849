// Package retry wraps a fallible operation in a bounded, sequential retry
// loop built on github.com/cenkalti/backoff/v4.
package retry
