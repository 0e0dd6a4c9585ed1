// Package resilience retries calls to remote collaborators.
//
// The deployment adapter wraps each submission in Retry so that transient
// failures (connection resets, 5xx answers, timeouts) are retried with
// exponential backoff while permanent ones fail at once:
//
//	sub, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (*Submission, error) {
//	    return d.submit(ctx, req)
//	})
//
// Errors carrying an errors.AppError are retried only when the error is
// marked Retryable. Context cancellation is never retried.
package resilience
