// Package httpretry executes outbound HTTP requests with bounded retries.
//
// Each call to Client.Execute owns two cancellation scopes: the caller's context,
// which bounds the whole operation and turns into ErrAborted when it fires, and a
// per-attempt timeout derived from it, which only cancels the in-flight attempt and
// lets the next one proceed. Statuses 429, 500, 502, 503 and 504 and transport
// failures are retried with exponential backoff plus jitter, or after the server's
// numeric Retry-After hint when one is given. A 404 is never retried since it
// indicates a wrong model or endpoint rather than a temporary condition.
package httpretry
