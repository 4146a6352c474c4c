// Package llm provides an OpenRouter chat client for transcript analysis.
//
// The analyze stage sends the transcript to a configured model with a
// structured prompt requesting JSON output describing chapter boundaries,
// summaries, and hook lines.
//
// # Configuration
//
// Requires api_key and model, and optionally base_url, referer, title, and
// timeout. When unconfigured, the analyze stage falls back to rule-based
// segmentation.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive JSON response.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default).
// Context cancellation aborts retries immediately.
package llm
