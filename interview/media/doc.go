// Package media adapts the speech providers to the interview engine's
// Transcriber and Synthesizer collaborators. Each adapter runs its provider
// behind a retry loop and a circuit breaker.
package media
