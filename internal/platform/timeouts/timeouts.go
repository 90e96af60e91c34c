// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// OutboundHTTP caps a single call to a third-party HTTP API such as the
// SMS gateway.
const OutboundHTTP = 10 * time.Second

// LLMRequest caps a single embedding or generation call.
const LLMRequest = 30 * time.Second

// DBRequest caps a single storage call issued from an HTTP handler.
const DBRequest = 5 * time.Second
