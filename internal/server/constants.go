// Package server provides the HTTP and WebSocket control surface
package server

import "time"

// Server configuration constants
const (
	// Sliding-window rate limit per WebSocket connection
	RateLimitMessages = 30
	RateLimitWindow   = time.Second

	// Default number of history records returned by /api/history
	DefaultHistoryLimit = 20
)
