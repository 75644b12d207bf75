package constants

import "time"

// RFC 3339 date-time format string.
// Use this format for all date-time serialization and communication with external systems.
const RFC3339DateTimeFormat = "2006-01-02T15:04:05Z07:00"

// Default rate limiting configuration
const (
	// DefaultRateLimitRequests is the default number of requests allowed per time window
	DefaultRateLimitRequests = 100
	// DefaultRateLimitWindow is the default time window for rate limiting
	DefaultRateLimitWindowMinutes = 1
)

// DefaultRateLimitWindow returns the default rate limit window duration
func DefaultRateLimitWindow() time.Duration {
	return time.Duration(DefaultRateLimitWindowMinutes) * time.Minute
}

// Waitlist defaults shared by the capture API, the sweep and the cascade client.
const (
	DefaultSource      = "landing_page"
	StatusActive       = "Active"
	MaxEmailLength     = 255
	MaxSourceLength    = 64
	MaxUserAgentLength = 512
)

// SheetHeader is the column order of the exported table.
var SheetHeader = []string{"Email", "Timestamp", "Source", "Status"}

// DefaultDedupeWindow collapses racing transports of the same signup.
const DefaultDedupeWindow = 30 * time.Second

// APIVersion is reported by the status endpoint.
const APIVersion = "2.1"
