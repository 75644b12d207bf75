package models

import "time"

// Platform values recorded for each signup.
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformDesktop = "desktop"
	PlatformUnknown = "unknown"
)

// WaitlistEntry is one captured signup row. Rows are appended; only the cleanup sweep
// deletes rows or rewrites emails.
type WaitlistEntry struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Email           string     `gorm:"not null;index;size:255" json:"email"`
	SubmittedAt     time.Time  `gorm:"not null;index" json:"submitted_at"`
	ClientTimestamp *time.Time `json:"client_timestamp,omitempty"`
	Source          string     `gorm:"not null;default:landing_page;size:64;index" json:"source"`
	Status          string     `gorm:"not null;default:Active;size:32" json:"status"`
	UserAgent       string     `gorm:"size:512" json:"user_agent"`
	Platform        string     `gorm:"not null;default:unknown;size:16" json:"platform"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
}

// SourceCount is a per-source aggregate row.
type SourceCount struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}
