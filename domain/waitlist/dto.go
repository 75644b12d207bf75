package waitlist

import (
	"time"

	"github.com/akeren/waitlist-landing/internal/models"
	"github.com/akeren/waitlist-landing/pkg/constants"
)

// CaptureRequest is bound from a JSON body, a urlencoded form or the pixel query string.
// Email format is checked by the service so every transport gets the same messages.
type CaptureRequest struct {
	Email     string `json:"email" form:"email" binding:"max=255"`
	Source    string `json:"source" form:"source" binding:"omitempty,max=64,printascii"`
	Timestamp string `json:"timestamp" form:"timestamp" binding:"omitempty,max=64"`
	Redirect  string `json:"-" form:"redirect" binding:"omitempty,max=2048"`
}

// CaptureCommand is the transport-neutral input to Capture.
type CaptureCommand struct {
	Email     string
	Source    string
	Timestamp string
	UserAgent string
}

func (r *CaptureRequest) ToCommand(userAgent string) CaptureCommand {
	return CaptureCommand{
		Email:     r.Email,
		Source:    r.Source,
		Timestamp: r.Timestamp,
		UserAgent: userAgent,
	}
}

type CaptureResponse struct {
	ID           uint   `json:"id,omitempty"`
	Email        string `json:"email"`
	Source       string `json:"source"`
	Status       string `json:"status"`
	Platform     string `json:"platform"`
	Browser      string `json:"browser"`
	SubmittedAt  string `json:"submitted_at"`
	Deduplicated bool   `json:"deduplicated"`
}

type WaitlistEntryResponse struct {
	ID              uint   `json:"id"`
	Email           string `json:"email"`
	Timestamp       string `json:"timestamp"`
	ClientTimestamp string `json:"client_timestamp,omitempty"`
	Source          string `json:"source"`
	Status          string `json:"status"`
	Platform        string `json:"platform"`
	UserAgent       string `json:"user_agent,omitempty"`
	CreatedAt       string `json:"created_at"`
}

type ListEntriesResponse struct {
	Entries []WaitlistEntryResponse `json:"entries"`
	Total   int64                   `json:"total"`
	Limit   int                     `json:"limit"`
	Offset  int                     `json:"offset"`
}

type StatsResponse struct {
	Total    int64                `json:"total"`
	BySource []models.SourceCount `json:"by_source"`
}

type StatusResponse struct {
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp"`
	Status    string   `json:"status"`
	Version   string   `json:"version"`
	Methods   []string `json:"methods"`
}

type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ========================================
// Mappers
// ========================================

func ToWaitlistEntryResponse(entry *models.WaitlistEntry) WaitlistEntryResponse {
	if entry == nil {
		return WaitlistEntryResponse{}
	}

	response := WaitlistEntryResponse{
		ID:        entry.ID,
		Email:     entry.Email,
		Timestamp: formatTime(entry.SubmittedAt),
		Source:    entry.Source,
		Status:    entry.Status,
		Platform:  entry.Platform,
		UserAgent: entry.UserAgent,
		CreatedAt: formatTime(entry.CreatedAt),
	}
	if entry.ClientTimestamp != nil {
		response.ClientTimestamp = formatTime(*entry.ClientTimestamp)
	}

	return response
}

func ToWaitlistEntryResponses(entries []*models.WaitlistEntry) []WaitlistEntryResponse {
	responses := make([]WaitlistEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, ToWaitlistEntryResponse(entry))
	}
	return responses
}

func formatTime(t time.Time) string {
	return t.UTC().Format(constants.RFC3339DateTimeFormat)
}
