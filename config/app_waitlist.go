package config

import (
	"strings"
	"time"

	"github.com/akeren/waitlist-landing/pkg/constants"
	"github.com/akeren/waitlist-landing/pkg/utils"
)

// WaitlistConfig carries the capture, cleanup and admin settings.
type WaitlistConfig struct {
	AdminAPIKey          string
	DedupeWindow         time.Duration
	RedirectAllowedHosts []string
	TestPatterns         []string
	CleanupSchedule      string
	CleanupTimeout       time.Duration

	// Landing page copy; empty values keep the built-in text.
	Product     string
	Headline    string
	Description string
}

func NewWaitlistConfig() *WaitlistConfig {
	return &WaitlistConfig{
		AdminAPIKey:          sanitizeEnv(utils.GetEnvTrimmed("ADMIN_API_KEY")),
		DedupeWindow:         utils.GetEnvDuration("DEDUPE_WINDOW", constants.DefaultDedupeWindow),
		RedirectAllowedHosts: utils.GetEnvList("REDIRECT_ALLOWED_HOSTS"),
		TestPatterns:         utils.GetEnvList("CLEANUP_TEST_PATTERNS"),
		CleanupSchedule:      strings.TrimSpace(utils.GetEnvTrimmed("CLEANUP_SCHEDULE")),
		CleanupTimeout:       utils.GetEnvDuration("CLEANUP_TIMEOUT", 2*time.Minute),
		Product:              utils.GetEnvTrimmed("LANDING_PRODUCT"),
		Headline:             utils.GetEnvTrimmed("LANDING_HEADLINE"),
		Description:          utils.GetEnvTrimmed("LANDING_DESCRIPTION"),
	}
}
