// Package useragent classifies the browser environment a signup came from.
// In-app web views and iOS Safari drop iframe load events and sometimes the
// page itself mid-request, so the submission cascade picks its transports
// from this classification.
package useragent

import (
	"regexp"
	"strings"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformDesktop Platform = "desktop"
	PlatformUnknown Platform = "unknown"
)

type App string

const (
	AppNone      App = ""
	AppTwitter   App = "twitter"
	AppFacebook  App = "facebook"
	AppMessenger App = "messenger"
	AppInstagram App = "instagram"
	AppLinkedIn  App = "linkedin"
	AppWeChat    App = "wechat"
	AppLine      App = "line"
	AppSnapchat  App = "snapchat"
)

var (
	iosPattern     = regexp.MustCompile(`(?i)iPhone|iPad|iPod`)
	androidPattern = regexp.MustCompile(`(?i)Android`)

	// Ordered by display precedence.
	appPatterns = []struct {
		app     App
		pattern *regexp.Regexp
	}{
		{AppTwitter, regexp.MustCompile(`(?i)Twitter|TwitterAndroid|com\.twitter\.android`)},
		{AppFacebook, regexp.MustCompile(`(?i)FBAN|FBAV|FB_IAB|FB4A|FBIOS`)},
		{AppMessenger, regexp.MustCompile(`(?i)FB_IAB|FBIOS|FB4A|\bMessenger`)},
		{AppInstagram, regexp.MustCompile(`(?i)Instagram`)},
		{AppLinkedIn, regexp.MustCompile(`(?i)LinkedIn`)},
		{AppWeChat, regexp.MustCompile(`(?i)MicroMessenger`)},
		{AppLine, regexp.MustCompile(`(?i)\bLine/`)},
		{AppSnapchat, regexp.MustCompile(`(?i)Snapchat`)},
	}

	// HTTP libraries and command line tools that never run page scripts.
	programmaticPrefixes = []string{
		"curl/", "wget/", "go-http-client/", "python-requests/", "python-urllib/",
		"okhttp/", "axios/", "node-fetch/", "undici", "postmanruntime/", "httpie/",
		"java/", "apache-httpclient/", "libwww-perl/", "waitlist-cli/",
	}
)

var appNames = map[App]string{
	AppTwitter:   "Twitter",
	AppFacebook:  "Facebook",
	AppMessenger: "Facebook Messenger",
	AppInstagram: "Instagram",
	AppLinkedIn:  "LinkedIn",
	AppWeChat:    "WeChat",
	AppLine:      "Line",
	AppSnapchat:  "Snapchat",
}

// Environment is the result of Detect.
type Environment struct {
	UserAgent    string
	Platform     Platform
	App          App
	InApp        bool
	Programmatic bool
}

// Detect never fails; unknown input yields a desktop or programmatic environment.
func Detect(userAgent string) Environment {
	ua := strings.TrimSpace(userAgent)
	env := Environment{UserAgent: ua, Platform: PlatformDesktop}

	if ua == "" || isProgrammatic(ua) {
		env.Platform = PlatformUnknown
		env.Programmatic = true
		return env
	}

	switch {
	case iosPattern.MatchString(ua):
		env.Platform = PlatformIOS
	case androidPattern.MatchString(ua):
		env.Platform = PlatformAndroid
	}

	for _, candidate := range appPatterns {
		if candidate.pattern.MatchString(ua) {
			env.App = candidate.app
			env.InApp = true
			break
		}
	}

	return env
}

func isProgrammatic(ua string) bool {
	lower := strings.ToLower(ua)
	for _, prefix := range programmaticPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func (e Environment) IsIOS() bool {
	return e.Platform == PlatformIOS
}

func (e Environment) IsTwitterIOS() bool {
	return e.App == AppTwitter && e.IsIOS()
}

// NeedsReliableTransport is true for web views and iOS Safari, where the
// iframe form path cannot be trusted.
func (e Environment) NeedsReliableTransport() bool {
	return !e.Programmatic && (e.InApp || e.IsIOS())
}

func (e Environment) DisplayName() string {
	switch {
	case e.Programmatic:
		return "Programmatic"
	case e.IsTwitterIOS():
		return "Twitter iOS"
	case e.InApp:
		return appNames[e.App]
	case e.IsIOS():
		return "iOS Safari"
	case e.Platform == PlatformAndroid:
		return "Android Browser"
	default:
		return "Desktop Browser"
	}
}
