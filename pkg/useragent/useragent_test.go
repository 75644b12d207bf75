package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	iosSafariUA    = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
	twitterIOSUA   = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148 Twitter for iPhone/10.34"
	twitterDroidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Mobile Safari/537.36 TwitterAndroid"
	facebookUA     = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148 [FBAN/FBIOS;FBAV/440.0.0.30.108]"
	instagramUA    = "Mozilla/5.0 (Linux; Android 13; SM-S911B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36 Instagram 312.0.0.32.112 Android"
	weChatUA       = "Mozilla/5.0 (Linux; Android 12) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/86.0 Mobile Safari/537.36 MicroMessenger/8.0.40"
	lineUA         = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148 Safari Line/13.20.0"
	androidUA      = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Mobile Safari/537.36"
	desktopUA      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		ua       string
		platform Platform
		app      App
		display  string
		reliable bool
	}{
		{"iOS Safari", iosSafariUA, PlatformIOS, AppNone, "iOS Safari", true},
		{"Twitter iOS", twitterIOSUA, PlatformIOS, AppTwitter, "Twitter iOS", true},
		{"Twitter Android", twitterDroidUA, PlatformAndroid, AppTwitter, "Twitter", true},
		{"Facebook wins over Messenger", facebookUA, PlatformIOS, AppFacebook, "Facebook", true},
		{"Instagram", instagramUA, PlatformAndroid, AppInstagram, "Instagram", true},
		{"WeChat", weChatUA, PlatformAndroid, AppWeChat, "WeChat", true},
		{"Line", lineUA, PlatformIOS, AppLine, "Line", true},
		{"Android browser", androidUA, PlatformAndroid, AppNone, "Android Browser", false},
		{"Desktop Linux is not Line", desktopUA, PlatformDesktop, AppNone, "Desktop Browser", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := Detect(tc.ua)

			assert.Equal(t, tc.platform, env.Platform)
			assert.Equal(t, tc.app, env.App)
			assert.Equal(t, tc.display, env.DisplayName())
			assert.Equal(t, tc.reliable, env.NeedsReliableTransport())
			assert.False(t, env.Programmatic)
		})
	}
}

func TestDetect_Programmatic(t *testing.T) {
	for _, ua := range []string{"", "   ", "curl/8.4.0", "Go-http-client/1.1", "python-requests/2.31"} {
		env := Detect(ua)

		assert.True(t, env.Programmatic, ua)
		assert.Equal(t, PlatformUnknown, env.Platform, ua)
		assert.Equal(t, "Programmatic", env.DisplayName(), ua)
		assert.False(t, env.NeedsReliableTransport(), ua)
	}
}

func TestEnvironment_IsTwitterIOS(t *testing.T) {
	assert.True(t, Detect(twitterIOSUA).IsTwitterIOS())
	assert.False(t, Detect(twitterDroidUA).IsTwitterIOS())
	assert.False(t, Detect(iosSafariUA).IsTwitterIOS())
}
