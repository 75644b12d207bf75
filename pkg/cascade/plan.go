package cascade

import (
	"time"

	"github.com/akeren/waitlist-landing/pkg/useragent"
)

type Transport string

const (
	// TransportBeacon posts the form body and does not wait for the response.
	TransportBeacon Transport = "beacon"
	// TransportImage requests the 1x1 pixel with the signup in the query string.
	TransportImage Transport = "image"
	// TransportForm posts the form the way a hidden iframe target would.
	TransportForm Transport = "form"
	// TransportFetch posts JSON and requires a response.
	TransportFetch Transport = "fetch"
)

// Step is one transport attempt.
type Step struct {
	Transport Transport
	Source    string
	// Deadline bounds how long the step waits for a response.
	Deadline time.Duration
	// ErrorGrace is waited out before an optimistic step reports assumed after an error.
	ErrorGrace time.Duration
	// FireAndForget steps report assumed when the deadline passes without a
	// negative signal; the request keeps running in the background.
	FireAndForget bool
}

type Plan struct {
	Name  string
	Steps []Step
	// Race starts every step at once and lets the first confirmation win.
	Race bool
}

const (
	PlanTwitterIOS   = "twitter_ios"
	PlanInApp        = "in_app"
	PlanIOSSafari    = "ios_safari"
	PlanStandard     = "standard"
	PlanProgrammatic = "programmatic"
)

// Acquisition source tags sent by each plan.
const (
	SourceTwitterIOS      = "landing_page_twitter_ios"
	SourceTwitterIOSImage = "landing_page_twitter_ios_image"
	SourceInApp           = "landing_page_inapp"
	SourceInAppImage      = "landing_page_image"
	SourceIOSSafari       = "landing_page_ios_safari"
	SourceIOSSafariImage  = "landing_page_ios_image"
	SourceStandard        = "landing_page"
	SourceFallback        = "landing_page_fallback"
	SourceErrorFallback   = "landing_page_error_fallback"
	SourceAPI             = "api"
)

// PlanFor picks the transports for env.
func PlanFor(env useragent.Environment) Plan {
	switch {
	case env.Programmatic:
		return Plan{
			Name: PlanProgrammatic,
			Steps: []Step{
				{Transport: TransportFetch, Source: SourceAPI, Deadline: 5 * time.Second},
				{Transport: TransportImage, Source: SourceErrorFallback, Deadline: 3 * time.Second, ErrorGrace: 2 * time.Second, FireAndForget: true},
			},
		}
	case env.IsTwitterIOS():
		return Plan{
			Name: PlanTwitterIOS,
			Race: true,
			Steps: []Step{
				{Transport: TransportBeacon, Source: SourceTwitterIOS, Deadline: 2500 * time.Millisecond, FireAndForget: true},
				{Transport: TransportImage, Source: SourceTwitterIOSImage, Deadline: 4 * time.Second, ErrorGrace: 1500 * time.Millisecond, FireAndForget: true},
			},
		}
	case env.InApp:
		return reliablePlan(PlanInApp, SourceInApp, SourceInAppImage)
	case env.IsIOS():
		return reliablePlan(PlanIOSSafari, SourceIOSSafari, SourceIOSSafariImage)
	default:
		return Plan{
			Name: PlanStandard,
			Steps: []Step{
				{Transport: TransportForm, Source: SourceStandard, Deadline: 3500 * time.Millisecond, FireAndForget: true},
				{Transport: TransportImage, Source: SourceFallback, Deadline: 3 * time.Second, ErrorGrace: 2 * time.Second, FireAndForget: true},
			},
		}
	}
}

func reliablePlan(name, beaconSource, imageSource string) Plan {
	return Plan{
		Name: name,
		Steps: []Step{
			{Transport: TransportBeacon, Source: beaconSource, Deadline: 2 * time.Second, FireAndForget: true},
			{Transport: TransportImage, Source: imageSource, Deadline: 3 * time.Second, ErrorGrace: 2 * time.Second, FireAndForget: true},
		},
	}
}
