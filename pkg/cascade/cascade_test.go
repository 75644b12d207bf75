package cascade

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/akeren/waitlist-landing/pkg/useragent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method      string
	Path        string
	Email       string
	Source      string
	ContentType string
	Accept      string
	UserAgent   string
}

type fakeWaitlist struct {
	mu       sync.Mutex
	requests []recordedRequest

	captureStatus int
	pixelStatus   int
	captureDelay  <-chan struct{}
}

func (f *fakeWaitlist) record(r *http.Request, email, source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		Email:       email,
		Source:      source,
		ContentType: r.Header.Get("Content-Type"),
		Accept:      r.Header.Get("Accept"),
		UserAgent:   r.UserAgent(),
	})
}

func (f *fakeWaitlist) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newFakeWaitlist(t *testing.T, f *fakeWaitlist) *httptest.Server {
	t.Helper()
	if f.captureStatus == 0 {
		f.captureStatus = http.StatusOK
	}
	if f.pixelStatus == 0 {
		f.pixelStatus = http.StatusOK
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/waitlist", func(w http.ResponseWriter, r *http.Request) {
		if f.captureDelay != nil {
			<-f.captureDelay
		}
		if r.Header.Get("Content-Type") == "application/json" {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.record(r, body["email"], body["source"])
		} else {
			_ = r.ParseForm()
			f.record(r, r.PostForm.Get("email"), r.PostForm.Get("source"))
		}
		w.WriteHeader(f.captureStatus)
	})
	mux.HandleFunc("/v1/waitlist/pixel", func(w http.ResponseWriter, r *http.Request) {
		f.record(r, r.URL.Query().Get("email"), r.URL.Query().Get("source"))
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(f.pixelStatus)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string, optimistic bool) *Client {
	t.Helper()
	cfg := DefaultConfig(baseURL)
	cfg.Optimistic = optimistic
	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client
}

func fastStandardPlan() Plan {
	return Plan{
		Name: PlanStandard,
		Steps: []Step{
			{Transport: TransportForm, Source: SourceStandard, Deadline: time.Second, FireAndForget: true},
			{Transport: TransportImage, Source: SourceFallback, Deadline: time.Second, ErrorGrace: 10 * time.Millisecond, FireAndForget: true},
		},
	}
}

func TestSubmit_StandardFormConfirmed(t *testing.T) {
	fake := &fakeWaitlist{}
	srv := newFakeWaitlist(t, fake)
	client := newTestClient(t, srv.URL, true)

	result, err := client.SubmitWithPlan(context.Background(), fastStandardPlan(), "  Jane@Example.org ")
	require.NoError(t, err)

	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	assert.Equal(t, "Jane@Example.org", result.Email)
	require.Len(t, result.Attempts, 1)
	assert.Equal(t, TransportForm, result.Decisive().Transport)

	reqs := fake.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "text/html", reqs[0].Accept)
	assert.Equal(t, SourceStandard, reqs[0].Source)
	assert.Equal(t, "waitlist-cli/1.0", reqs[0].UserAgent)
}

func TestSubmit_FormServerErrorFallsBackToImage(t *testing.T) {
	fake := &fakeWaitlist{captureStatus: http.StatusInternalServerError}
	srv := newFakeWaitlist(t, fake)
	client := newTestClient(t, srv.URL, true)

	result, err := client.SubmitWithPlan(context.Background(), fastStandardPlan(), "jane@example.org")
	require.NoError(t, err)

	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	require.Len(t, result.Attempts, 2)
	assert.Equal(t, OutcomeFailed, result.Attempts[0].Outcome)
	assert.Equal(t, http.StatusInternalServerError, result.Attempts[0].StatusCode)

	reqs := fake.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/v1/waitlist/pixel", reqs[1].Path)
	assert.Equal(t, SourceFallback, reqs[1].Source)
}

func TestSubmit_RejectionStopsTheCascade(t *testing.T) {
	fake := &fakeWaitlist{captureStatus: http.StatusBadRequest}
	srv := newFakeWaitlist(t, fake)
	client := newTestClient(t, srv.URL, true)

	result, err := client.SubmitWithPlan(context.Background(), fastStandardPlan(), "jane@example.org")
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Len(t, result.Attempts, 1)
	assert.Len(t, fake.recorded(), 1)
}

func TestSubmit_OptimisticModeAssumesAfterFinalError(t *testing.T) {
	tests := []struct {
		name       string
		optimistic bool
		want       Outcome
	}{
		{"optimistic", true, OutcomeAssumed},
		{"strict", false, OutcomeFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeWaitlist{captureStatus: http.StatusBadGateway, pixelStatus: http.StatusServiceUnavailable}
			srv := newFakeWaitlist(t, fake)
			client := newTestClient(t, srv.URL, tc.optimistic)

			result, err := client.SubmitWithPlan(context.Background(), fastStandardPlan(), "jane@example.org")
			require.NoError(t, err)

			assert.Equal(t, tc.want, result.Outcome)
			assert.Len(t, result.Attempts, 2)
		})
	}
}

func TestSubmit_FireAndForgetAssumesOnDeadline(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeWaitlist{captureDelay: release}
	srv := newFakeWaitlist(t, fake)
	t.Cleanup(func() { close(release) })
	client := newTestClient(t, srv.URL, false)

	plan := Plan{Name: PlanInApp, Steps: []Step{
		{Transport: TransportBeacon, Source: SourceInApp, Deadline: 20 * time.Millisecond, FireAndForget: true},
	}}

	result, err := client.SubmitWithPlan(context.Background(), plan, "jane@example.org")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAssumed, result.Outcome)

	release <- struct{}{}
	client.Wait()

	reqs := fake.recorded()
	require.Len(t, reqs, 1, "the beacon must still be delivered after the step gave up waiting")
	assert.Equal(t, SourceInApp, reqs[0].Source)
	assert.Equal(t, "application/x-www-form-urlencoded", reqs[0].ContentType)
}

func TestSubmit_RaceFirstConfirmationWins(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeWaitlist{captureDelay: release}
	srv := newFakeWaitlist(t, fake)
	t.Cleanup(func() { close(release) })
	client := newTestClient(t, srv.URL, true)

	plan := Plan{Name: PlanTwitterIOS, Race: true, Steps: []Step{
		{Transport: TransportBeacon, Source: SourceTwitterIOS, Deadline: 5 * time.Second, FireAndForget: true},
		{Transport: TransportImage, Source: SourceTwitterIOSImage, Deadline: 5 * time.Second, FireAndForget: true},
	}}

	started := time.Now()
	result, err := client.SubmitWithPlan(context.Background(), plan, "jane@example.org")
	require.NoError(t, err)

	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	assert.Less(t, time.Since(started), 4*time.Second)
	require.Len(t, result.Attempts, 2)
	assert.Equal(t, OutcomeFailed, result.Attempts[0].Outcome, "the beacon is cancelled once the image confirms")
	assert.Equal(t, OutcomeConfirmed, result.Attempts[1].Outcome)
}

func TestSubmit_ProgrammaticFetchSendsJSON(t *testing.T) {
	fake := &fakeWaitlist{}
	srv := newFakeWaitlist(t, fake)
	client := newTestClient(t, srv.URL, true)

	require.True(t, client.Environment().Programmatic)

	result, err := client.Submit(context.Background(), "jane@example.org")
	require.NoError(t, err)

	assert.Equal(t, PlanProgrammatic, result.Plan)
	assert.Equal(t, OutcomeConfirmed, result.Outcome)

	reqs := fake.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "application/json", reqs[0].ContentType)
	assert.Equal(t, SourceAPI, reqs[0].Source)
}

func TestSubmit_InvalidEmailSendsNothing(t *testing.T) {
	fake := &fakeWaitlist{}
	srv := newFakeWaitlist(t, fake)
	client := newTestClient(t, srv.URL, true)

	for _, email := range []string{"", "   ", "not-an-email", "a@b", "a b@c.d"} {
		_, err := client.Submit(context.Background(), email)
		assert.ErrorIs(t, err, ErrInvalidEmail, email)
	}
	assert.Empty(t, fake.recorded())
}

func TestNewClient_RejectsBadBaseURL(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(&Config{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestPlanFor(t *testing.T) {
	twitterIOS := useragent.Detect("Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) Mobile/15E148 Twitter for iPhone/10.34")
	inApp := useragent.Detect("Mozilla/5.0 (Linux; Android 13) Mobile Safari/537.36 Instagram 312.0.0.32.112 Android")
	iosSafari := useragent.Detect("Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) Version/17.4 Mobile/15E148 Safari/604.1")
	desktop := useragent.Detect("Mozilla/5.0 (Macintosh; Intel Mac OS X 14_3) AppleWebKit/605.1.15 Version/17.3 Safari/605.1.15")

	plan := PlanFor(twitterIOS)
	assert.Equal(t, PlanTwitterIOS, plan.Name)
	assert.True(t, plan.Race)
	assert.Equal(t, SourceTwitterIOS, plan.Steps[0].Source)
	assert.Equal(t, 2500*time.Millisecond, plan.Steps[0].Deadline)
	assert.Equal(t, SourceTwitterIOSImage, plan.Steps[1].Source)
	assert.Equal(t, 1500*time.Millisecond, plan.Steps[1].ErrorGrace)
	assert.Equal(t, 4*time.Second, plan.Steps[1].Deadline)

	plan = PlanFor(inApp)
	assert.Equal(t, PlanInApp, plan.Name)
	assert.False(t, plan.Race)
	assert.Equal(t, []string{SourceInApp, SourceInAppImage}, []string{plan.Steps[0].Source, plan.Steps[1].Source})
	assert.Equal(t, 2*time.Second, plan.Steps[0].Deadline)
	assert.Equal(t, 3*time.Second, plan.Steps[1].Deadline)

	plan = PlanFor(iosSafari)
	assert.Equal(t, PlanIOSSafari, plan.Name)
	assert.Equal(t, TransportBeacon, plan.Steps[0].Transport)
	assert.Equal(t, SourceIOSSafariImage, plan.Steps[1].Source)

	plan = PlanFor(desktop)
	assert.Equal(t, PlanStandard, plan.Name)
	assert.Equal(t, TransportForm, plan.Steps[0].Transport)
	assert.Equal(t, 3500*time.Millisecond, plan.Steps[0].Deadline)
	assert.Equal(t, SourceFallback, plan.Steps[1].Source)

	plan = PlanFor(useragent.Detect("curl/8.4.0"))
	assert.Equal(t, PlanProgrammatic, plan.Name)
	assert.Equal(t, TransportFetch, plan.Steps[0].Transport)
	assert.False(t, plan.Steps[0].FireAndForget)
	assert.Equal(t, SourceErrorFallback, plan.Steps[1].Source)
}
