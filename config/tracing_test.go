package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestParseOTLPEndpoint(t *testing.T) {
	tests := []struct {
		raw      string
		host     string
		path     string
		insecure bool
		wantErr  bool
	}{
		{raw: "http://collector:4318", host: "collector:4318", path: "/v1/traces", insecure: true},
		{raw: "https://otel.example.com/custom/traces", host: "otel.example.com", path: "/custom/traces"},
		{raw: "collector:4318", host: "collector:4318", path: "/v1/traces", insecure: true},
		{raw: "collector:4318/v1/traces", wantErr: true},
		{raw: "grpc://collector:4317", wantErr: true},
		{raw: "http://", wantErr: true},
		{raw: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			host, path, insecure, err := parseOTLPEndpoint(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.insecure, insecure)
		})
	}
}

func TestTracingAttributes(t *testing.T) {
	attrs := tracingAttributes("waitlist-landing", "")
	assert.Len(t, attrs, 2)

	attrs = tracingAttributes("waitlist-landing", "staging")
	assert.Contains(t, attrs, attribute.String("deployment.environment", "staging"))
}

func TestSetupTracing_Disabled(t *testing.T) {
	t.Setenv("OTEL_TRACES_ENABLED", "false")

	shutdown, err := SetupTracing(nil)
	require.NoError(t, err)
	assert.Nil(t, shutdown)
}
