package telemetry

import (
	"context"
	"testing"

	"canister/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	tr, err := New(config.TelemetryConfig{Enabled: false, ServiceName: "artifactd-test"}, zerolog.Nop())
	require.NoError(t, err)

	// Stop on the noop provider must be a harmless no-op.
	assert.NoError(t, tr.Stop(context.Background()))
}

func TestNew_UnsupportedProtocolDegrades(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "carrier-pigeon")

	tr, err := New(config.TelemetryConfig{Enabled: true, ServiceName: "artifactd-test"}, zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, tr.Stop(context.Background()))
}

func TestGetSampler(t *testing.T) {
	tests := []struct {
		name    string
		sampler string
		arg     string
		want    string
	}{
		{"default", "", "", "ParentBased"},
		{"always on", "always_on", "", "AlwaysOnSampler"},
		{"always off", "always_off", "", "AlwaysOffSampler"},
		{"ratio", "traceidratio", "0.5", "TraceIDRatioBased"},
		{"parent based ratio", "parentbased_traceidratio", "0.25", "ParentBased"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_TRACES_SAMPLER", tt.sampler)
			t.Setenv("OTEL_TRACES_SAMPLER_ARG", tt.arg)

			s := getSampler()
			assert.Contains(t, s.Description(), tt.want)
		})
	}
}
