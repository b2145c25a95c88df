package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestParseOTELConfig_Defaults(t *testing.T) {
	cfg, err := ParseOTELConfig(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "gazeshm", cfg.ServiceName)
	assert.Empty(t, cfg.GetEndpoint())
	assert.False(t, cfg.Enabled())
	assert.Nil(t, cfg.ParseResourceAttributes())
}

func TestOTELConfig_GetEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		want    string
	}{
		{"exporter", map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4318"}, "collector:4318"},
		{"traces wins", map[string]string{
			"OTEL_EXPORTER_OTLP_ENDPOINT":        "collector:4318",
			"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT": "traces:4318",
		}, "traces:4318"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseOTELConfig(tt.environ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.GetEndpoint())
			assert.True(t, cfg.Enabled())
		})
	}
}

func TestOTELConfig_ParseResourceAttributes(t *testing.T) {
	cfg := &OTELConfig{ResourceAttributes: "deployment.environment=lab, host.name = rig-2,broken,=nokey"}

	assert.Equal(t, []attribute.KeyValue{
		attribute.String("deployment.environment", "lab"),
		attribute.String("host.name", "rig-2"),
	}, cfg.ParseResourceAttributes())
}
