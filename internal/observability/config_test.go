package observability

import (
	"testing"

	"github.com/schoolgle/schoolgle/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(config.Config{Environment: "production"})

	assert.Equal(t, "schoolgle", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "grpc", cfg.OtelExporterProtocol)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigClampsSamplingRatio(t *testing.T) {
	high := LoadConfig(config.Config{Telemetry: config.TelemetryConfig{SamplingRatio: 4}})
	low := LoadConfig(config.Config{Telemetry: config.TelemetryConfig{SamplingRatio: -1}})

	assert.Equal(t, 1.0, high.OtelSamplingRatio)
	assert.Equal(t, 0.0, low.OtelSamplingRatio)
}

func TestDebugFollowsLevelAndEnvironment(t *testing.T) {
	assert.True(t, LoadConfig(config.Config{Environment: "production", Telemetry: config.TelemetryConfig{LogLevel: "DEBUG"}}).Debug())
	assert.True(t, LoadConfig(config.Config{Environment: "local"}).Debug())
	assert.False(t, LoadConfig(config.Config{Environment: "staging"}).Debug())
}
