package main

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzor/gazeshm/internal/acquisition"
	"github.com/mrzor/gazeshm/internal/config"
	"github.com/mrzor/gazeshm/internal/device"
	"github.com/mrzor/gazeshm/internal/device/replay"
	"github.com/mrzor/gazeshm/internal/device/sim"
	"github.com/mrzor/gazeshm/internal/device/varjo"
	"github.com/mrzor/gazeshm/internal/shm"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"session", fmt.Errorf("%w: runtime down", device.ErrSessionUnavailable), exitSessionUnavailable},
		{"gaze", fmt.Errorf("%w: busy", device.ErrGazeInitFailed), exitGazeInitFailed},
		{"region", fmt.Errorf("%w: %w", shm.ErrRegionCreateFailed, shm.ErrRegionExists), exitRegionCreateFailed},
		{"publishing", fmt.Errorf("%w: polling gaze data: %w", acquisition.ErrPublishingAborted, device.ErrSessionClosed), exitPublishingAborted},
		{"config", errors.New("provider.kind must be one of"), exitConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestSetupProvider(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, &varjo.Provider{}, setupProvider(cfg))

	cfg.Provider.Varjo.Library = "gazeshm-missing-runtime.dll"
	_, err := device.Open(setupProvider(cfg))
	assert.ErrorIs(t, err, device.ErrSessionUnavailable)
	assert.ErrorContains(t, err, "gazeshm-missing-runtime.dll")

	cfg.Provider.Kind = config.ProviderSim
	assert.IsType(t, &sim.Provider{}, setupProvider(cfg))

	cfg.Provider.Kind = config.ProviderReplay
	cfg.Provider.Replay.Path = "capture.cbor"
	assert.IsType(t, &replay.Provider{}, setupProvider(cfg))
}

func TestSetupMetrics(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	loop := acquisition.New(acquisition.Config{}, sim.New(), nil)

	cfg := config.Default()
	cleanup, err := setupMetrics(cfg, loop, logger)
	require.NoError(t, err)
	cleanup()

	cfg.Metrics.Addr = "127.0.0.1:0"
	cleanup, err = setupMetrics(cfg, loop, logger)
	require.NoError(t, err)
	cleanup()

	cfg.Metrics.Addr = "127.0.0.1:-1"
	_, err = setupMetrics(cfg, loop, logger)
	assert.ErrorContains(t, err, "metrics listener")
}
