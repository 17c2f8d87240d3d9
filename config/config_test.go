package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hacksstv/sstv"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hacksstv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	p, err := cfg.Protocol()
	require.NoError(t, err)
	assert.Equal(t, sstv.Robot36, p)
	assert.Equal(t, 200*time.Millisecond, cfg.TailSilence())
	assert.InDelta(t, 2e6, cfg.SDR.SampleRate(), 0)
}

func TestFlags(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]string{
		"-mode", "pd120", "-sdr", "-freq", "433.5", "-gain", "10",
		"-audio", "none", "-test", "-callsign", "N0CALL", "-metrics", ":9100",
	}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "pd120", cfg.Mode)
	assert.True(t, cfg.SDR.Enabled)
	assert.InDelta(t, 433.5, cfg.SDR.FrequencyMHz, 0)
	assert.Equal(t, 10, cfg.SDR.Gain)
	assert.Equal(t, "none", cfg.Audio.Backend)
	assert.True(t, cfg.Source.Test)
	assert.Equal(t, "N0CALL", cfg.Source.Callsign)
	assert.Equal(t, ":9100", cfg.Metrics.Listen)
}

func TestFileThenFlags(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `
mode: martin1
tail_silence_ms: 50
audio:
  backend: pcm
  pcm_path: /tmp/out.raw
sdr:
  enabled: true
  frequency_mhz: 144.5
  gain: 12
mqtt:
  broker: tcp://broker.local:1883
logging:
  level: debug
`)
	cfg, err := Parse([]string{"-config", path, "-gain", "40", "-mode", "scottie1"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "scottie1", cfg.Mode, "flag wins")
	assert.Equal(t, 40, cfg.SDR.Gain, "flag wins")
	assert.InDelta(t, 144.5, cfg.SDR.FrequencyMHz, 0, "file wins over default")
	assert.Equal(t, 50, cfg.TailSilenceMs)
	assert.Equal(t, "pcm", cfg.Audio.Backend)
	assert.Equal(t, "/tmp/out.raw", cfg.Audio.PCMPath)
	assert.Equal(t, "tcp://broker.local:1883", cfg.MQTT.Broker)
	assert.Equal(t, "hacksstv/status", cfg.MQTT.Topic, "default kept")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.InDelta(t, 5000, cfg.SDR.DeviationHz, 0, "default kept")
}

func TestValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "mode", args: []string{"-mode", "martin9"}, want: `mode: unknown mode "martin9"`},
		{name: "backend", args: []string{"-audio", "alsa"}, want: "audio.backend must be one of oto malgo pcm none"},
		{name: "pcm path", args: []string{"-audio", "pcm"}, want: "audio.pcm_path is required"},
		{name: "gain", args: []string{"-gain", "60"}, want: "sdr.gain must be at most 47"},
		{name: "rate", args: []string{"-rate", "100"}, want: "sample_rate must be at least 8000"},
		{name: "level", args: []string{"-log-level", "trace"}, want: "logging.level must be one of"},
	}
	for _, tt := range tests {
		_, err := Parse(tt.args, io.Discard)
		require.Error(t, err, tt.name)
		assert.Contains(t, err.Error(), tt.want, tt.name)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	_, err := Parse([]string{"-nope"}, io.Discard)
	require.Error(t, err)

	_, err = Parse([]string{"stray"}, io.Discard)
	require.Error(t, err)

	_, err = Parse([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, io.Discard)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Parse([]string{"-config", writeFile(t, "mode: [unterminated")}, io.Discard)
	require.Error(t, err)
}
