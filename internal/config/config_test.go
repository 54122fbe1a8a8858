package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTuning(t *testing.T) {
	tuning := DefaultTuning()
	assert.Equal(t, 804.67, tuning.MinTripDistanceMeters)
	assert.Equal(t, 2.0, tuning.MovingSpeed)
	assert.Equal(t, 5*time.Minute, tuning.AutoStopAfter)
	assert.Equal(t, 60*time.Second, tuning.MonitorInterval)
	assert.Equal(t, 10*time.Second, tuning.FixFreshness)
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "drive_passport", cfg.MongoDB)
	assert.Equal(t, "drive/fixes", cfg.MQTTTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AUTO_STOP_AFTER", "2m")
	t.Setenv("MOVING_SPEED_MPS", "1.5")
	t.Setenv("PORT", "9999")

	cfg := Load()
	assert.Equal(t, 2*time.Minute, cfg.Tuning.AutoStopAfter)
	assert.Equal(t, 1.5, cfg.Tuning.MovingSpeed)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
}

func TestLoad_BadEnvFallsBack(t *testing.T) {
	t.Setenv("AUTO_STOP_AFTER", "not-a-duration")
	t.Setenv("MOVING_SPEED_MPS", "fast")

	cfg := Load()
	assert.Equal(t, 5*time.Minute, cfg.Tuning.AutoStopAfter)
	assert.Equal(t, 2.0, cfg.Tuning.MovingSpeed)
}
