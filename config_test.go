package vkcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Validation)
	assert.True(t, cfg.VSync)
	assert.Equal(t, 2, cfg.InFlightFrames)
}

func TestInFlightFramesClampsRange(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, 1},
		{-5, 1},
		{1, 1},
		{2, 2},
		{3, 3},
		{4, 3},
		{100, 3},
	}
	for _, tc := range cases {
		cfg := Config{InFlightFrames: tc.in}
		assert.Equal(t, tc.want, cfg.inFlightFrames(), "in=%d", tc.in)
	}
}

func TestEnvOverridesGetSet(t *testing.T) {
	overrides := NewEnvOverrides()
	_, ok := overrides.Get("validation")
	assert.False(t, ok)

	overrides.Set("validation", "on")
	v, ok := overrides.Get("validation")
	assert.True(t, ok)
	assert.Equal(t, "on", v)
}

func TestValidationOverrideOn(t *testing.T) {
	overrides := NewEnvOverrides()
	overrides.Set("validation", "on")
	cfg := overrides.ValidationOverride(Config{Validation: false})
	assert.True(t, cfg.Validation)
}

func TestValidationOverrideOff(t *testing.T) {
	overrides := NewEnvOverrides()
	overrides.Set("validation", "off")
	cfg := overrides.ValidationOverride(Config{Validation: true})
	assert.False(t, cfg.Validation)
}

func TestValidationOverrideUnsetLeavesConfigAlone(t *testing.T) {
	overrides := NewEnvOverrides()
	cfg := overrides.ValidationOverride(Config{Validation: true})
	assert.True(t, cfg.Validation)
}

func TestValidationOverrideIgnoresUnknownValue(t *testing.T) {
	overrides := NewEnvOverrides()
	overrides.Set("validation", "maybe")
	cfg := overrides.ValidationOverride(Config{Validation: true})
	assert.True(t, cfg.Validation)
}
