package vkcore

import "sync"

// Config mirrors the configuration table in spec §6 exactly. Zero-value
// Config is not valid; callers should start from DefaultConfig.
type Config struct {
	// Validation enables VK_LAYER_KHRONOS_validation when available; the
	// Device falls back silently if the layer cannot be found (spec §4.1).
	Validation bool
	// InFlightFrames sizes the frame-sync-slot ring; 1..3.
	InFlightFrames int
	// VSync influences present-mode preference (spec §4.4).
	VSync bool
	// TransferReserve pre-allocates staging buffers at startup, one entry
	// per (size, count) pair.
	TransferReserve []StagingReservation
	// PreferredDeviceName overrides automatic physical-device selection.
	PreferredDeviceName string
	// ColourFormatPreferences overrides the default colour format priority.
	ColourFormatPreferences []SurfaceFormatPreference
	// PresentModePreferences overrides the default present-mode priority.
	PresentModePreferences []PresentModePreference
	// DedicatedTransferQueue requests a separate queue family for
	// transfers when the device exposes one.
	DedicatedTransferQueue bool
	// AppName / EngineName feed VkApplicationInfo.
	AppName    string
	EngineName string
}

// StagingReservation is one (size, count) entry of the transfer-reserve
// option: pre-allocate count staging buffers of size bytes at startup so
// the first wave of uploads never has to grow the pool on the hot path.
type StagingReservation struct {
	Size  uint64
	Count int
}

// SurfaceFormatPreference names a desired (format, colour-space) pair for
// swapchain format selection (spec §4.4).
type SurfaceFormatPreference struct {
	Format     uint32 // vk.Format, kept as uint32 to avoid importing vk in config-only callers
	ColorSpace uint32 // vk.ColorSpace
}

// PresentModePreference names a desired present mode for swapchain
// present-mode selection (spec §4.4).
type PresentModePreference uint32

// DefaultConfig returns the engine's documented defaults: 2 in-flight
// frames, vsync on, validation off.
func DefaultConfig() Config {
	return Config{
		Validation:      false,
		InFlightFrames:  2,
		VSync:           true,
		AppName:         "vkcore-app",
		EngineName:      "vkcore",
		TransferReserve: nil,
	}
}

func (c Config) inFlightFrames() int {
	switch {
	case c.InFlightFrames < 1:
		return 1
	case c.InFlightFrames > 3:
		return 3
	default:
		return c.InFlightFrames
	}
}

// EnvOverrides is a string-keyed store supporting runtime overrides of
// config options as a diagnostic aid (spec §6, "Environment-level
// toggles"), generalised from the teacher's Usage/core_props bag
// (usage.go) down to the one documented use: overriding Validation.
type EnvOverrides struct {
	values sync.Map
}

// NewEnvOverrides returns an empty override store.
func NewEnvOverrides() *EnvOverrides {
	return &EnvOverrides{}
}

// Set stores a named override value.
func (e *EnvOverrides) Set(key, value string) {
	e.values.Store(key, value)
}

// Get returns the stored value for key, if any.
func (e *EnvOverrides) Get(key string) (string, bool) {
	v, ok := e.values.Load(key)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// ValidationOverride applies the "validation" key on top of cfg, returning
// a copy with Validation replaced if the override is set to "on"/"off".
func (e *EnvOverrides) ValidationOverride(cfg Config) Config {
	v, ok := e.Get("validation")
	if !ok {
		return cfg
	}
	switch v {
	case "on":
		cfg.Validation = true
	case "off":
		cfg.Validation = false
	}
	return cfg
}
