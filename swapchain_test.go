package vkcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestSelectSurfaceFormatUndefinedSentinel(t *testing.T) {
	formats := []vk.SurfaceFormat{{Format: vk.FormatUndefined}}
	f, err := selectSurfaceFormat(formats, nil)
	assert.NoError(t, err)
	assert.Equal(t, vk.FormatB8g8r8a8Unorm, f.Format)
}

func TestSelectSurfaceFormatHonoursPreference(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	prefs := []SurfaceFormatPreference{
		{Format: uint32(vk.FormatB8g8r8a8Srgb), ColorSpace: uint32(vk.ColorSpaceSrgbNonlinear)},
	}
	f, err := selectSurfaceFormat(formats, prefs)
	assert.NoError(t, err)
	assert.Equal(t, vk.FormatB8g8r8a8Srgb, f.Format)
}

func TestSelectSurfaceFormatFallsBackToFirst(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	f, err := selectSurfaceFormat(formats, []SurfaceFormatPreference{{Format: 9999}})
	assert.NoError(t, err)
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, f.Format)
}

func TestSelectSurfaceFormatNoneAvailable(t *testing.T) {
	_, err := selectSurfaceFormat(nil, nil)
	assert.ErrorIs(t, err, ErrSwapchainNoFormat)
}

func TestSelectPresentModePrefersMailboxWithoutVsync(t *testing.T) {
	available := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}
	mode := selectPresentMode(available, nil, false)
	assert.Equal(t, vk.PresentModeMailbox, mode)
}

func TestSelectPresentModeFallsBackToFifoWithVsync(t *testing.T) {
	available := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}
	mode := selectPresentMode(available, nil, true)
	assert.Equal(t, vk.PresentModeFifo, mode)
}

func TestSelectPresentModeHonoursExplicitPreference(t *testing.T) {
	available := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}
	prefs := []PresentModePreference{PresentModePreference(vk.PresentModeImmediate)}
	mode := selectPresentMode(available, prefs, true)
	assert.Equal(t, vk.PresentModeImmediate, mode)
}

func TestChooseImageCountClampsToRange(t *testing.T) {
	caps := vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 4}
	assert.Equal(t, uint32(2), chooseImageCount(caps, 1))
	assert.Equal(t, uint32(4), chooseImageCount(caps, 10))
	assert.Equal(t, uint32(3), chooseImageCount(caps, 3))
}

func TestChooseImageCountUnboundedMax(t *testing.T) {
	caps := vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 0}
	assert.Equal(t, uint32(100), chooseImageCount(caps, 100))
}

func TestChooseExtentUsesCurrentExtentWhenFixed(t *testing.T) {
	caps := vk.SurfaceCapabilities{CurrentExtent: vk.Extent2D{Width: 800, Height: 600}}
	extent := chooseExtent(caps, 1920, 1080)
	assert.Equal(t, uint32(800), extent.Width)
	assert.Equal(t, uint32(600), extent.Height)
}

func TestChooseExtentClampsFallbackWhenUndefined(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 100, Height: 100},
		MaxImageExtent: vk.Extent2D{Width: 1000, Height: 1000},
	}
	extent := chooseExtent(caps, 50, 5000)
	assert.Equal(t, uint32(100), extent.Width)
	assert.Equal(t, uint32(1000), extent.Height)
}
