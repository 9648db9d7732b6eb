package vkcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestMemoryUsageHostVisible(t *testing.T) {
	assert.False(t, MemoryUsageGPUOnly.hostVisible())
	assert.True(t, MemoryUsageCPUToGPU.hostVisible())
	assert.True(t, MemoryUsageGPUToCPU.hostVisible())
	assert.True(t, MemoryUsageCPUOnly.hostVisible())
}

func TestMemoryUsagePropertyFlags(t *testing.T) {
	assert.Equal(t, vk.MemoryPropertyFlagBits(vk.MemoryPropertyDeviceLocalBit), MemoryUsageGPUOnly.propertyFlags())

	cpuToGPU := MemoryUsageCPUToGPU.propertyFlags()
	assert.NotZero(t, cpuToGPU&vk.MemoryPropertyFlagBits(vk.MemoryPropertyHostVisibleBit))
	assert.NotZero(t, cpuToGPU&vk.MemoryPropertyFlagBits(vk.MemoryPropertyHostCoherentBit))

	gpuToCPU := MemoryUsageGPUToCPU.propertyFlags()
	assert.NotZero(t, gpuToCPU&vk.MemoryPropertyFlagBits(vk.MemoryPropertyHostVisibleBit))
	assert.NotZero(t, gpuToCPU&vk.MemoryPropertyFlagBits(vk.MemoryPropertyHostCachedBit))

	cpuOnly := MemoryUsageCPUOnly.propertyFlags()
	assert.NotZero(t, cpuOnly&vk.MemoryPropertyFlagBits(vk.MemoryPropertyHostVisibleBit))
	assert.NotZero(t, cpuOnly&vk.MemoryPropertyFlagBits(vk.MemoryPropertyHostCoherentBit))
}
