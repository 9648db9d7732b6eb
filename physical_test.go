package vkcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func deviceCandidate(name string, devType vk.PhysicalDeviceType, ext ...string) PhysicalDeviceInfo {
	return PhysicalDeviceInfo{
		Name:       name,
		Properties: vk.PhysicalDeviceProperties{DeviceType: devType},
		QueueProps: familyProps(vk.QueueGraphicsBit),
		Extensions: ext,
	}
}

func TestDeviceScorePrefersDiscrete(t *testing.T) {
	discrete := deviceScore(deviceCandidate("dGPU", vk.PhysicalDeviceTypeDiscreteGpu), "")
	integrated := deviceScore(deviceCandidate("iGPU", vk.PhysicalDeviceTypeIntegratedGpu), "")
	cpu := deviceScore(deviceCandidate("swrast", vk.PhysicalDeviceTypeCpu), "")

	assert.Greater(t, discrete, integrated)
	assert.Greater(t, integrated, cpu)
}

func TestDeviceScorePreferredNameOverridesType(t *testing.T) {
	cand := deviceCandidate("Integrated Graphics", vk.PhysicalDeviceTypeIntegratedGpu)
	score := deviceScore(cand, "Integrated Graphics")
	assert.Greater(t, score, deviceScore(deviceCandidate("Discrete", vk.PhysicalDeviceTypeDiscreteGpu), "Integrated Graphics"))
}

func TestSelectPhysicalDevicePicksHighestScore(t *testing.T) {
	candidates := []PhysicalDeviceInfo{
		deviceCandidate("cpu-fallback", vk.PhysicalDeviceTypeCpu, "VK_KHR_swapchain"),
		deviceCandidate("discrete-0", vk.PhysicalDeviceTypeDiscreteGpu, "VK_KHR_swapchain"),
		deviceCandidate("integrated-0", vk.PhysicalDeviceTypeIntegratedGpu, "VK_KHR_swapchain"),
	}

	best, _, err := selectPhysicalDevice(candidates, []string{"VK_KHR_swapchain"}, "", nil, false, false)
	require.NoError(t, err)
	assert.Equal(t, "discrete-0", best.Name)
}

func TestSelectPhysicalDeviceRejectsMissingExtension(t *testing.T) {
	candidates := []PhysicalDeviceInfo{
		deviceCandidate("discrete-0", vk.PhysicalDeviceTypeDiscreteGpu),
	}
	_, _, err := selectPhysicalDevice(candidates, []string{"VK_KHR_swapchain"}, "", nil, false, false)
	assert.Error(t, err)
}

func TestSelectPhysicalDeviceRejectsNoGraphicsQueue(t *testing.T) {
	cand := deviceCandidate("compute-only", vk.PhysicalDeviceTypeDiscreteGpu)
	cand.QueueProps = familyProps(vk.QueueComputeBit)
	_, _, err := selectPhysicalDevice([]PhysicalDeviceInfo{cand}, nil, "", nil, false, false)
	assert.Error(t, err)
}
