package vkcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func familyProps(flags ...vk.QueueFlagBits) []vk.QueueFamilyProperties {
	out := make([]vk.QueueFamilyProperties, len(flags))
	for i, f := range flags {
		out[i] = vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(f)}
	}
	return out
}

func TestSelectQueueFamiliesCombined(t *testing.T) {
	props := familyProps(vk.QueueGraphicsBit | vk.QueueTransferBit)
	present := func(uint32) bool { return true }

	qf, ok := selectQueueFamilies(props, present, true, false)
	assert.True(t, ok)
	assert.Equal(t, uint32(0), qf.graphics)
	assert.False(t, qf.separatePresent(), "present should ride the graphics family when it can present")
	assert.False(t, qf.separateTransfer(), "transfer should ride the graphics family without dedicatedTransfer")
}

func TestSelectQueueFamiliesSeparatePresent(t *testing.T) {
	props := familyProps(vk.QueueComputeBit, vk.QueueGraphicsBit)
	present := func(idx uint32) bool { return idx == 0 }

	qf, ok := selectQueueFamilies(props, present, true, false)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), qf.graphics)
	assert.True(t, qf.separatePresent())
	assert.Equal(t, uint32(0), qf.present)
}

func TestSelectQueueFamiliesDedicatedTransfer(t *testing.T) {
	props := familyProps(
		vk.QueueGraphicsBit|vk.QueueComputeBit,
		vk.QueueTransferBit,
	)
	qf, ok := selectQueueFamilies(props, nil, false, true)
	assert.True(t, ok)
	assert.True(t, qf.separateTransfer())
	assert.Equal(t, uint32(1), qf.transfer)
}

func TestSelectQueueFamiliesNoGraphics(t *testing.T) {
	props := familyProps(vk.QueueComputeBit, vk.QueueTransferBit)
	_, ok := selectQueueFamilies(props, nil, false, false)
	assert.False(t, ok)
}

func TestQueueCreateInfosDedupesFamilies(t *testing.T) {
	qf := queueFamilies{graphics: 0, present: 0, transfer: 0, hasPresent: true, hasTransfer: true}
	infos := queueCreateInfos(qf)
	assert.Len(t, infos, 1)
	assert.Equal(t, uint32(0), infos[0].QueueFamilyIndex)
}

func TestQueueCreateInfosSeparateFamilies(t *testing.T) {
	qf := queueFamilies{graphics: 0, present: 1, transfer: 2, hasPresent: true, hasTransfer: true}
	infos := queueCreateInfos(qf)
	assert.Len(t, infos, 3)
}
