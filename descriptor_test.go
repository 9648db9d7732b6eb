package vkcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestTextureSlotsPadGrows(t *testing.T) {
	filler := vk.ImageView(7)
	slots := NewTextureSlots(vk.Sampler(1), filler)

	out := slots.Pad([]vk.DescriptorImageInfo{{ImageView: vk.ImageView(100)}})
	assert.Len(t, out, 1)
	assert.Equal(t, vk.ImageView(100), out[0].ImageView)

	out = slots.Pad([]vk.DescriptorImageInfo{
		{ImageView: vk.ImageView(100)},
		{ImageView: vk.ImageView(200)},
		{ImageView: vk.ImageView(300)},
	})
	assert.Len(t, out, 3)
}

func TestTextureSlotsPadNeverShrinks(t *testing.T) {
	filler := vk.ImageView(7)
	slots := NewTextureSlots(vk.Sampler(1), filler)

	slots.Pad(make([]vk.DescriptorImageInfo, 4))

	out := slots.Pad([]vk.DescriptorImageInfo{{ImageView: vk.ImageView(42)}})
	assert.Len(t, out, 4)
	assert.Equal(t, vk.ImageView(42), out[0].ImageView)
	for _, info := range out[1:] {
		assert.Equal(t, filler, info.ImageView)
	}
}
