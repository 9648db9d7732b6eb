package vkcore

import vk "github.com/vulkan-go/vulkan"

// queueFamilies is the outcome of scanning a physical device's queue
// family properties for graphics/present/transfer capability, generalising
// the teacher's CoreQueue (queue.go) from "first graphics-capable family
// wins" into the combined-or-separable model spec §3 describes: "single
// combined graphics+present+transfer queue (or up to three if separable)".
type queueFamilies struct {
	graphics uint32
	present  uint32
	transfer uint32

	hasPresent  bool
	hasTransfer bool
}

func (q queueFamilies) separatePresent() bool  { return q.hasPresent && q.present != q.graphics }
func (q queueFamilies) separateTransfer() bool { return q.hasTransfer && q.transfer != q.graphics }

// surfaceSupport abstracts vk.GetPhysicalDeviceSurfaceSupport so
// selectQueueFamilies is a pure function over plain data and is unit
// testable without a live surface/instance.
type surfaceSupport func(familyIndex uint32) bool

// selectQueueFamilies walks props (already Deref()'d) looking for:
//   - a family supporting graphics (always required)
//   - a family supporting present, preferring one that is also the
//     graphics family (combined queue, the common case)
//   - a dedicated transfer-only family when dedicatedTransfer is true and
//     one exists; otherwise transfer rides on the graphics family
//
// It returns ok=false only if no graphics-capable family exists at all.
func selectQueueFamilies(props []vk.QueueFamilyProperties, supportsPresent surfaceSupport, needsPresent, dedicatedTransfer bool) (queueFamilies, bool) {
	var out queueFamilies
	graphicsFound := false

	for i, fam := range props {
		idx := uint32(i)
		isGraphics := fam.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		if isGraphics && !graphicsFound {
			out.graphics = idx
			graphicsFound = true
		}
	}
	if !graphicsFound {
		return out, false
	}

	if needsPresent {
		// Prefer the graphics family if it can present; only look for a
		// separate present family when it cannot.
		if supportsPresent != nil && supportsPresent(out.graphics) {
			out.present = out.graphics
			out.hasPresent = true
		} else if supportsPresent != nil {
			for i := range props {
				idx := uint32(i)
				if supportsPresent(idx) {
					out.present = idx
					out.hasPresent = true
					break
				}
			}
		}
	}

	if dedicatedTransfer {
		for i, fam := range props {
			idx := uint32(i)
			isTransfer := fam.QueueFlags&vk.QueueFlags(vk.QueueTransferBit) != 0
			isGraphics := fam.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
			isCompute := fam.QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0
			// A transfer-only family (no graphics/compute bit) makes the
			// best dedicated DMA engine candidate when one exists.
			if isTransfer && !isGraphics && !isCompute && idx != out.graphics {
				out.transfer = idx
				out.hasTransfer = true
				break
			}
		}
	}
	if !out.hasTransfer {
		out.transfer = out.graphics
		out.hasTransfer = true
	}

	return out, true
}

// queueCreateInfos builds the minimal set of VkDeviceQueueCreateInfo
// entries covering every distinct family in qf, one queue per family,
// equal-priority — mirroring the teacher's CoreQueue.GetCreateInfos but
// scoped to only the families actually needed instead of every family
// the physical device reports.
func queueCreateInfos(qf queueFamilies) []vk.DeviceQueueCreateInfo {
	priority := []float32{1.0}
	seen := map[uint32]bool{}
	var infos []vk.DeviceQueueCreateInfo
	add := func(family uint32) {
		if seen[family] {
			return
		}
		seen[family] = true
		infos = append(infos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: priority,
		})
	}
	add(qf.graphics)
	if qf.hasPresent {
		add(qf.present)
	}
	if qf.hasTransfer {
		add(qf.transfer)
	}
	return infos
}
