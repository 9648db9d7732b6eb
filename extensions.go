package vkcore

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// extensionSet tracks what a caller wants, what is strictly required, and
// what the platform actually reports, generalising the teacher's
// BaseInstanceExtensions/BaseDeviceExtensions/BaseLayerExtensions trio
// (extensions_2.go) into one type reused for all three.
type extensionSet struct {
	wanted   []string
	required []string
	actual   []string
}

func newExtensionSet(wanted, required, actual []string) *extensionSet {
	return &extensionSet{wanted: wanted, required: required, actual: actual}
}

// hasAll reports whether every name in names is present in actual.
func (e *extensionSet) hasAll(names []string) (ok bool, missing []string) {
	set := make(map[string]struct{}, len(e.actual))
	for _, a := range e.actual {
		set[a] = struct{}{}
	}
	for _, n := range names {
		if _, present := set[n]; !present {
			missing = append(missing, n)
		}
	}
	return len(missing) == 0, missing
}

func (e *extensionSet) hasRequired() (bool, []string) { return e.hasAll(e.required) }
func (e *extensionSet) hasWanted() (bool, []string)   { return e.hasAll(e.wanted) }

// resolve returns required ∪ (wanted ∩ actual), NUL-terminated, suitable
// for PpEnabledExtensionNames / PpEnabledLayerNames.
func (e *extensionSet) resolve() []string {
	out := make([]string, 0, len(e.required)+len(e.wanted))
	seen := make(map[string]struct{}, len(e.required)+len(e.wanted))
	for _, r := range e.required {
		if _, dup := seen[r]; !dup {
			out = append(out, safeString(r))
			seen[r] = struct{}{}
		}
	}
	actualSet := make(map[string]struct{}, len(e.actual))
	for _, a := range e.actual {
		actualSet[a] = struct{}{}
	}
	for _, w := range e.wanted {
		if _, dup := seen[w]; dup {
			continue
		}
		if _, present := actualSet[w]; present {
			out = append(out, safeString(w))
			seen[w] = struct{}{}
		}
	}
	return out
}

// enumerateInstanceExtensions lists the instance extensions the loader
// reports as available.
func enumerateInstanceExtensions() ([]string, error) {
	var count uint32
	if ret := vk.EnumerateInstanceExtensionProperties("", &count, nil); isError(ret) {
		return nil, resultError("EnumerateInstanceExtensionProperties(count)", ret)
	}
	list := make([]vk.ExtensionProperties, count)
	if ret := vk.EnumerateInstanceExtensionProperties("", &count, list); isError(ret) {
		return nil, resultError("EnumerateInstanceExtensionProperties(list)", ret)
	}
	names := make([]string, 0, len(list))
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// enumerateDeviceExtensions lists the extensions a physical device exposes.
func enumerateDeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil); isError(ret) {
		return nil, resultError("EnumerateDeviceExtensionProperties(count)", ret)
	}
	list := make([]vk.ExtensionProperties, count)
	if ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list); isError(ret) {
		return nil, resultError("EnumerateDeviceExtensionProperties(list)", ret)
	}
	names := make([]string, 0, len(list))
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// enumerateValidationLayers lists the instance layers the loader can see.
func enumerateValidationLayers() ([]string, error) {
	var count uint32
	if ret := vk.EnumerateInstanceLayerProperties(&count, nil); isError(ret) {
		return nil, resultError("EnumerateInstanceLayerProperties(count)", ret)
	}
	list := make([]vk.LayerProperties, count)
	if ret := vk.EnumerateInstanceLayerProperties(&count, list); isError(ret) {
		return nil, resultError("EnumerateInstanceLayerProperties(list)", ret)
	}
	names := make([]string, 0, len(list))
	for _, layer := range list {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

// findMemoryTypeIndex walks the physical device's memory types looking for
// one whose heap is covered by typeBits and whose property flags satisfy
// want. falls back to ignoring want (any heap in typeBits) when strict is
// false, mirroring the teacher's FindRequiredMemoryType/…Fallback pair.
func findMemoryTypeIndex(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, want vk.MemoryPropertyFlagBits, strict bool) (uint32, error) {
	for i := uint32(0); i < vk.MaxMemoryTypes; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		props.MemoryTypes[i].Deref()
		flags := props.MemoryTypes[i].PropertyFlags
		if flags&vk.MemoryPropertyFlags(want) == vk.MemoryPropertyFlags(want) {
			return i, nil
		}
	}
	if strict {
		return 0, errors.Wrap(ErrNoSuitableDevice, "no memory type satisfies requested properties")
	}
	return findMemoryTypeIndex(props, typeBits, 0, true)
}
