package vkcore

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Sentinel errors for the fatal-initialisation class of failures (spec §7).
// Callers of NewDevice / NewSwapchain should compare against these with
// errors.Is rather than string-matching.
var (
	ErrNoSuitableDevice  = errors.New("vkcore: no physical device satisfies the required extension set")
	ErrSurfaceCreation   = errors.New("vkcore: surface creation callback failed")
	ErrMissingExtension  = errors.New("vkcore: required extension not present")
	ErrHostNotVisible    = errors.New("vkcore: write to a buffer that is not host-visible")
	ErrSwapchainNoFormat = errors.New("vkcore: surface reported zero pixel formats")
	ErrSwapchainPaused   = errors.New("vkcore: swapchain is paused (zero extent)")
)

// resultError wraps a raw vk.Result so callers can still recover it with
// errors.Cause while getting a readable message at every call site.
func resultError(op string, ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	return errors.Wrapf(fmt.Errorf("vulkan result %d", ret), op)
}

// isError reports whether ret is anything other than vk.Success. SUBOPTIMAL
// and OUT_OF_DATE are deliberately not routed through this helper — the
// Swapchain and Renderer treat those as transient states, not errors.
func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// usageError is the "logged, not fatal" class from spec §7: the offending
// call becomes a no-op and the error is returned so the caller can decide
// whether to also log it. In debug builds this would also trip an assert;
// vkcore leaves that to the caller since it has no notion of build mode.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return "vkcore: " + e.msg }

func newUsageError(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// IsUsageError reports whether err is a recoverable usage error (logged,
// operation skipped) as opposed to a fatal initialisation failure.
func IsUsageError(err error) bool {
	_, ok := errors.Cause(err).(*usageError)
	return ok
}
