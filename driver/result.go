package driver

import (
	"math"
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Timeout converts d to the nanosecond timeout taken by fence waits and image
// acquisition. Zero or negative durations wait forever.
func Timeout(d time.Duration) uint64 {
	if d <= 0 {
		return math.MaxUint64
	}
	return uint64(d.Nanoseconds())
}

// ResultError is vk.Error for results which are known not to be a success. It
// never returns nil.
func ResultError(res vk.Result) error {
	if err := vk.Error(res); err != nil {
		return err
	}
	return errors.Errorf("unexpected result %d", res)
}
