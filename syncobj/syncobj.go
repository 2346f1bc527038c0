// Package syncobj creates and destroys the binary semaphores and fences used
// to hand work between the CPU, the GPU queues and the presentation engine.
//
// Every failure to create an object is reported as ErrSyncObjectCreation.
// There is no retry path: callers treat it as fatal.
package syncobj

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/foxmulder900/vulkan-base/driver"
)

// ErrSyncObjectCreation is returned when the driver rejects the creation of a
// semaphore or a fence.
var ErrSyncObjectCreation = errors.New("failed to create synchronization object")

// CreateSemaphore creates one binary semaphore.
func CreateSemaphore(drv driver.Driver, device vk.Device) (vk.Semaphore, error) {
	semaphore, res := drv.CreateSemaphore(device)
	if res != vk.Success {
		return vk.Semaphore(vk.NullHandle), errors.Wrapf(
			ErrSyncObjectCreation, "semaphore: %s", vk.Error(res),
		)
	}
	return semaphore, nil
}

// CreateFence creates one fence. In-flight fences are created signaled so
// that the first wait on them returns immediately.
func CreateFence(drv driver.Driver, device vk.Device, signaled bool) (vk.Fence, error) {
	fence, res := drv.CreateFence(device, signaled)
	if res != vk.Success {
		return vk.Fence(vk.NullHandle), errors.Wrapf(
			ErrSyncObjectCreation, "fence: %s", vk.Error(res),
		)
	}
	return fence, nil
}

// CreateSemaphores creates n semaphores. Either all of them are returned or,
// on error, none are left alive.
func CreateSemaphores(drv driver.Driver, device vk.Device, n int) ([]vk.Semaphore, error) {
	semaphores := make([]vk.Semaphore, 0, n)
	for i := 0; i < n; i++ {
		semaphore, err := CreateSemaphore(drv, device)
		if err != nil {
			DestroySemaphores(drv, device, semaphores)
			return nil, errors.WithMessagef(err, "semaphore %d of %d", i, n)
		}
		semaphores = append(semaphores, semaphore)
	}
	return semaphores, nil
}

// CreateFences creates n fences with the same initial state. Either all of
// them are returned or, on error, none are left alive.
func CreateFences(drv driver.Driver, device vk.Device, n int, signaled bool) ([]vk.Fence, error) {
	fences := make([]vk.Fence, 0, n)
	for i := 0; i < n; i++ {
		fence, err := CreateFence(drv, device, signaled)
		if err != nil {
			DestroyFences(drv, device, fences)
			return nil, errors.WithMessagef(err, "fence %d of %d", i, n)
		}
		fences = append(fences, fence)
	}
	return fences, nil
}

// DestroySemaphores destroys every non-null semaphore in the slice. The device
// must be idle, or every queue operation using them known to be complete.
func DestroySemaphores(drv driver.Driver, device vk.Device, semaphores []vk.Semaphore) {
	for _, semaphore := range semaphores {
		if semaphore != vk.Semaphore(vk.NullHandle) {
			drv.DestroySemaphore(device, semaphore)
		}
	}
}

// DestroyFences destroys every non-null fence in the slice, with the same
// requirement as DestroySemaphores.
func DestroyFences(drv driver.Driver, device vk.Device, fences []vk.Fence) {
	for _, fence := range fences {
		if fence != vk.Fence(vk.NullHandle) {
			drv.DestroyFence(device, fence)
		}
	}
}
