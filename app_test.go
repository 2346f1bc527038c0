package main

import (
	"bytes"
	"log"
	"testing"

	. "github.com/onsi/gomega"
	vk "github.com/vulkan-go/vulkan"

	"github.com/foxmulder900/vulkan-base/driver/drivertest"
)

func captureLog(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	out, flags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(out)
		log.SetFlags(flags)
	})
	return &buf
}

func TestWaitDeviceIdle(t *testing.T) {
	g := NewWithT(t)
	logs := captureLog(t)

	gpu := drivertest.New()
	waitDeviceIdle(gpu, gpu.Device())

	g.Expect(gpu.Ops()).To(Equal([]string{"DeviceWaitIdle"}))
	g.Expect(logs.String()).To(BeEmpty())
}

func TestWaitDeviceIdleFailureIsLogged(t *testing.T) {
	g := NewWithT(t)
	logs := captureLog(t)

	gpu := drivertest.New()
	gpu.FailNext("DeviceWaitIdle", vk.ErrorDeviceLost)
	waitDeviceIdle(gpu, gpu.Device())

	g.Expect(logs.String()).To(ContainSubstring("waiting for device idle before cleanup"))
}
