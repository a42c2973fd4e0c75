// Package explicit implements the magnolia Explicit backend on the gogpu/wgpu
// hardware abstraction layer.
//
// Importing the package registers the "vulkan" variant with the default
// backend registry. A surface may instead hand over an existing device by
// implementing
//
//	HalDevice() any // hal.Device
//	HalQueue() any  // hal.Queue
//
// in which case the "shared" variant is used and the device is not destroyed
// with the context. Surfaces that implement gpucontext.DeviceProvider also
// choose the color target format through SurfaceFormat.
//
// Frames are rendered into an offscreen BGRA8 target unless the surface
// provides a texture view through SurfaceView() any. The offscreen target
// can be read back with [Context.ReadPixels].
//
// [Noop] opens the HAL noop device. It is not registered by default and is
// meant for tests and headless runs.
package explicit
