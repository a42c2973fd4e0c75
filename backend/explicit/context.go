package explicit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	_ "github.com/gogpu/wgpu/hal/vulkan" // registers the Vulkan HAL backend

	"github.com/gogpu/magnolia/backend"
	"github.com/gogpu/magnolia/shader"
)

// priority of the registered variant within the Explicit kind.
const priority = 20

func init() {
	backend.Register(backend.Explicit, "vulkan", priority, Open)
}

// halProvider is implemented by hosts that share their HAL device.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// viewProvider is implemented by surfaces that render into a swapchain view.
type viewProvider interface {
	SurfaceView() any
}

// Context is a live Explicit backend.
type Context struct {
	mu  sync.Mutex
	log *slog.Logger

	variant  string
	surface  backend.Surface
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool
	format   gputypes.TextureFormat

	// Shared by every pipeline: one dynamic-offset uniform binding at group 0.
	uniformLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout

	next       backend.Handle
	buffers    map[backend.Handle]*buffer
	pipelines  map[backend.Handle]*pipeline
	bindGroups map[backend.Handle]hal.BindGroup

	target    renderTarget
	lastClear [4]float32
	destroyed bool
}

var _ backend.Context = (*Context)(nil)

// Open uses the surface's device when it shares one and opens a Vulkan
// device otherwise.
func Open(ctx context.Context, surface backend.Surface, log *slog.Logger) (backend.Context, error) {
	if hp, ok := surface.(halProvider); ok {
		return shared(hp, surface, log)
	}
	return Vulkan(ctx, surface, log)
}

// shared opens a context on a device handed over by the surface.
func shared(hp halProvider, surface backend.Surface, log *slog.Logger) (backend.Context, error) {
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("provider HalDevice is not hal.Device: %w", backend.ErrUnsupported)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("provider HalQueue is not hal.Queue: %w", backend.ErrUnsupported)
	}
	c := newContext("explicit/shared", surface, log)
	c.device = device
	c.queue = queue
	c.external = true
	if err := c.createLayouts(); err != nil {
		c.Destroy()
		return nil, err
	}
	c.log.Info("backend initialized", "variant", c.variant)
	return c, nil
}

// Vulkan opens a context on the first discrete or integrated Vulkan adapter.
func Vulkan(ctx context.Context, surface backend.Surface, log *slog.Logger) (backend.Context, error) {
	b, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("vulkan HAL backend not available: %w", backend.ErrUnsupported)
	}
	return open(ctx, b, "explicit/vulkan", surface, log)
}

// Noop opens a context on the HAL noop device. Every call succeeds and
// nothing reaches a GPU.
func Noop(ctx context.Context, surface backend.Surface, log *slog.Logger) (backend.Context, error) {
	return open(ctx, &noop.API{}, "explicit/noop", surface, log)
}

// instanceCreator is the part of a HAL backend that open needs.
type instanceCreator interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// open brings up instance, adapter, device and queue, rolling back each step
// on failure.
func open(ctx context.Context, b instanceCreator, variant string, surface backend.Surface, log *slog.Logger) (backend.Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := newContext(variant, surface, log)

	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w: %w", backend.ErrUnsupported, err)
	}
	c.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		c.Destroy()
		return nil, fmt.Errorf("no GPU adapters found: %w", backend.ErrUnsupported)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		c.Destroy()
		return nil, fmt.Errorf("open device: %w: %w", backend.ErrUnsupported, err)
	}
	c.device = openDev.Device
	c.queue = openDev.Queue

	if err := c.createLayouts(); err != nil {
		c.Destroy()
		return nil, err
	}
	c.log.Info("backend initialized", "variant", variant, "adapter", selected.Info.Name)
	return c, nil
}

func newContext(variant string, surface backend.Surface, log *slog.Logger) *Context {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	c := &Context{
		log:        log,
		variant:    variant,
		surface:    surface,
		format:     gputypes.TextureFormatBGRA8Unorm,
		buffers:    make(map[backend.Handle]*buffer),
		pipelines:  make(map[backend.Handle]*pipeline),
		bindGroups: make(map[backend.Handle]hal.BindGroup),
	}
	if dp, ok := surface.(gpucontext.DeviceProvider); ok {
		if f := dp.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
			c.format = f
		}
	}
	return c
}

// createLayouts builds the bind group layout and pipeline layout shared by
// all pipelines of this context.
func (c *Context) createLayouts() error {
	uniformLayout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "magnolia_transform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer: &gputypes.BufferBindingLayout{
					Type:             gputypes.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   backend.TransformSize,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create transform layout: %w: %w", backend.ErrResourceCreation, err)
	}
	c.uniformLayout = uniformLayout

	pipeLayout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "magnolia_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{c.uniformLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w: %w", backend.ErrResourceCreation, err)
	}
	c.pipeLayout = pipeLayout
	return nil
}

// Kind returns backend.Explicit.
func (c *Context) Kind() backend.Kind { return backend.Explicit }

// Variant returns "explicit/shared", "explicit/vulkan" or "explicit/noop".
func (c *Context) Variant() string { return c.variant }

// ShaderLanguage returns shader.WGSL.
func (c *Context) ShaderLanguage() shader.Language { return shader.WGSL }

// SurfaceSize returns the surface size, at least 1x1.
func (c *Context) SurfaceSize() (width, height int) {
	if c.surface != nil {
		width, height = c.surface.Size()
	}
	return max(width, 1), max(height, 1)
}

// LastClear returns the clear color of the last submitted frame.
func (c *Context) LastClear() [4]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastClear
}

// Destroy releases every pipeline, buffer and texture, then the device and
// instance unless the device was shared. Safe to call multiple times.
func (c *Context) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.destroyed = true

	if c.device != nil {
		for k, bg := range c.bindGroups {
			c.device.DestroyBindGroup(bg)
			delete(c.bindGroups, k)
		}
		for h, p := range c.pipelines {
			p.destroy(c.device)
			delete(c.pipelines, h)
		}
		for h, b := range c.buffers {
			c.device.DestroyBuffer(b.buf)
			delete(c.buffers, h)
		}
		c.target.destroy(c.device)
		if c.pipeLayout != nil {
			c.device.DestroyPipelineLayout(c.pipeLayout)
			c.pipeLayout = nil
		}
		if c.uniformLayout != nil {
			c.device.DestroyBindGroupLayout(c.uniformLayout)
			c.uniformLayout = nil
		}
		if !c.external {
			c.device.Destroy()
		}
		c.device = nil
		c.queue = nil
	}
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}
	c.log.Debug("context destroyed", "variant", c.variant)
}

// Stats reports live object counts.
func (c *Context) Stats() (buffers, pipelines, bindGroups int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffers), len(c.pipelines), len(c.bindGroups)
}

func (c *Context) allocHandle() backend.Handle {
	c.next++
	return c.next
}
