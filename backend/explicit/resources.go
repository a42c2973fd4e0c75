package explicit

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/magnolia/backend"
	"github.com/gogpu/magnolia/shader"
)

// buffer is a vertex or uniform buffer issued by this context.
type buffer struct {
	buf     hal.Buffer
	size    int
	uniform bool
}

// pipeline is a compiled render pipeline and the module it was built from.
type pipeline struct {
	key    backend.PipelineKey
	module hal.ShaderModule
	rp     hal.RenderPipeline
}

func (p *pipeline) destroy(device hal.Device) {
	if p.rp != nil {
		device.DestroyRenderPipeline(p.rp)
		p.rp = nil
	}
	if p.module != nil {
		device.DestroyShaderModule(p.module)
		p.module = nil
	}
}

// CreateVertexResource creates a vertex buffer and uploads data.
func (c *Context) CreateVertexResource(label string, data []byte) (backend.Handle, error) {
	return c.createBuffer(label, len(data), data, false)
}

// CreateUniformResource creates a zeroed uniform buffer.
func (c *Context) CreateUniformResource(label string, size int) (backend.Handle, error) {
	return c.createBuffer(label, size, nil, true)
}

func (c *Context) createBuffer(label string, size int, data []byte, uniform bool) (backend.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return backend.NoHandle, backend.ErrDestroyed
	}
	if size <= 0 {
		return backend.NoHandle, fmt.Errorf("create %s: size %d: %w", label, size, backend.ErrResourceCreation)
	}

	usage := gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	if uniform {
		usage = gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	}
	buf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: usage,
	})
	if err != nil {
		return backend.NoHandle, fmt.Errorf("create %s: %w: %w", label, backend.ErrResourceCreation, err)
	}
	if len(data) > 0 {
		if err := c.queue.WriteBuffer(buf, 0, data); err != nil {
			c.device.DestroyBuffer(buf)
			return backend.NoHandle, fmt.Errorf("write %s: %w: %w", label, backend.ErrResourceCreation, err)
		}
	}

	h := c.allocHandle()
	c.buffers[h] = &buffer{buf: buf, size: size, uniform: uniform}
	c.log.Debug("buffer created", "label", label, "size", size, "uniform", uniform)
	return h, nil
}

// WriteResource writes data at offset into a buffer.
func (c *Context) WriteResource(h backend.Handle, offset int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return backend.ErrDestroyed
	}
	b, ok := c.buffers[h]
	if !ok {
		return fmt.Errorf("write %d: %w", h, backend.ErrInvalidHandle)
	}
	if offset < 0 || offset+len(data) > b.size {
		return fmt.Errorf("write %d bytes at %d into %d: %w", len(data), offset, b.size, backend.ErrOutOfRange)
	}
	if err := c.queue.WriteBuffer(b.buf, uint64(offset), data); err != nil {
		return fmt.Errorf("write %d bytes into %d: %w: %w", len(data), h, backend.ErrResourceCreation, err)
	}
	return nil
}

// ReleaseResource destroys a buffer and every bind group over it.
func (c *Context) ReleaseResource(h backend.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.buffers[h]
	if !ok || c.destroyed {
		return
	}
	if bg, ok := c.bindGroups[h]; ok {
		c.device.DestroyBindGroup(bg)
		delete(c.bindGroups, h)
	}
	c.device.DestroyBuffer(b.buf)
	delete(c.buffers, h)
}

// bindGroupFor returns the bind group of the uniform buffer h, creating it
// on first use, and checks that offset names a whole slot in it. Every slot
// of a buffer shares the group; the slot is picked with a dynamic offset.
// Called with c.mu held.
func (c *Context) bindGroupFor(h backend.Handle, offset int) (hal.BindGroup, error) {
	b, ok := c.buffers[h]
	if !ok || !b.uniform {
		return nil, fmt.Errorf("uniform %d: %w", h, backend.ErrInvalidHandle)
	}
	if offset < 0 || offset%backend.UniformAlignment != 0 || offset+backend.TransformSize > b.size {
		return nil, fmt.Errorf("uniform slot %d in %d bytes: %w", offset, b.size, backend.ErrOutOfRange)
	}
	if bg, ok := c.bindGroups[h]; ok {
		return bg, nil
	}
	bg, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "magnolia_transform_bind",
		Layout: c.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: b.buf.NativeHandle(), Offset: 0, Size: backend.TransformSize,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w: %w", backend.ErrResourceCreation, err)
	}
	c.bindGroups[h] = bg
	return bg, nil
}

// CompilePipeline creates the shader module and render pipeline for key.
func (c *Context) CompilePipeline(key backend.PipelineKey, mod *shader.Module) (backend.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return backend.NoHandle, backend.ErrDestroyed
	}
	if mod == nil || mod.Lang != shader.WGSL {
		return backend.NoHandle, &shader.CompileError{Path: key.Shader, Lang: shader.WGSL, Err: shader.ErrUnknownLanguage}
	}

	src := hal.ShaderSource{WGSL: mod.Source}
	if len(mod.SPIRV) > 0 {
		src = hal.ShaderSource{SPIRV: mod.SPIRV}
	}
	module, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  mod.Path,
		Source: src,
	})
	if err != nil {
		return backend.NoHandle, &shader.CompileError{Path: mod.Path, Lang: shader.WGSL, Err: err}
	}
	p := &pipeline{key: key, module: module}

	blend := gputypes.BlendStatePremultiplied()
	rp, err := c.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "magnolia_" + key.String(),
		Layout: c.pipeLayout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: shader.VertexEntry,
			Buffers:    vertexLayout(key.Layout),
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: shader.FragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    c.format,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.destroy(c.device)
		return backend.NoHandle, fmt.Errorf("create pipeline %s: %w: %w", key, backend.ErrResourceCreation, err)
	}
	p.rp = rp

	h := c.allocHandle()
	c.pipelines[h] = p
	c.log.Debug("pipeline compiled", "key", key.String())
	return h, nil
}

// ReleasePipeline destroys a pipeline.
func (c *Context) ReleasePipeline(h backend.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pipelines[h]
	if !ok || c.destroyed {
		return
	}
	p.destroy(c.device)
	delete(c.pipelines, h)
}

// vertexLayout returns the vertex buffer layouts for a backend layout.
// LayoutPositionColor is the only layout: positions in slot 0, colors in slot 1.
func vertexLayout(backend.VertexLayout) []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: backend.PositionStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
			},
		},
		{
			ArrayStride: backend.ColorStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 1},
			},
		},
	}
}
