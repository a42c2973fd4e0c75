package explicit

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/magnolia/backend"
)

// ErrNoOffscreenTarget is returned by ReadPixels before the first offscreen
// frame or when frames go to a surface view.
var ErrNoOffscreenTarget = errors.New("explicit: no offscreen target to read")

// renderTarget is the offscreen color target.
type renderTarget struct {
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
}

func (t *renderTarget) ensure(device hal.Device, format gputypes.TextureFormat, w, h uint32) error {
	if t.tex != nil && t.width == w && t.height == h {
		return nil
	}
	t.destroy(device)

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "magnolia_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create target texture: %w: %w", backend.ErrResourceCreation, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "magnolia_target_view",
	})
	if err != nil {
		device.DestroyTexture(tex)
		return fmt.Errorf("create target view: %w: %w", backend.ErrResourceCreation, err)
	}
	t.tex, t.view, t.width, t.height = tex, view, w, h
	return nil
}

func (t *renderTarget) destroy(device hal.Device) {
	if t.view != nil {
		device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
		t.tex = nil
	}
	t.width, t.height = 0, 0
}

// frameView returns the view the next pass renders into. Called with c.mu held.
func (c *Context) frameView() (hal.TextureView, error) {
	if vp, ok := c.surface.(viewProvider); ok {
		if v, ok := vp.SurfaceView().(hal.TextureView); ok && v != nil {
			return v, nil
		}
	}
	w, h := c.SurfaceSize()
	if err := c.target.ensure(c.device, c.format, uint32(w), uint32(h)); err != nil { //nolint:gosec // SurfaceSize is at least 1
		return nil, err
	}
	return c.target.view, nil
}

// drawState is a draw with every handle resolved to a HAL object.
type drawState struct {
	pipeline  hal.RenderPipeline
	bindGroup hal.BindGroup
	offset    uint32
	vertices  hal.Buffer
	colors    hal.Buffer
	count     uint32
}

// resolve maps a draw's handles to HAL objects. Called with c.mu held.
func (c *Context) resolve(d backend.Draw) (drawState, error) {
	p, ok := c.pipelines[d.Pipeline]
	if !ok {
		return drawState{}, fmt.Errorf("pipeline %d: %w", d.Pipeline, backend.ErrInvalidHandle)
	}
	vb, ok := c.buffers[d.Vertices]
	if !ok || vb.uniform {
		return drawState{}, fmt.Errorf("vertices %d: %w", d.Vertices, backend.ErrInvalidHandle)
	}
	cb, ok := c.buffers[d.Colors]
	if !ok || cb.uniform {
		return drawState{}, fmt.Errorf("colors %d: %w", d.Colors, backend.ErrInvalidHandle)
	}
	if d.VertexCount <= 0 || d.VertexCount*backend.PositionStride > vb.size || d.VertexCount*backend.ColorStride > cb.size {
		return drawState{}, fmt.Errorf("vertex count %d: %w", d.VertexCount, backend.ErrOutOfRange)
	}
	bg, err := c.bindGroupFor(d.Uniform, d.UniformOffset)
	if err != nil {
		return drawState{}, err
	}
	return drawState{
		pipeline:  p.rp,
		bindGroup: bg,
		offset:    uint32(d.UniformOffset), //nolint:gosec // checked by bindGroupFor
		vertices:  vb.buf,
		colors:    cb.buf,
		count:     uint32(d.VertexCount), //nolint:gosec // bounded by buffer size
	}, nil
}

// EncodeFrame records one render pass clearing to pass.Clear followed by the
// draws in order, submits it and waits for the GPU.
//
// Draws whose handles cannot be resolved are skipped and logged. When
// pass.Canceled reports true the encoding is discarded and nothing is
// submitted.
func (c *Context) EncodeFrame(pass backend.PassConfig, draws []backend.Draw) (backend.FrameResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res backend.FrameResult
	if c.destroyed {
		return res, backend.ErrDestroyed
	}
	view, err := c.frameView()
	if err != nil {
		return res, err
	}

	batch := make([]drawState, 0, len(draws))
	for i, d := range draws {
		st, err := c.resolve(d)
		if err != nil {
			c.log.Warn("draw skipped", "index", i, "err", err)
			continue
		}
		batch = append(batch, st)
	}

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "magnolia_encoder",
	})
	if err != nil {
		return res, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("magnolia_frame"); err != nil {
		return res, fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "magnolia_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    view,
			LoadOp:  gputypes.LoadOpClear,
			StoreOp: gputypes.StoreOpStore,
			ClearValue: gputypes.Color{
				R: float64(pass.Clear[0]),
				G: float64(pass.Clear[1]),
				B: float64(pass.Clear[2]),
				A: float64(pass.Clear[3]),
			},
		}},
	})
	for _, st := range batch {
		if pass.IsCanceled() {
			res.Canceled = true
			break
		}
		rp.SetPipeline(st.pipeline)
		rp.SetBindGroup(0, st.bindGroup, []uint32{st.offset})
		rp.SetVertexBuffer(0, st.vertices, 0)
		rp.SetVertexBuffer(1, st.colors, 0)
		rp.Draw(st.count, 1, 0, 0)
		res.Draws++
		res.Vertices += int(st.count)
	}
	rp.End()

	if res.Canceled {
		encoder.DiscardEncoding()
		return res, nil
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return res, fmt.Errorf("end encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmdBuf)

	if err := c.submitAndWait(cmdBuf); err != nil {
		return res, err
	}
	c.lastClear = pass.Clear
	return res, nil
}

// submitAndWait submits one command buffer and blocks until the GPU has
// completed it.
func (c *Context) submitAndWait(cmdBuf hal.CommandBuffer) error {
	index, err := c.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if c.queue.PollCompleted() >= index {
		return nil
	}
	if err := c.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	return nil
}

// ReadPixels copies the offscreen target of the last frame into an RGBA
// image.
func (c *Context) ReadPixels() (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil, backend.ErrDestroyed
	}
	if c.target.tex == nil {
		return nil, ErrNoOffscreenTarget
	}
	w, h := c.target.width, c.target.height

	// Buffer copies require BytesPerRow aligned to 256 bytes.
	bytesPerRow := w * 4
	const copyPitchAlignment = 256
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "magnolia_readback",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w: %w", backend.ErrResourceCreation, err)
	}
	defer c.device.DestroyBuffer(staging)

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "magnolia_readback_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("magnolia_readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: c.target.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(c.target.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: c.target.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: c.target.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmdBuf)

	if err := c.submitAndWait(cmdBuf); err != nil {
		return nil, err
	}
	mapping, err := c.device.MapBuffer(staging, 0, stagingSize)
	if err != nil {
		return nil, fmt.Errorf("map readback buffer: %w", err)
	}
	readback := make([]byte, stagingSize)
	copy(readback, unsafe.Slice((*byte)(mapping.Ptr), stagingSize))
	if err := c.device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("unmap readback buffer: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	swap := c.format == gputypes.TextureFormatBGRA8Unorm
	for y := 0; y < int(h); y++ {
		src := readback[y*int(alignedBytesPerRow) : y*int(alignedBytesPerRow)+int(bytesPerRow)]
		dst := img.Pix[y*img.Stride : y*img.Stride+int(bytesPerRow)]
		copy(dst, src)
		if swap {
			for i := 0; i < len(dst); i += 4 {
				dst[i], dst[i+2] = dst[i+2], dst[i]
			}
		}
	}
	return img, nil
}
