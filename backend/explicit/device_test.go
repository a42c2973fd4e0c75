package explicit

import (
	"context"
	"errors"
	"testing"
	"unsafe"

	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/magnolia/backend"
)

// watchedQueue wraps the noop queue with failure injection and a completion
// index that can lag behind submissions.
type watchedQueue struct {
	hal.Queue
	writeErr error
	lagging  bool
	submits  int
}

func (q *watchedQueue) WriteBuffer(b hal.Buffer, offset uint64, data []byte) error {
	if q.writeErr != nil {
		return q.writeErr
	}
	return q.Queue.WriteBuffer(b, offset, data)
}

func (q *watchedQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	q.submits++
	return q.Queue.Submit(cmds)
}

func (q *watchedQueue) PollCompleted() uint64 {
	if q.lagging {
		return 0
	}
	return q.Queue.PollCompleted()
}

// watchedDevice counts waits, mappings and buffer releases on the noop
// device. Mapped memory is filled with fill before it is returned.
type watchedDevice struct {
	hal.Device
	fill      [4]byte
	waits     int
	maps      int
	unmaps    int
	destroyed int
}

func (d *watchedDevice) WaitIdle() error {
	d.waits++
	return d.Device.WaitIdle()
}

func (d *watchedDevice) MapBuffer(b hal.Buffer, offset, size uint64) (hal.BufferMapping, error) {
	d.maps++
	m, err := d.Device.MapBuffer(b, offset, size)
	if err != nil {
		return m, err
	}
	mem := unsafe.Slice((*byte)(m.Ptr), size)
	for i := range mem {
		mem[i] = d.fill[i%4]
	}
	return m, nil
}

func (d *watchedDevice) UnmapBuffer(b hal.Buffer) error {
	d.unmaps++
	return d.Device.UnmapBuffer(b)
}

func (d *watchedDevice) DestroyBuffer(b hal.Buffer) {
	d.destroyed++
	d.Device.DestroyBuffer(b)
}

type sharedSurface struct {
	testSurface
	device hal.Device
	queue  hal.Queue
}

func (s sharedSurface) HalDevice() any { return s.device }
func (s sharedSurface) HalQueue() any  { return s.queue }

func openWatched(t *testing.T) (*Context, *watchedDevice, *watchedQueue) {
	t.Helper()
	dev := &watchedDevice{Device: &noop.Device{}}
	q := &watchedQueue{Queue: &noop.Queue{}}
	bc, err := Open(context.Background(), sharedSurface{testSurface{w: 2, h: 2}, dev, q}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c := bc.(*Context)
	t.Cleanup(c.Destroy)
	if c.Variant() != "explicit/shared" {
		t.Fatalf("Variant = %q, want explicit/shared", c.Variant())
	}
	return c, dev, q
}

func TestSubmitWaitsForCompletion(t *testing.T) {
	c, dev, q := openWatched(t)

	if _, err := c.EncodeFrame(backend.PassConfig{}, nil); err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if q.submits != 1 || dev.waits != 0 {
		t.Errorf("completed submission: submits=%d waits=%d, want 1/0", q.submits, dev.waits)
	}

	q.lagging = true
	if _, err := c.EncodeFrame(backend.PassConfig{}, nil); err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if q.submits != 2 || dev.waits != 1 {
		t.Errorf("pending submission: submits=%d waits=%d, want 2/1", q.submits, dev.waits)
	}
}

func TestReadPixelsMapsStaging(t *testing.T) {
	c, dev, q := openWatched(t)
	dev.fill = [4]byte{10, 20, 30, 255}

	if _, err := c.EncodeFrame(backend.PassConfig{Clear: [4]float32{0, 0, 0, 1}}, nil); err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	img, err := c.ReadPixels()
	if err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	if q.submits != 2 || dev.maps != 1 || dev.unmaps != 1 {
		t.Errorf("submits=%d maps=%d unmaps=%d, want 2/1/1", q.submits, dev.maps, dev.unmaps)
	}
	// BGRA target: blue and red come back swapped.
	px := img.RGBAAt(1, 1)
	if px.R != 30 || px.G != 20 || px.B != 10 || px.A != 255 {
		t.Errorf("pixel = %v, want {30 20 10 255}", px)
	}
}

func TestWriteFailure(t *testing.T) {
	c, dev, q := openWatched(t)
	u, err := c.CreateUniformResource("u", backend.UniformAlignment)
	if err != nil {
		t.Fatalf("CreateUniformResource: %v", err)
	}

	lost := errors.New("device lost")
	q.writeErr = lost

	_, err = c.CreateVertexResource("v", make([]byte, 48))
	if !errors.Is(err, backend.ErrResourceCreation) || !errors.Is(err, lost) {
		t.Errorf("create err = %v, want ErrResourceCreation wrapping the write error", err)
	}
	if dev.destroyed != 1 {
		t.Errorf("buffers released after failed upload = %d, want 1", dev.destroyed)
	}
	if b, _, _ := c.Stats(); b != 1 {
		t.Errorf("buffers = %d, want only the uniform", b)
	}
	if err := c.WriteResource(u, 0, make([]byte, backend.TransformSize)); !errors.Is(err, lost) {
		t.Errorf("write err = %v, want the write error", err)
	}
}

func TestUniformSlotsShareBindGroup(t *testing.T) {
	c := openNoop(t, nil)
	pipe := compileFlat(t, c)
	d := quadDraw(t, c, pipe)

	arena, err := c.CreateUniformResource("arena", 4*backend.UniformAlignment)
	if err != nil {
		t.Fatalf("CreateUniformResource: %v", err)
	}
	var draws []backend.Draw
	for slot := range 4 {
		sd := d
		sd.Uniform, sd.UniformOffset = arena, slot*backend.UniformAlignment
		draws = append(draws, sd)
	}
	misaligned := draws[0]
	misaligned.UniformOffset = backend.TransformSize
	draws = append(draws, misaligned)

	res, err := c.EncodeFrame(backend.PassConfig{}, draws)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if res.Draws != 4 {
		t.Errorf("Draws = %d, want 4 with the misaligned slot skipped", res.Draws)
	}
	if _, _, bg := c.Stats(); bg != 1 {
		t.Errorf("bind groups = %d, want 1 for the whole arena", bg)
	}

	c.ReleaseResource(arena)
	if _, _, bg := c.Stats(); bg != 0 {
		t.Errorf("bind groups after release = %d, want 0", bg)
	}
}
