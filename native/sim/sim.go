// Package sim is an in-memory implementation of the native graphics layer.
// Back buffers are CPU images, copies go through golang.org/x/image/draw,
// and fences complete as soon as they are signalled unless a test defers
// them. Every operation is appended to a journal the tests assert against.
package sim

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"

	"github.com/Unity-Technologies/ClusterDisplay/native"
)

// Journal records the operations a device performed, in order.
type Journal struct {
	mu  sync.Mutex
	ops []string
}

// Append adds a formatted entry.
func (j *Journal) Append(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ops = append(j.ops, fmt.Sprintf(format, args...))
}

// Ops returns a copy of the recorded entries.
func (j *Journal) Ops() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.ops...)
}

// Reset clears the journal.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ops = nil
}

// Resource is a CPU-backed texture.
type Resource struct {
	name     string
	desc     native.ResourceDesc
	img      *image.RGBA
	journal  *Journal
	released bool
}

// NewResource creates a standalone resource, mainly for tests.
func NewResource(name string, desc native.ResourceDesc) *Resource {
	return &Resource{
		name: name,
		desc: desc,
		img:  image.NewRGBA(image.Rect(0, 0, desc.Width, desc.Height)),
	}
}

// Name returns the debug name.
func (r *Resource) Name() string { return r.name }

// Desc returns the resource layout.
func (r *Resource) Desc() native.ResourceDesc { return r.desc }

// Image exposes the backing pixels.
func (r *Resource) Image() *image.RGBA { return r.img }

// Released reports whether Release was called.
func (r *Resource) Released() bool { return r.released }

// Release marks the resource released and journals it.
func (r *Resource) Release() {
	r.released = true
	if r.journal != nil {
		r.journal.Append("release(%s)", r.name)
	}
}

// copyInto blits src into dst.
func copyInto(dst, src *Resource) {
	draw.Copy(dst.img, image.Point{}, src.img, src.img.Bounds(), draw.Src, nil)
}

// Device implements the native device with every factory capability the
// adapters probe for.
type Device struct {
	name    string
	journal *Journal
	ctx     *Context

	// deferSignals keeps queue signals pending until FlushSignals,
	// letting tests exercise the fence wait path.
	deferSignals bool

	nextTexture int
}

// NewDevice creates a simulated device.
func NewDevice(name string) *Device {
	d := &Device{name: name, journal: &Journal{}}
	d.ctx = &Context{journal: d.journal}
	return d
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// Journal returns the device's operation journal.
func (d *Device) Journal() *Journal { return d.journal }

// DeferSignals keeps fence signals pending until FlushSignals is called.
func (d *Device) DeferSignals(on bool) { d.deferSignals = on }

// ImmediateContext returns the device's immediate context.
func (d *Device) ImmediateContext() native.ImmediateContext { return d.ctx }

// CreateTexture allocates a CPU-backed texture.
func (d *Device) CreateTexture(desc native.ResourceDesc) (native.Resource, error) {
	return d.newTexture(desc), nil
}

// CreateCommittedResource allocates a CPU-backed texture.
func (d *Device) CreateCommittedResource(desc native.ResourceDesc) (native.Resource, error) {
	return d.newTexture(desc), nil
}

func (d *Device) newTexture(desc native.ResourceDesc) *Resource {
	name := fmt.Sprintf("tex%d", d.nextTexture)
	d.nextTexture++
	d.journal.Append("create(%s,%dx%d,usage=%d)", name, desc.Width, desc.Height, desc.Usage)
	return &Resource{
		name:    name,
		desc:    desc,
		img:     image.NewRGBA(image.Rect(0, 0, desc.Width, desc.Height)),
		journal: d.journal,
	}
}

// CreateCommandAllocator creates a simulated allocator.
func (d *Device) CreateCommandAllocator(name string) (native.CommandAllocator, error) {
	d.journal.Append("create-allocator(%s)", name)
	return &CommandAllocator{name: name, journal: d.journal}, nil
}

// CreateCommandList creates a simulated list open for recording.
func (d *Device) CreateCommandList(name string, alloc native.CommandAllocator) (native.CommandList, error) {
	d.journal.Append("create-list(%s)", name)
	return &CommandList{name: name, journal: d.journal}, nil
}

// CreateFence creates a simulated fence.
func (d *Device) CreateFence(initial uint64) (native.Fence, error) {
	d.journal.Append("create-fence(%d)", initial)
	f := &Fence{journal: d.journal}
	f.completed = initial
	return f, nil
}

// NewCommandQueue creates the device's direct queue.
func (d *Device) NewCommandQueue() *CommandQueue {
	return &CommandQueue{device: d, journal: d.journal}
}

// Context is the simulated immediate context.
type Context struct {
	journal      *Journal
	renderTarget *Resource
}

// SetRenderTarget binds res as the sole render target.
func (c *Context) SetRenderTarget(res native.Resource) {
	r := res.(*Resource)
	c.renderTarget = r
	c.journal.Append("set-render-target(%s)", r.name)
}

// CopyResource copies src into dst immediately.
func (c *Context) CopyResource(dst, src native.Resource) {
	d := dst.(*Resource)
	s := src.(*Resource)
	copyInto(d, s)
	c.journal.Append("copy(%s<-%s)", d.name, s.name)
}

// SwapChain is an n-buffered simulated swap chain without a current-index
// query, matching the older swap-chain generation.
type SwapChain struct {
	journal *Journal
	buffers []*Resource
	current int
}

// NewSwapChain creates a swap chain whose back buffers are count CPU
// images of the given size. The returned chain exposes the current
// back-buffer index; use Legacy for the older generation.
func NewSwapChain(d *Device, width, height, count int) *FlipChain {
	sc := &SwapChain{journal: d.journal}
	for i := 0; i < count; i++ {
		sc.buffers = append(sc.buffers, &Resource{
			name:    fmt.Sprintf("bb%d", i),
			desc:    native.ResourceDesc{Width: width, Height: height, Usage: native.UsageRenderTarget},
			img:     image.NewRGBA(image.Rect(0, 0, width, height)),
			journal: d.journal,
		})
	}
	return &FlipChain{SwapChain: sc}
}

// Present rotates the current back buffer through the native path.
func (s *SwapChain) Present(syncInterval, flags uint32) error {
	s.journal.Append("present(sync=%d,flags=%d)", syncInterval, flags)
	s.current = (s.current + 1) % len(s.buffers)
	return nil
}

// BufferCount returns the number of back buffers.
func (s *SwapChain) BufferCount() int { return len(s.buffers) }

// Buffer returns the i-th back buffer.
func (s *SwapChain) Buffer(i int) (native.Resource, error) {
	if i < 0 || i >= len(s.buffers) {
		return nil, fmt.Errorf("sim: back buffer %d out of range", i)
	}
	return s.buffers[i], nil
}

// SetCurrent positions the rotation, for tests.
func (s *SwapChain) SetCurrent(i int) { s.current = i }

// FlipChain is the swap-chain generation that exposes the current
// back-buffer index.
type FlipChain struct {
	*SwapChain
}

// CurrentBackBufferIndex returns the index the next render pass targets.
func (f *FlipChain) CurrentBackBufferIndex() int { return f.current }

// Legacy returns the chain viewed as the older generation, hiding the
// current-index query.
func (f *FlipChain) Legacy() *SwapChain { return f.SwapChain }

// CommandAllocator is the simulated allocator.
type CommandAllocator struct {
	name    string
	journal *Journal
}

// Reset recycles the allocator.
func (a *CommandAllocator) Reset() error {
	a.journal.Append("reset-allocator(%s)", a.name)
	return nil
}

// Release destroys the allocator.
func (a *CommandAllocator) Release() {
	a.journal.Append("release-allocator(%s)", a.name)
}

// recordedOp is a command recorded into a list.
type recordedOp struct {
	kind     string
	dst, src *Resource
	from, to native.State
}

// CommandList is the simulated command list.
type CommandList struct {
	name    string
	journal *Journal
	ops     []recordedOp
	closed  bool
}

// Reset re-opens the list for recording.
func (l *CommandList) Reset(alloc native.CommandAllocator) error {
	l.journal.Append("reset-list(%s)", l.name)
	l.ops = nil
	l.closed = false
	return nil
}

// Transition records a state transition barrier.
func (l *CommandList) Transition(res native.Resource, from, to native.State) {
	l.ops = append(l.ops, recordedOp{kind: "transition", dst: res.(*Resource), from: from, to: to})
}

// Copy records a full-resource copy.
func (l *CommandList) Copy(dst, src native.Resource) {
	l.ops = append(l.ops, recordedOp{kind: "copy", dst: dst.(*Resource), src: src.(*Resource)})
}

// Close ends recording.
func (l *CommandList) Close() error {
	l.closed = true
	l.journal.Append("close-list(%s)", l.name)
	return nil
}

// Release destroys the list.
func (l *CommandList) Release() {
	l.journal.Append("release-list(%s)", l.name)
}

// CommandQueue applies executed lists immediately and completes fences on
// Signal, unless the device defers signals.
type CommandQueue struct {
	device  *Device
	journal *Journal

	pending []func()
}

// Execute applies the recorded commands of each closed list.
func (q *CommandQueue) Execute(lists ...native.CommandList) {
	for _, list := range lists {
		l := list.(*CommandList)
		for _, op := range l.ops {
			switch op.kind {
			case "copy":
				copyInto(op.dst, op.src)
				q.journal.Append("copy(%s<-%s)", op.dst.name, op.src.name)
			case "transition":
				q.journal.Append("transition(%s,%s->%s)", op.dst.name, op.from, op.to)
			}
		}
	}
}

// Signal completes the fence at value, or parks the completion when the
// device defers signals.
func (q *CommandQueue) Signal(fence native.Fence, value uint64) error {
	f := fence.(*Fence)
	q.journal.Append("signal(%d)", value)
	if q.device.deferSignals {
		q.pending = append(q.pending, func() { f.complete(value) })
		return nil
	}
	f.complete(value)
	return nil
}

// FlushSignals completes every deferred signal in submission order.
func (q *CommandQueue) FlushSignals() {
	pending := q.pending
	q.pending = nil
	for _, fire := range pending {
		fire()
	}
}

// fenceWaiter pairs a target value with the event to set.
type fenceWaiter struct {
	value uint64
	ev    native.Event
}

// Fence is the simulated monotonic fence.
type Fence struct {
	mu        sync.Mutex
	journal   *Journal
	completed uint64
	waiters   []fenceWaiter
}

// CompletedValue returns the last signalled value.
func (f *Fence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// SetEventOnCompletion arms ev for value, setting it immediately when the
// fence already passed it.
func (f *Fence) SetEventOnCompletion(value uint64, ev native.Event) error {
	f.mu.Lock()
	if f.completed >= value {
		f.mu.Unlock()
		ev.Set()
		return nil
	}
	f.waiters = append(f.waiters, fenceWaiter{value: value, ev: ev})
	f.mu.Unlock()
	return nil
}

// Release destroys the fence.
func (f *Fence) Release() {
	if f.journal != nil {
		f.journal.Append("release-fence")
	}
}

// complete advances the fence and fires reached waiters.
func (f *Fence) complete(value uint64) {
	f.mu.Lock()
	if value > f.completed {
		f.completed = value
	}
	var fire []native.Event
	remaining := f.waiters[:0]
	for _, w := range f.waiters {
		if w.value <= f.completed {
			fire = append(fire, w.ev)
		} else {
			remaining = append(remaining, w)
		}
	}
	f.waiters = remaining
	f.mu.Unlock()
	for _, ev := range fire {
		ev.Set()
	}
}
