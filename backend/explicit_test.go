package backend

import (
	"image/color"
	"strings"
	"testing"

	"github.com/Unity-Technologies/ClusterDisplay/native"
	gfxsim "github.com/Unity-Technologies/ClusterDisplay/native/sim"
)

// explicitRig bundles the simulated handles behind an explicit adapter.
type explicitRig struct {
	dev   *gfxsim.Device
	chain *gfxsim.FlipChain
	queue *gfxsim.CommandQueue
	gfx   *ExplicitDevice
}

func newExplicitRig(t *testing.T, buffers int) *explicitRig {
	t.Helper()
	dev := gfxsim.NewDevice("explicit")
	chain := gfxsim.NewSwapChain(dev, 16, 16, buffers)
	queue := dev.NewCommandQueue()
	gfx, err := NewExplicitDevice(Config{
		Device:       dev,
		SwapChain:    chain,
		CommandQueue: queue,
		SyncInterval: 1,
	})
	if err != nil {
		t.Fatalf("NewExplicitDevice: %v", err)
	}
	return &explicitRig{dev: dev, chain: chain, queue: queue, gfx: gfx}
}

func countPrefix(ops []string, prefix string) int {
	n := 0
	for _, op := range ops {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return n
}

func TestExplicitRequiresCommandQueue(t *testing.T) {
	dev := gfxsim.NewDevice("explicit")
	chain := gfxsim.NewSwapChain(dev, 16, 16, 2)
	_, err := NewExplicitDevice(Config{Device: dev, SwapChain: chain})
	if err != ErrMissingCommandQueue {
		t.Errorf("NewExplicitDevice error = %v, want %v", err, ErrMissingCommandQueue)
	}
}

func TestExplicitInitiateRepeats(t *testing.T) {
	rig := newExplicitRig(t, 2)

	// Paint the current back buffer so the capture is observable.
	bb, _ := rig.chain.Buffer(0)
	bb.(*gfxsim.Resource).Image().Set(3, 3, color.RGBA{R: 200, A: 255})

	rig.gfx.InitiateRepeats()

	ops := rig.dev.Journal().Ops()
	for _, want := range []string{
		"create-allocator(" + repeatAllocatorName + ")",
		"create-list(" + repeatListName + ")",
		"copy(tex0<-bb0)",
		"transition(tex0,copy-dest->copy-source)",
		"signal(1)",
	} {
		found := false
		for _, op := range ops {
			if strings.HasPrefix(op, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("journal %v missing %q", ops, want)
		}
	}

	// The saved frame carries no GPU-visible usage flags and holds the
	// captured pixels.
	if rig.gfx.savedFrame.Desc().Usage != 0 {
		t.Errorf("saved frame usage = %d, want 0", rig.gfx.savedFrame.Desc().Usage)
	}
	saved := rig.gfx.savedFrame.(*gfxsim.Resource)
	if got := saved.Image().RGBAAt(3, 3); got.R != 200 {
		t.Errorf("saved pixel = %+v, want the captured back buffer color", got)
	}
}

func TestExplicitPrepareSingleRepeatRestoresBackBuffer(t *testing.T) {
	rig := newExplicitRig(t, 2)

	bb, _ := rig.chain.Buffer(0)
	img := bb.(*gfxsim.Resource).Image()
	img.Set(1, 1, color.RGBA{G: 120, A: 255})

	rig.gfx.InitiateRepeats()

	// The host scribbles over the back buffer between presents.
	img.Set(1, 1, color.RGBA{B: 9, A: 255})

	rig.gfx.PrepareSingleRepeat()

	if got := img.RGBAAt(1, 1); got.G != 120 || got.B != 0 {
		t.Errorf("back buffer pixel = %+v, want the saved frame restored", got)
	}
	if rig.gfx.firstRepeatIndex != 0 {
		t.Errorf("firstRepeatIndex = %d, want 0", rig.gfx.firstRepeatIndex)
	}

	ops := rig.dev.Journal().Ops()
	for _, want := range []string{
		"transition(bb0,present->copy-dest)",
		"copy(bb0<-tex0)",
		"transition(bb0,copy-dest->present)",
		"signal(2)",
	} {
		found := false
		for _, op := range ops {
			if op == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("journal %v missing %q", ops, want)
		}
	}
}

func TestExplicitConcludeRealignsSwapChain(t *testing.T) {
	rig := newExplicitRig(t, 3)

	rig.gfx.InitiateRepeats()
	rig.gfx.PrepareSingleRepeat() // latches firstRepeatIndex = 0

	// The repeat presents moved the chain off the starting index.
	rig.chain.SetCurrent(1)
	rig.dev.Journal().Reset()

	rig.gfx.ConcludeRepeats()

	if got := rig.chain.CurrentBackBufferIndex(); got != 0 {
		t.Errorf("CurrentBackBufferIndex = %d, want 0", got)
	}
	ops := rig.dev.Journal().Ops()
	if got := countPrefix(ops, "present("); got != 2 {
		t.Errorf("re-alignment presents = %d, want 2", got)
	}
	if rig.gfx.savedFrame != nil {
		t.Error("saved frame still held after ConcludeRepeats")
	}
	if got := countPrefix(ops, "release(bb"); got != 3 {
		t.Errorf("back buffer releases = %d, want 3", got)
	}
	if countPrefix(ops, "release-list(") != 1 || countPrefix(ops, "release-allocator(") != 1 {
		t.Errorf("journal %v missing list/allocator release", ops)
	}
}

func TestExplicitConcludeWithoutRepeatsSkipsRealignment(t *testing.T) {
	rig := newExplicitRig(t, 3)

	rig.gfx.InitiateRepeats()
	rig.chain.SetCurrent(2)
	rig.dev.Journal().Reset()

	// No PrepareSingleRepeat ran, so there is no index to restore.
	rig.gfx.ConcludeRepeats()

	if got := countPrefix(rig.dev.Journal().Ops(), "present("); got != 0 {
		t.Errorf("re-alignment presents = %d, want 0", got)
	}
}

func TestExplicitFenceValuesAreMonotonic(t *testing.T) {
	rig := newExplicitRig(t, 2)

	rig.gfx.InitiateRepeats()
	rig.gfx.PrepareSingleRepeat()
	rig.gfx.PrepareSingleRepeat()

	ops := rig.dev.Journal().Ops()
	want := []string{"signal(1)", "signal(2)", "signal(3)"}
	var got []string
	for _, op := range ops {
		if strings.HasPrefix(op, "signal(") {
			got = append(got, op)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("signals = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("signals = %v, want %v", got, want)
		}
	}
}

func TestExplicitDegradedWithoutFlipChain(t *testing.T) {
	dev := gfxsim.NewDevice("explicit")
	chain := gfxsim.NewSwapChain(dev, 16, 16, 2)
	queue := dev.NewCommandQueue()
	gfx, err := NewExplicitDevice(Config{
		Device:       dev,
		SwapChain:    chain.Legacy(),
		CommandQueue: queue,
	})
	if err != nil {
		t.Fatalf("NewExplicitDevice: %v", err)
	}
	dev.Journal().Reset()

	gfx.InitiateRepeats()
	gfx.PrepareSingleRepeat()
	gfx.ConcludeRepeats()

	if ops := dev.Journal().Ops(); len(ops) != 0 {
		t.Errorf("degraded adapter touched the device: %v", ops)
	}
}

func TestExplicitFreeDuringActiveSequence(t *testing.T) {
	rig := newExplicitRig(t, 2)

	rig.gfx.InitiateRepeats()
	rig.gfx.PrepareSingleRepeat()
	rig.gfx.Free()

	ops := rig.dev.Journal().Ops()
	if countPrefix(ops, "release-fence") != 1 {
		t.Errorf("journal %v missing fence release", ops)
	}
	if rig.gfx.savedFrame != nil || rig.gfx.fence != nil {
		t.Error("adapter still holds resources after Free")
	}

	// Free must be reentrant once everything is gone.
	rig.gfx.Free()
}

func TestRegistry(t *testing.T) {
	if !Supported(native.RendererImmediate) {
		t.Error("immediate renderer not registered")
	}
	if !Supported(native.RendererExplicit) {
		t.Error("explicit renderer not registered")
	}
	if Supported(native.RendererUnknown) {
		t.Error("unknown renderer reported as supported")
	}

	if _, err := New(native.RendererUnknown, Config{}); err != ErrRendererNotSupported {
		t.Errorf("New(unknown) error = %v, want %v", err, ErrRendererNotSupported)
	}
	dev := gfxsim.NewDevice("explicit")
	chain := gfxsim.NewSwapChain(dev, 8, 8, 2)
	if _, err := New(native.RendererExplicit, Config{SwapChain: chain}); err != ErrMissingDevice {
		t.Errorf("New without device error = %v, want %v", err, ErrMissingDevice)
	}
	if _, err := New(native.RendererExplicit, Config{Device: dev}); err != ErrMissingSwapChain {
		t.Errorf("New without swap chain error = %v, want %v", err, ErrMissingSwapChain)
	}
}
