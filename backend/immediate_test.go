package backend

import (
	"image/color"
	"testing"

	gfxsim "github.com/Unity-Technologies/ClusterDisplay/native/sim"
)

func newImmediateRig(t *testing.T) (*gfxsim.Device, *gfxsim.FlipChain, *ImmediateDevice) {
	t.Helper()
	dev := gfxsim.NewDevice("immediate")
	chain := gfxsim.NewSwapChain(dev, 16, 16, 2)
	gfx, err := NewImmediateDevice(Config{Device: dev, SwapChain: chain, SyncInterval: 1})
	if err != nil {
		t.Fatalf("NewImmediateDevice: %v", err)
	}
	return dev, chain, gfx
}

func TestImmediateInitiateRepeatsCapturesBackBuffer(t *testing.T) {
	dev, chain, gfx := newImmediateRig(t)

	bb, _ := chain.Buffer(0)
	bb.(*gfxsim.Resource).Image().Set(5, 5, color.RGBA{R: 77, A: 255})

	gfx.InitiateRepeats()

	if gfx.savedFrame == nil {
		t.Fatal("no saved frame after InitiateRepeats")
	}
	if gfx.savedFrame.Desc().Usage != 0 {
		t.Errorf("saved frame usage = %d, want 0", gfx.savedFrame.Desc().Usage)
	}
	saved := gfx.savedFrame.(*gfxsim.Resource)
	if got := saved.Image().RGBAAt(5, 5); got.R != 77 {
		t.Errorf("saved pixel = %+v, want the back buffer color", got)
	}

	ops := dev.Journal().Ops()
	if countPrefix(ops, "set-render-target(bb0)") != 1 {
		t.Errorf("journal %v missing render-target bind", ops)
	}
}

func TestImmediatePrepareSingleRepeatRestoresBackBuffer(t *testing.T) {
	_, chain, gfx := newImmediateRig(t)

	bb, _ := chain.Buffer(0)
	img := bb.(*gfxsim.Resource).Image()
	img.Set(2, 2, color.RGBA{G: 50, A: 255})

	gfx.InitiateRepeats()
	img.Set(2, 2, color.RGBA{B: 3, A: 255})
	gfx.PrepareSingleRepeat()

	if got := img.RGBAAt(2, 2); got.G != 50 || got.B != 0 {
		t.Errorf("back buffer pixel = %+v, want the saved frame restored", got)
	}
}

func TestImmediatePrepareWithoutInitiateIsNoop(t *testing.T) {
	dev, _, gfx := newImmediateRig(t)
	dev.Journal().Reset()

	gfx.PrepareSingleRepeat()

	if ops := dev.Journal().Ops(); len(ops) != 0 {
		t.Errorf("no-op prepare touched the device: %v", ops)
	}
}

func TestImmediateConcludeReleasesResources(t *testing.T) {
	dev, _, gfx := newImmediateRig(t)

	gfx.InitiateRepeats()
	gfx.ConcludeRepeats()

	if gfx.savedFrame != nil || gfx.backBuffer != nil {
		t.Error("adapter still holds repeat resources after ConcludeRepeats")
	}
	ops := dev.Journal().Ops()
	if countPrefix(ops, "release(tex0)") != 1 {
		t.Errorf("journal %v missing saved frame release", ops)
	}

	// A second conclude has nothing left to release.
	dev.Journal().Reset()
	gfx.ConcludeRepeats()
	if ops := dev.Journal().Ops(); len(ops) != 0 {
		t.Errorf("second ConcludeRepeats touched the device: %v", ops)
	}
}
