package sim

import (
	"image/color"
	"testing"

	"github.com/Unity-Technologies/ClusterDisplay/internal/hostevent"
	"github.com/Unity-Technologies/ClusterDisplay/native"
)

func TestSwapChainRotation(t *testing.T) {
	dev := NewDevice("test")
	chain := NewSwapChain(dev, 8, 8, 3)

	if got := chain.CurrentBackBufferIndex(); got != 0 {
		t.Fatalf("initial index = %d, want 0", got)
	}
	for i, want := range []int{1, 2, 0, 1} {
		if err := chain.Present(1, 0); err != nil {
			t.Fatalf("Present %d: %v", i, err)
		}
		if got := chain.CurrentBackBufferIndex(); got != want {
			t.Errorf("index after present %d = %d, want %d", i, got, want)
		}
	}
}

func TestSwapChainBufferOutOfRange(t *testing.T) {
	dev := NewDevice("test")
	chain := NewSwapChain(dev, 8, 8, 2)
	if _, err := chain.Buffer(2); err == nil {
		t.Error("Buffer(2) on a 2-buffer chain returned no error")
	}
}

func TestImmediateContextCopy(t *testing.T) {
	dev := NewDevice("test")
	src, _ := dev.CreateTexture(native.ResourceDesc{Width: 4, Height: 4})
	dst, _ := dev.CreateTexture(native.ResourceDesc{Width: 4, Height: 4})
	src.(*Resource).Image().Set(1, 2, color.RGBA{R: 9, A: 255})

	dev.ImmediateContext().CopyResource(dst, src)

	if got := dst.(*Resource).Image().RGBAAt(1, 2); got.R != 9 {
		t.Errorf("copied pixel = %+v, want R=9", got)
	}
}

func TestCommandListExecution(t *testing.T) {
	dev := NewDevice("test")
	queue := dev.NewCommandQueue()
	alloc, _ := dev.CreateCommandAllocator("a")
	list, _ := dev.CreateCommandList("l", alloc)
	src, _ := dev.CreateTexture(native.ResourceDesc{Width: 4, Height: 4})
	dst, _ := dev.CreateTexture(native.ResourceDesc{Width: 4, Height: 4})
	src.(*Resource).Image().Set(0, 0, color.RGBA{B: 5, A: 255})

	list.Transition(dst, native.StatePresent, native.StateCopyDest)
	list.Copy(dst, src)
	list.Transition(dst, native.StateCopyDest, native.StatePresent)
	if err := list.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	queue.Execute(list)

	if got := dst.(*Resource).Image().RGBAAt(0, 0); got.B != 5 {
		t.Errorf("copied pixel = %+v, want B=5", got)
	}
}

func TestFenceImmediateSignal(t *testing.T) {
	dev := NewDevice("test")
	queue := dev.NewCommandQueue()
	fence, _ := dev.CreateFence(0)

	if err := queue.Signal(fence, 1); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if got := fence.CompletedValue(); got != 1 {
		t.Errorf("CompletedValue = %d, want 1", got)
	}

	// An event armed for an already-passed value fires immediately.
	ev, err := hostevent.New()
	if err != nil {
		t.Fatalf("hostevent.New: %v", err)
	}
	defer ev.Close()
	if err := fence.SetEventOnCompletion(1, ev); err != nil {
		t.Fatalf("SetEventOnCompletion: %v", err)
	}
	ev.Wait()
}

func TestFenceDeferredSignal(t *testing.T) {
	dev := NewDevice("test")
	dev.DeferSignals(true)
	queue := dev.NewCommandQueue()
	fence, _ := dev.CreateFence(0)

	queue.Signal(fence, 1)
	if got := fence.CompletedValue(); got != 0 {
		t.Fatalf("CompletedValue = %d before FlushSignals, want 0", got)
	}

	ev, err := hostevent.New()
	if err != nil {
		t.Fatalf("hostevent.New: %v", err)
	}
	defer ev.Close()
	if err := fence.SetEventOnCompletion(1, ev); err != nil {
		t.Fatalf("SetEventOnCompletion: %v", err)
	}

	done := make(chan struct{})
	go func() {
		ev.Wait()
		close(done)
	}()

	queue.FlushSignals()
	<-done
	if got := fence.CompletedValue(); got != 1 {
		t.Errorf("CompletedValue = %d, want 1", got)
	}
}

func TestJournalRecordsOperations(t *testing.T) {
	dev := NewDevice("test")
	chain := NewSwapChain(dev, 8, 8, 2)
	chain.Present(1, 0)

	ops := dev.Journal().Ops()
	if len(ops) == 0 || ops[len(ops)-1] != "present(sync=1,flags=0)" {
		t.Errorf("journal = %v, want trailing present entry", ops)
	}

	dev.Journal().Reset()
	if got := dev.Journal().Ops(); len(got) != 0 {
		t.Errorf("journal after reset = %v, want empty", got)
	}
}
