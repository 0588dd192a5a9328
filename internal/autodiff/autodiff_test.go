package autodiff_test

import (
	"testing"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/autodiff"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/backend/cpu"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// TestAutodiffBackend_Name tests the Name method.
func TestAutodiffBackend_Name(t *testing.T) {
	backend := autodiff.New(cpu.New())
	expected := "Autodiff(CPU)"
	if backend.Name() != expected {
		t.Errorf("Name() = %s, want %s", backend.Name(), expected)
	}
}

// TestAutodiffBackend_Device tests the Device method.
func TestAutodiffBackend_Device(t *testing.T) {
	backend := autodiff.New(cpu.New())
	if backend.Device() != tensor.CPU {
		t.Errorf("Device() = %v, want %v", backend.Device(), tensor.CPU)
	}
}

// TestTape_Recording tests tape recording on/off.
func TestTape_Recording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	if tape.IsRecording() {
		t.Error("Tape should not be recording initially")
	}

	tape.StartRecording()
	if !tape.IsRecording() {
		t.Error("Tape should be recording after StartRecording()")
	}

	tape.StopRecording()
	if tape.IsRecording() {
		t.Error("Tape should not be recording after StopRecording()")
	}
}

// TestTape_Clear tests that Clear empties the tape but preserves the
// recording state, which the samplers rely on between reverse steps.
func TestTape_Clear(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()

	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, backend)
	backend.Add(a.Raw(), b.Raw())

	if tape.NumOps() == 0 {
		t.Error("Tape should have recorded operations")
	}

	tape.Clear()

	if tape.NumOps() != 0 {
		t.Errorf("Tape should be empty after Clear(), got %d ops", tape.NumOps())
	}
	if !tape.IsRecording() {
		t.Error("Tape should still be recording after Clear()")
	}
}

// TestBackward_Square tests d/dx sum(x*x) = 2x.
func TestBackward_Square(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()
	defer backend.Tape().StopRecording()

	x, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	x = x.RequireGrad()
	loss := x.Mul(x).Sum()

	grads := autodiff.Backward(loss, backend)
	grad := grads[x.Raw()]
	if grad == nil {
		t.Fatal("no gradient for x")
	}

	want := []float32{2, 4, 6}
	data := grad.AsFloat32()
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("grad[%d] = %v, want %v", i, data[i], want[i])
		}
	}
}

// TestBackward_ScalarChain tests d/dx sum(3x + 1) = 3.
func TestBackward_ScalarChain(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()
	defer backend.Tape().StopRecording()

	x, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	loss := x.MulScalar(3).AddScalar(1).Sum()

	grads := autodiff.Backward(loss, backend)
	grad := grads[x.Raw()]
	if grad == nil {
		t.Fatal("no gradient for x")
	}

	for i, v := range grad.AsFloat32() {
		if v != 3 {
			t.Errorf("grad[%d] = %v, want 3", i, v)
		}
	}
}

// TestBackward_BroadcastReduces tests that gradients of broadcast inputs
// are reduced back to the input shape.
func TestBackward_BroadcastReduces(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()
	defer backend.Tape().StopRecording()

	a, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	b, _ := tensor.FromSlice([]float32{10, 20, 30}, tensor.Shape{3}, backend)
	loss := a.Add(b).Sum()

	grads := autodiff.Backward(loss, backend)
	gradB := grads[b.Raw()]
	if gradB == nil {
		t.Fatal("no gradient for b")
	}
	if !gradB.Shape().Equal(tensor.Shape{3}) {
		t.Fatalf("grad shape = %v, want [3]", gradB.Shape())
	}
	// b appears in both rows, so each element's gradient is 2.
	for i, v := range gradB.AsFloat32() {
		if v != 2 {
			t.Errorf("grad[%d] = %v, want 2", i, v)
		}
	}
}

// TestBackward_Conv2D tests gradients through convolution.
func TestBackward_Conv2D(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()
	defer backend.Tape().StopRecording()

	x, _ := tensor.FromSlice(
		[]float32{1, 2, 3, 4, 5, 6, 7, 8, 9},
		tensor.Shape{1, 1, 3, 3}, backend)
	k, _ := tensor.FromSlice(
		[]float32{1, 1, 1, 1},
		tensor.Shape{1, 1, 2, 2}, backend)
	loss := x.Conv2D(k, 1, 0).Sum()

	grads := autodiff.Backward(loss, backend)

	gradX := grads[x.Raw()]
	if gradX == nil {
		t.Fatal("no gradient for input")
	}
	wantX := []float32{1, 2, 1, 2, 4, 2, 1, 2, 1}
	for i, v := range gradX.AsFloat32() {
		if v != wantX[i] {
			t.Errorf("input grad[%d] = %v, want %v", i, v, wantX[i])
		}
	}

	gradK := grads[k.Raw()]
	if gradK == nil {
		t.Fatal("no gradient for kernel")
	}
	wantK := []float32{12, 16, 24, 28}
	for i, v := range gradK.AsFloat32() {
		if v != wantK[i] {
			t.Errorf("kernel grad[%d] = %v, want %v", i, v, wantK[i])
		}
	}
}

// TestBackward_Chunk tests that gradient flows only into the used half.
func TestBackward_Chunk(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()
	defer backend.Tape().StopRecording()

	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{1, 4}, backend)
	halves := x.Chunk(2, 1)
	loss := halves[0].Sum()

	grads := autodiff.Backward(loss, backend)
	grad := grads[x.Raw()]
	if grad == nil {
		t.Fatal("no gradient for x")
	}

	want := []float32{1, 1, 0, 0}
	for i, v := range grad.AsFloat32() {
		if v != want[i] {
			t.Errorf("grad[%d] = %v, want %v", i, v, want[i])
		}
	}
}

// TestBackward_DetachAndClear tests the pattern the samplers use between
// reverse steps: detach the running sample and clear the tape, so earlier
// operations no longer receive gradients.
func TestBackward_DetachAndClear(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()
	defer tape.StopRecording()

	x, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	x = x.RequireGrad()
	y := x.MulScalar(3)

	next := y.Detach().RequireGrad()
	tape.Clear()

	loss := next.MulScalar(2).Sum()
	grads := autodiff.Backward(loss, backend)

	grad := grads[next.Raw()]
	if grad == nil {
		t.Fatal("no gradient for the detached leaf")
	}
	for i, v := range grad.AsFloat32() {
		if v != 2 {
			t.Errorf("grad[%d] = %v, want 2", i, v)
		}
	}
	if grads[x.Raw()] != nil {
		t.Error("gradient should not reach operations cleared from the tape")
	}
}

// TestBackward_Accumulates tests gradient accumulation when a tensor is
// used more than once: d/dx sum(x + x) = 2.
func TestBackward_Accumulates(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()
	defer backend.Tape().StopRecording()

	x, _ := tensor.FromSlice([]float32{5, 7}, tensor.Shape{2}, backend)
	loss := x.Add(x).Sum()

	grads := autodiff.Backward(loss, backend)
	grad := grads[x.Raw()]
	if grad == nil {
		t.Fatal("no gradient for x")
	}
	for i, v := range grad.AsFloat32() {
		if v != 2 {
			t.Errorf("grad[%d] = %v, want 2", i, v)
		}
	}
}

// TestBackward_SumDim tests gradient of a dimension reduction.
func TestBackward_SumDim(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()
	defer backend.Tape().StopRecording()

	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	loss := x.SumDim(1, false).Sum()

	grads := autodiff.Backward(loss, backend)
	grad := grads[x.Raw()]
	if grad == nil {
		t.Fatal("no gradient for x")
	}
	if !grad.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("grad shape = %v, want [2 3]", grad.Shape())
	}
	for i, v := range grad.AsFloat32() {
		if v != 1 {
			t.Errorf("grad[%d] = %v, want 1", i, v)
		}
	}
}
