package cpu_test

import (
	"math"
	"testing"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/backend/cpu"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

func toFloat32(t *testing.T, raw *tensor.RawTensor) []float32 {
	t.Helper()
	return raw.AsFloat32()
}

// TestName tests backend metadata.
func TestName(t *testing.T) {
	backend := cpu.New()
	if backend.Name() != "CPU" {
		t.Errorf("Name() = %s, want CPU", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Device() = %v, want CPU", backend.Device())
	}
}

// TestNewWithDevice tests that fallback backends can tag results with a
// different device.
func TestNewWithDevice(t *testing.T) {
	backend := cpu.NewWithDevice(tensor.WebGPU)
	if backend.Device() != tensor.WebGPU {
		t.Errorf("Device() = %v, want WebGPU", backend.Device())
	}

	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, backend)
	c := backend.Add(a.Raw(), b.Raw())
	if c.Device() != tensor.WebGPU {
		t.Errorf("result device = %v, want WebGPU", c.Device())
	}
}

// TestArithmetic tests the element-wise binary operations.
func TestArithmetic(t *testing.T) {
	backend := cpu.New()
	a, _ := tensor.FromSlice([]float32{4, 9, 16, 25}, tensor.Shape{2, 2}, backend)
	b, _ := tensor.FromSlice([]float32{2, 3, 4, 5}, tensor.Shape{2, 2}, backend)

	tests := []struct {
		name string
		got  *tensor.RawTensor
		want []float32
	}{
		{"Add", backend.Add(a.Raw(), b.Raw()), []float32{6, 12, 20, 30}},
		{"Sub", backend.Sub(a.Raw(), b.Raw()), []float32{2, 6, 12, 20}},
		{"Mul", backend.Mul(a.Raw(), b.Raw()), []float32{8, 27, 64, 125}},
		{"Div", backend.Div(a.Raw(), b.Raw()), []float32{2, 3, 4, 5}},
	}

	for _, tt := range tests {
		data := toFloat32(t, tt.got)
		for i := range tt.want {
			if data[i] != tt.want[i] {
				t.Errorf("%s[%d] = %v, want %v", tt.name, i, data[i], tt.want[i])
			}
		}
	}
}

// TestBroadcastMul tests broadcasting a [N,1,1,1] coefficient over a batch,
// the access pattern of schedule coefficient extraction.
func TestBroadcastMul(t *testing.T) {
	backend := cpu.New()
	coeff, _ := tensor.FromSlice([]float32{2, 3}, tensor.Shape{2, 1, 1, 1}, backend)
	x, _ := tensor.FromSlice([]float32{1, 1, 1, 1, 1, 1, 1, 1}, tensor.Shape{2, 1, 2, 2}, backend)

	out := backend.Mul(coeff.Raw(), x.Raw())
	data := toFloat32(t, out)

	want := []float32{2, 2, 2, 2, 3, 3, 3, 3}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, data[i], want[i])
		}
	}
}

// TestScalarOps tests the scalar operations.
func TestScalarOps(t *testing.T) {
	backend := cpu.New()
	x, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)

	tests := []struct {
		name string
		got  *tensor.RawTensor
		want []float32
	}{
		{"MulScalar", backend.MulScalar(x.Raw(), float32(2)), []float32{2, 4, 6}},
		{"AddScalar", backend.AddScalar(x.Raw(), float32(10)), []float32{11, 12, 13}},
		{"SubScalar", backend.SubScalar(x.Raw(), float32(1)), []float32{0, 1, 2}},
		{"DivScalar", backend.DivScalar(x.Raw(), float32(2)), []float32{0.5, 1, 1.5}},
	}

	for _, tt := range tests {
		data := toFloat32(t, tt.got)
		for i := range tt.want {
			if data[i] != tt.want[i] {
				t.Errorf("%s[%d] = %v, want %v", tt.name, i, data[i], tt.want[i])
			}
		}
	}
}

// TestMathOps tests the element-wise math operations.
func TestMathOps(t *testing.T) {
	backend := cpu.New()
	x, _ := tensor.FromSlice([]float32{-1, 0, 1, 4}, tensor.Shape{4}, backend)

	abs := toFloat32(t, backend.Abs(x.Raw()))
	wantAbs := []float32{1, 0, 1, 4}
	for i := range wantAbs {
		if abs[i] != wantAbs[i] {
			t.Errorf("Abs[%d] = %v, want %v", i, abs[i], wantAbs[i])
		}
	}

	relu := toFloat32(t, backend.ReLU(x.Raw()))
	wantReLU := []float32{0, 0, 1, 4}
	for i := range wantReLU {
		if relu[i] != wantReLU[i] {
			t.Errorf("ReLU[%d] = %v, want %v", i, relu[i], wantReLU[i])
		}
	}

	pos, _ := tensor.FromSlice([]float32{1, 4, 9}, tensor.Shape{3}, backend)
	sqrt := toFloat32(t, backend.Sqrt(pos.Raw()))
	wantSqrt := []float32{1, 2, 3}
	for i := range wantSqrt {
		if sqrt[i] != wantSqrt[i] {
			t.Errorf("Sqrt[%d] = %v, want %v", i, sqrt[i], wantSqrt[i])
		}
	}

	exp := toFloat32(t, backend.Exp(pos.Raw()))
	for i, v := range []float32{1, 4, 9} {
		want := float32(math.Exp(float64(v)))
		if math.Abs(float64(exp[i]-want)) > 1e-3 {
			t.Errorf("Exp[%d] = %v, want %v", i, exp[i], want)
		}
	}
}

// TestSum tests full reduction to a scalar.
func TestSum(t *testing.T) {
	backend := cpu.New()
	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)

	out := backend.Sum(x.Raw())
	data := toFloat32(t, out)
	if len(data) != 1 || data[0] != 10 {
		t.Errorf("Sum = %v, want [10]", data)
	}
}

// TestSumDim tests reduction along one dimension.
func TestSumDim(t *testing.T) {
	backend := cpu.New()
	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)

	kept := backend.SumDim(x.Raw(), 1, true)
	if !kept.Shape().Equal(tensor.Shape{2, 1}) {
		t.Errorf("SumDim keepdim shape = %v, want [2 1]", kept.Shape())
	}
	data := toFloat32(t, kept)
	if data[0] != 6 || data[1] != 15 {
		t.Errorf("SumDim keepdim = %v, want [6 15]", data)
	}

	dropped := backend.SumDim(x.Raw(), 0, false)
	if !dropped.Shape().Equal(tensor.Shape{3}) {
		t.Errorf("SumDim shape = %v, want [3]", dropped.Shape())
	}
	data = toFloat32(t, dropped)
	want := []float32{5, 7, 9}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("SumDim[%d] = %v, want %v", i, data[i], want[i])
		}
	}
}

// TestExpand tests broadcasting to a larger shape.
func TestExpand(t *testing.T) {
	backend := cpu.New()
	x, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2, 1}, backend)

	out := backend.Expand(x.Raw(), tensor.Shape{2, 3})
	data := toFloat32(t, out)
	want := []float32{1, 1, 1, 2, 2, 2}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("Expand[%d] = %v, want %v", i, data[i], want[i])
		}
	}
}

// TestUnsqueezeSqueeze tests dimension insertion and removal.
func TestUnsqueezeSqueeze(t *testing.T) {
	backend := cpu.New()
	x, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)

	up := backend.Unsqueeze(x.Raw(), 0)
	if !up.Shape().Equal(tensor.Shape{1, 3}) {
		t.Errorf("Unsqueeze shape = %v, want [1 3]", up.Shape())
	}

	down := backend.Squeeze(up, 0)
	if !down.Shape().Equal(tensor.Shape{3}) {
		t.Errorf("Squeeze shape = %v, want [3]", down.Shape())
	}
}

// TestCatChunk tests that Chunk splits what Cat joins.
func TestCatChunk(t *testing.T) {
	backend := cpu.New()
	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{1, 2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{1, 2}, backend)

	joined := backend.Cat([]*tensor.RawTensor{a.Raw(), b.Raw()}, 1)
	if !joined.Shape().Equal(tensor.Shape{1, 4}) {
		t.Fatalf("Cat shape = %v, want [1 4]", joined.Shape())
	}

	parts := backend.Chunk(joined, 2, 1)
	if len(parts) != 2 {
		t.Fatalf("Chunk returned %d parts, want 2", len(parts))
	}
	first := toFloat32(t, parts[0])
	second := toFloat32(t, parts[1])
	if first[0] != 1 || first[1] != 2 || second[0] != 3 || second[1] != 4 {
		t.Errorf("Chunk round-trip = %v %v, want [1 2] [3 4]", first, second)
	}
}

// TestConv2D tests convolution against hand-computed values.
func TestConv2D(t *testing.T) {
	backend := cpu.New()
	input, _ := tensor.FromSlice(
		[]float32{1, 2, 3, 4, 5, 6, 7, 8, 9},
		tensor.Shape{1, 1, 3, 3}, backend)
	kernel, _ := tensor.FromSlice(
		[]float32{1, 1, 1, 1},
		tensor.Shape{1, 1, 2, 2}, backend)

	out := backend.Conv2D(input.Raw(), kernel.Raw(), 1, 0)
	if !out.Shape().Equal(tensor.Shape{1, 1, 2, 2}) {
		t.Fatalf("Conv2D shape = %v, want [1 1 2 2]", out.Shape())
	}

	data := toFloat32(t, out)
	want := []float32{12, 16, 24, 28}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("Conv2D[%d] = %v, want %v", i, data[i], want[i])
		}
	}
}

// TestConv2D_Padding tests same-size output with padding.
func TestConv2D_Padding(t *testing.T) {
	backend := cpu.New()
	input, _ := tensor.FromSlice(
		[]float32{1, 1, 1, 1, 1, 1, 1, 1, 1},
		tensor.Shape{1, 1, 3, 3}, backend)
	kernel, _ := tensor.FromSlice(
		make([]float32, 9), tensor.Shape{1, 1, 3, 3}, backend)
	kdata := kernel.Raw().AsFloat32()
	kdata[4] = 1 // center tap only

	out := backend.Conv2D(input.Raw(), kernel.Raw(), 1, 1)
	if !out.Shape().Equal(tensor.Shape{1, 1, 3, 3}) {
		t.Fatalf("Conv2D shape = %v, want [1 1 3 3]", out.Shape())
	}
	for i, v := range toFloat32(t, out) {
		if v != 1 {
			t.Errorf("Conv2D[%d] = %v, want 1", i, v)
		}
	}
}

// TestConv2DInputBackward tests the gradient of Conv2D w.r.t. its input.
// With an all-ones 2x2 kernel and all-ones output gradient, each input
// pixel's gradient counts the windows covering it.
func TestConv2DInputBackward(t *testing.T) {
	backend := cpu.New()
	kernel, _ := tensor.FromSlice(
		[]float32{1, 1, 1, 1},
		tensor.Shape{1, 1, 2, 2}, backend)
	outputGrad, _ := tensor.FromSlice(
		[]float32{1, 1, 1, 1},
		tensor.Shape{1, 1, 2, 2}, backend)

	grad := backend.Conv2DInputBackward(outputGrad.Raw(), kernel.Raw(), tensor.Shape{1, 1, 3, 3}, 1, 0)
	if !grad.Shape().Equal(tensor.Shape{1, 1, 3, 3}) {
		t.Fatalf("input grad shape = %v, want [1 1 3 3]", grad.Shape())
	}

	data := toFloat32(t, grad)
	want := []float32{1, 2, 1, 2, 4, 2, 1, 2, 1}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("input grad[%d] = %v, want %v", i, data[i], want[i])
		}
	}
}

// TestConv2DKernelBackward tests the gradient of Conv2D w.r.t. its kernel.
func TestConv2DKernelBackward(t *testing.T) {
	backend := cpu.New()
	input, _ := tensor.FromSlice(
		[]float32{1, 2, 3, 4, 5, 6, 7, 8, 9},
		tensor.Shape{1, 1, 3, 3}, backend)
	outputGrad, _ := tensor.FromSlice(
		[]float32{1, 1, 1, 1},
		tensor.Shape{1, 1, 2, 2}, backend)

	grad := backend.Conv2DKernelBackward(outputGrad.Raw(), input.Raw(), tensor.Shape{1, 1, 2, 2}, 1, 0)
	if !grad.Shape().Equal(tensor.Shape{1, 1, 2, 2}) {
		t.Fatalf("kernel grad shape = %v, want [1 1 2 2]", grad.Shape())
	}

	data := toFloat32(t, grad)
	want := []float32{12, 16, 24, 28}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("kernel grad[%d] = %v, want %v", i, data[i], want[i])
		}
	}
}
