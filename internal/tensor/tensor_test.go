package tensor_test

import (
	"testing"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/backend/cpu"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// TestZeros tests zero-filled tensor creation.
func TestZeros(t *testing.T) {
	backend := cpu.New()
	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)

	if !x.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("Shape() = %v, want [2 3]", x.Shape())
	}
	for i, v := range x.Data() {
		if v != 0 {
			t.Errorf("Data()[%d] = %v, want 0", i, v)
		}
	}
}

// TestFull tests constant-filled tensor creation.
func TestFull(t *testing.T) {
	backend := cpu.New()
	x := tensor.Full[float32](tensor.Shape{4}, 3.5, backend)

	for i, v := range x.Data() {
		if v != 3.5 {
			t.Errorf("Data()[%d] = %v, want 3.5", i, v)
		}
	}
}

// TestFromSlice tests tensor creation from a Go slice.
func TestFromSlice(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	if x.At(0, 1) != 2 {
		t.Errorf("At(0,1) = %v, want 2", x.At(0, 1))
	}
	if x.At(1, 0) != 3 {
		t.Errorf("At(1,0) = %v, want 3", x.At(1, 0))
	}
}

// TestFromSlice_ShapeMismatch tests that mismatched data length fails.
func TestFromSlice_ShapeMismatch(t *testing.T) {
	backend := cpu.New()
	_, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2}, backend)
	if err == nil {
		t.Error("FromSlice should fail when data length does not match shape")
	}
}

// TestArange tests sequential tensor creation.
func TestArange(t *testing.T) {
	backend := cpu.New()
	x := tensor.Arange[float32](2, 6, backend)

	want := []float32{2, 3, 4, 5}
	got := x.Data()
	if len(got) != len(want) {
		t.Fatalf("len(Data()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Data()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestAddBroadcast tests element-wise addition with broadcasting.
func TestAddBroadcast(t *testing.T) {
	backend := cpu.New()
	a, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	b, _ := tensor.FromSlice([]float32{10, 20, 30}, tensor.Shape{3}, backend)

	c := a.Add(b)

	want := []float32{11, 22, 33, 14, 25, 36}
	for i, v := range c.Data() {
		if v != want[i] {
			t.Errorf("Data()[%d] = %v, want %v", i, v, want[i])
		}
	}
}

// TestReshape tests reshaping preserves data.
func TestReshape(t *testing.T) {
	backend := cpu.New()
	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)

	y := x.Reshape(3, 2)
	if !y.Shape().Equal(tensor.Shape{3, 2}) {
		t.Errorf("Shape() = %v, want [3 2]", y.Shape())
	}
	if y.At(2, 1) != 6 {
		t.Errorf("At(2,1) = %v, want 6", y.At(2, 1))
	}
}

// TestChunk tests splitting a tensor along a dimension.
func TestChunk(t *testing.T) {
	backend := cpu.New()
	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{2, 4}, backend)

	parts := x.Chunk(2, 1)
	if len(parts) != 2 {
		t.Fatalf("Chunk returned %d parts, want 2", len(parts))
	}
	if !parts[0].Shape().Equal(tensor.Shape{2, 2}) {
		t.Errorf("parts[0].Shape() = %v, want [2 2]", parts[0].Shape())
	}

	want0 := []float32{1, 2, 5, 6}
	want1 := []float32{3, 4, 7, 8}
	for i := range want0 {
		if parts[0].Data()[i] != want0[i] {
			t.Errorf("parts[0].Data()[%d] = %v, want %v", i, parts[0].Data()[i], want0[i])
		}
		if parts[1].Data()[i] != want1[i] {
			t.Errorf("parts[1].Data()[%d] = %v, want %v", i, parts[1].Data()[i], want1[i])
		}
	}
}

// TestDetach tests that Detach keeps values but drops gradient tracking.
func TestDetach(t *testing.T) {
	backend := cpu.New()
	x := tensor.Ones[float32](tensor.Shape{2}, backend).RequireGrad()

	if !x.RequiresGrad() {
		t.Error("RequireGrad() should mark the tensor")
	}

	y := x.Detach()
	if y.RequiresGrad() {
		t.Error("Detach() should clear gradient tracking")
	}
	for i, v := range y.Data() {
		if v != 1 {
			t.Errorf("Data()[%d] = %v, want 1", i, v)
		}
	}
}

// TestBroadcastShapes tests NumPy-style shape broadcasting.
func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name    string
		a, b    tensor.Shape
		want    tensor.Shape
		wantErr bool
	}{
		{"equal", tensor.Shape{2, 3}, tensor.Shape{2, 3}, tensor.Shape{2, 3}, false},
		{"scalar-ish", tensor.Shape{2, 3}, tensor.Shape{1}, tensor.Shape{2, 3}, false},
		{"trailing", tensor.Shape{2, 3}, tensor.Shape{3}, tensor.Shape{2, 3}, false},
		{"middle one", tensor.Shape{4, 1, 3}, tensor.Shape{4, 5, 3}, tensor.Shape{4, 5, 3}, false},
		{"incompatible", tensor.Shape{2, 3}, tensor.Shape{4}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := tensor.BroadcastShapes(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Errorf("BroadcastShapes(%v, %v) should fail", tt.a, tt.b)
				}
				return
			}
			if err != nil {
				t.Fatalf("BroadcastShapes(%v, %v) failed: %v", tt.a, tt.b, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("BroadcastShapes(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
