// Package measurement provides forward measurement operators: the physics
// that maps a clean signal to the observed, corrupted measurement a
// posterior sampler conditions on.
//
// Every operator is differentiable end to end (all tensor math routes
// through the backend, so the gradient tape sees it). Operators that
// build a kernel or mask on first use follow a single-assignment cache
// discipline: the cached artifact is constructed exactly once and is
// immutable afterwards. Reuse across unrelated sampling runs must use a
// fresh operator instance; instances are not safe for concurrent
// sampling calls.
package measurement

import (
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// Operator maps a clean signal [N,C,H,W] to measurement space.
type Operator[B tensor.Backend] interface {
	Apply(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]
}

// Identity observes the signal directly (denoising-only guidance).
type Identity[B tensor.Backend] struct{}

// NewIdentity creates the identity operator.
func NewIdentity[B tensor.Backend]() *Identity[B] {
	return &Identity[B]{}
}

// Apply returns the input unchanged.
func (op *Identity[B]) Apply(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return x
}

// Magnitude observes element-wise absolute values, discarding sign.
type Magnitude[B tensor.Backend] struct{}

// NewMagnitude creates the magnitude operator.
func NewMagnitude[B tensor.Backend]() *Magnitude[B] {
	return &Magnitude[B]{}
}

// Apply returns |x|.
func (op *Magnitude[B]) Apply(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return x.Abs()
}
