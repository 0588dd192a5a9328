// Copyright 2025 Diffusion Posterior Sampling Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides automatic differentiation capabilities.
//
// This package implements reverse-mode automatic differentiation
// (backpropagation) using a gradient tape. It wraps any backend to add
// autodiff capabilities; the posterior-gradient correction in the
// diffusion package depends on it to differentiate the measurement loss
// with respect to the current sample.
//
// Example:
//
//	import (
//	    "github.com/DanVicenteIhanus/diffusion-posterior-sampling/autodiff"
//	    "github.com/DanVicenteIhanus/diffusion-posterior-sampling/backend/cpu"
//	    "github.com/DanVicenteIhanus/diffusion-posterior-sampling/tensor"
//	)
//
//	func main() {
//	    base := cpu.New()
//	    backend := autodiff.New(base)
//
//	    x := tensor.Randn[float32](tensor.Shape{2, 3}, backend).RequireGrad()
//	    loss := x.Mul(x).Sum() // Operations recorded on tape
//
//	    grads := autodiff.Backward(loss, backend)
//	    _ = grads[x.Raw()]
//	}
package autodiff

import (
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/autodiff"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// Backend is the autodiff-enabled backend.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates a new autodiff backend wrapping the given backend.
//
// Example:
//
//	base := cpu.New()
//	backend := autodiff.New(base)
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable is the interface for backends that support
// backpropagation.
type BackwardCapable = autodiff.BackwardCapable

// Backward computes gradients via backpropagation, returning a map from
// raw tensors to their gradients.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(t, backend)
}
