// Copyright 2025 Diffusion Posterior Sampling Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend.
package cpu

import (
	internalcpu "github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/backend/cpu"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/tensor"
)

// Backend represents the CPU backend implementation.
//
// The CPU backend provides pure Go implementations of all tensor
// operations and serves as the reference implementation for the
// other backends.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/DanVicenteIhanus/diffusion-posterior-sampling/backend/cpu"
//	    "github.com/DanVicenteIhanus/diffusion-posterior-sampling/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	}
func New() *Backend {
	return internalcpu.New()
}
