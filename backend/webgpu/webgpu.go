// Copyright 2025 Diffusion Posterior Sampling Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend for GPU-accelerated tensor
// operations.
//
// WebGPU is a cross-platform graphics and compute API that works on:
//   - Windows (via Dawn/D3D12)
//   - macOS (via Dawn/Metal)
//   - Linux (via Dawn/Vulkan)
//
// Example:
//
//	import (
//	    "github.com/DanVicenteIhanus/diffusion-posterior-sampling/autodiff"
//	    "github.com/DanVicenteIhanus/diffusion-posterior-sampling/backend/webgpu"
//	    "github.com/DanVicenteIhanus/diffusion-posterior-sampling/tensor"
//	)
//
//	func main() {
//	    gpu, err := webgpu.New()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer gpu.Release()
//
//	    backend := autodiff.New(gpu)
//	    x := tensor.Randn[float32](tensor.Shape{1024, 1024}, backend)
//	}
package webgpu

import (
	internalwebgpu "github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/backend/webgpu"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/tensor"
)

// Backend represents the WebGPU backend implementation for GPU-accelerated
// tensor operations. Operations without a GPU kernel fall back to a CPU
// implementation transparently.
type Backend = internalwebgpu.Backend

// Compile-time checks that Backend implements the backend interfaces.
var (
	_ tensor.Backend       = (*Backend)(nil)
	_ tensor.CacheReleaser = (*Backend)(nil)
)

// New creates a new WebGPU backend.
//
// This function initializes the WebGPU device and returns a backend
// ready for tensor operations. Call Release() when done to free GPU
// resources.
//
// Returns an error if WebGPU initialization fails (e.g., no compatible GPU).
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable checks if WebGPU is available on the current system.
//
// It attempts to initialize a WebGPU adapter to verify that a compatible
// GPU and drivers are present. Useful for choosing a backend at startup:
//
//	if webgpu.IsAvailable() {
//	    gpu, _ := webgpu.New()
//	    defer gpu.Release()
//	    run(autodiff.New(gpu))
//	} else {
//	    run(autodiff.New(cpu.New()))
//	}
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
