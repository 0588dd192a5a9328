// Copyright 2025 Diffusion Posterior Sampling Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides a minimal module layer for building small
// convolutional denoisers used in the examples and tests.
package nn

import (
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/nn"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// Module is the common interface for all network components.
type Module[B tensor.Backend] = nn.Module[B]

// Sequential chains modules, feeding each output into the next.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// Conv2D is a 2D convolutional layer.
type Conv2D[B tensor.Backend] = nn.Conv2D[B]

// NewConv2D creates a convolutional layer with He-initialized weights.
//
// Example:
//
//	backend := cpu.New()
//	conv := nn.NewConv2D(3, 16, 3, 1, 1, true, backend)
func NewConv2D[B tensor.Backend](
	inChannels, outChannels, kernelSize, stride, padding int,
	useBias bool,
	backend B,
) *Conv2D[B] {
	return nn.NewConv2D(inChannels, outChannels, kernelSize, stride, padding, useBias, backend)
}

// ReLU is the rectified linear activation as a module.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}
