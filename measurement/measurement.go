// Copyright 2025 Diffusion Posterior Sampling Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package measurement provides the public API for differentiable forward
// measurement operators (inpainting, blur, grayscale, magnitude) and the
// observation noisers used to synthesize corrupted measurements.
package measurement

import (
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/measurement"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// Operator is a differentiable forward measurement operator.
type Operator[B tensor.Backend] = measurement.Operator[B]

// Identity observes the signal unchanged.
type Identity[B tensor.Backend] = measurement.Identity[B]

// NewIdentity creates the identity operator.
func NewIdentity[B tensor.Backend]() *Identity[B] {
	return measurement.NewIdentity[B]()
}

// Magnitude observes element-wise absolute values.
type Magnitude[B tensor.Backend] = measurement.Magnitude[B]

// NewMagnitude creates the magnitude operator.
func NewMagnitude[B tensor.Backend]() *Magnitude[B] {
	return measurement.NewMagnitude[B]()
}

// RandomInpainting masks pixels with an i.i.d. Bernoulli keep mask, fixed
// on first application.
type RandomInpainting[B tensor.Backend] = measurement.RandomInpainting[B]

// NewRandomInpainting creates the operator. keepRatio must be in (0, 1].
func NewRandomInpainting[B tensor.Backend](keepRatio float32) (*RandomInpainting[B], error) {
	return measurement.NewRandomInpainting[B](keepRatio)
}

// BoxInpainting zeroes a fixed rectangular region.
type BoxInpainting[B tensor.Backend] = measurement.BoxInpainting[B]

// NewBoxInpainting creates the operator for the given box.
func NewBoxInpainting[B tensor.Backend](top, left, height, width int) (*BoxInpainting[B], error) {
	return measurement.NewBoxInpainting[B](top, left, height, width)
}

// GaussianBlur convolves each channel with a fixed Gaussian kernel.
type GaussianBlur[B tensor.Backend] = measurement.GaussianBlur[B]

// NewGaussianBlur creates the operator. kernelSize must be odd.
func NewGaussianBlur[B tensor.Backend](kernelSize int, sigma float64) (*GaussianBlur[B], error) {
	return measurement.NewGaussianBlur[B](kernelSize, sigma)
}

// Grayscale observes BT.601 luminance replicated over channels.
type Grayscale[B tensor.Backend] = measurement.Grayscale[B]

// NewGrayscale creates the operator.
func NewGrayscale[B tensor.Backend]() *Grayscale[B] {
	return measurement.NewGrayscale[B]()
}

// Noiser corrupts a clean measurement with observation noise.
type Noiser[B tensor.Backend] = measurement.Noiser[B]

// GaussianNoiser adds i.i.d. Gaussian noise.
type GaussianNoiser[B tensor.Backend] = measurement.GaussianNoiser[B]

// NewGaussianNoiser creates the noiser. sigma must be non-negative.
func NewGaussianNoiser[B tensor.Backend](sigma float32) (*GaussianNoiser[B], error) {
	return measurement.NewGaussianNoiser[B](sigma)
}

// PoissonNoiser applies element-wise Poisson corruption.
type PoissonNoiser[B tensor.Backend] = measurement.PoissonNoiser[B]

// NewPoissonNoiser creates the noiser. rate must be positive.
func NewPoissonNoiser[B tensor.Backend](rate float64) (*PoissonNoiser[B], error) {
	return measurement.NewPoissonNoiser[B](rate)
}
