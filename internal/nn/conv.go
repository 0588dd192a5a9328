package nn

import (
	"fmt"
	"math"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// Conv2D is a 2D convolutional layer.
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [out_channels, in_channels, k, k]
// Output shape: [batch, out_channels, out_h, out_w]
type Conv2D[B tensor.Backend] struct {
	stride  int
	padding int

	weight *tensor.Tensor[float32, B]
	bias   *tensor.Tensor[float32, B] // [1, out_channels, 1, 1] or nil
}

// NewConv2D creates a convolutional layer with He-initialized weights
// (suited to the ReLU activations of the small denoisers built here) and
// zero bias when useBias is set.
func NewConv2D[B tensor.Backend](
	inChannels, outChannels, kernelSize, stride, padding int,
	useBias bool,
	backend B,
) *Conv2D[B] {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv2d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	if kernelSize <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %d", padding))
	}

	weightShape := tensor.Shape{outChannels, inChannels, kernelSize, kernelSize}
	fanIn := inChannels * kernelSize * kernelSize
	std := float32(math.Sqrt(2 / float64(fanIn)))
	weight := tensor.Randn[float32](weightShape, backend).MulScalar(std)

	var bias *tensor.Tensor[float32, B]
	if useBias {
		bias = tensor.Zeros[float32](tensor.Shape{1, outChannels, 1, 1}, backend)
	}

	return &Conv2D[B]{
		stride:  stride,
		padding: padding,
		weight:  weight,
		bias:    bias,
	}
}

// Forward convolves the input with the layer's weights and adds the bias.
func (c *Conv2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := input.Conv2D(c.weight, c.stride, c.padding)
	if c.bias != nil {
		out = out.Add(c.bias)
	}
	return out
}

// Parameters returns the weight and, when present, the bias.
func (c *Conv2D[B]) Parameters() []*tensor.Tensor[float32, B] {
	params := []*tensor.Tensor[float32, B]{c.weight}
	if c.bias != nil {
		params = append(params, c.bias)
	}
	return params
}
