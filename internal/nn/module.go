// Package nn provides a minimal module layer for building small
// convolutional denoisers: a Module interface, a Conv2D layer and a
// Sequential container.
package nn

import "github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"

// Module is the base interface for network components.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module,
	// empty for parameterless modules.
	Parameters() []*tensor.Tensor[float32, B]
}

// Sequential chains modules, feeding each output into the next.
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{modules: modules}
}

// Forward runs the input through every module in order.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := input
	for _, m := range s.modules {
		out = m.Forward(out)
	}
	return out
}

// Parameters collects the parameters of all contained modules.
func (s *Sequential[B]) Parameters() []*tensor.Tensor[float32, B] {
	var params []*tensor.Tensor[float32, B]
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

// ReLU is the rectified linear activation as a module.
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a ReLU module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies max(0, x).
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.ReLU()
}

// Parameters returns an empty slice; ReLU has none.
func (r *ReLU[B]) Parameters() []*tensor.Tensor[float32, B] {
	return nil
}
