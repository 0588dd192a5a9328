package cpu

import (
	"fmt"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// Conv2D performs 2D convolution.
//
// Shapes:
//   - input:  [N, C_in, H, W]
//   - kernel: [C_out, C_in, kH, kW]
//   - output: [N, C_out, (H+2p-kH)/s+1, (W+2p-kW)/s+1]
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	in, k := conv2DShapes(input, kernel, stride, padding)

	outH := (in.h+2*padding-k.h)/stride + 1
	outW := (in.w+2*padding-k.w)/stride + 1
	outShape := tensor.Shape{in.n, k.out, outH, outW}
	result := mustNewRaw(outShape, input.DType(), cpu.device, "conv2d")

	src := input.AsFloat32()
	w := kernel.AsFloat32()
	dst := result.AsFloat32()

	for n := 0; n < in.n; n++ {
		for co := 0; co < k.out; co++ {
			for oh := 0; oh < outH; oh++ {
				for ow := 0; ow < outW; ow++ {
					var acc float32
					for ci := 0; ci < in.c; ci++ {
						for kh := 0; kh < k.h; kh++ {
							ih := oh*stride + kh - padding
							if ih < 0 || ih >= in.h {
								continue
							}
							for kw := 0; kw < k.w; kw++ {
								iw := ow*stride + kw - padding
								if iw < 0 || iw >= in.w {
									continue
								}
								acc += src[((n*in.c+ci)*in.h+ih)*in.w+iw] *
									w[((co*in.c+ci)*k.h+kh)*k.w+kw]
							}
						}
					}
					dst[((n*k.out+co)*outH+oh)*outW+ow] = acc
				}
			}
		}
	}

	return result
}

// Conv2DInputBackward computes the gradient of Conv2D with respect to its input.
//
// gradInput[n,ci,ih,iw] = sum over (co,kh,kw) of
// outputGrad[n,co,oh,ow] * kernel[co,ci,kh,kw] where ih = oh*s+kh-p.
func (cpu *CPUBackend) Conv2DInputBackward(outputGrad, kernel *tensor.RawTensor, inputShape tensor.Shape, stride, padding int) *tensor.RawTensor {
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d input backward: input shape must be 4D, got %v", inputShape))
	}
	gShape := outputGrad.Shape()
	kShape := kernel.Shape()

	n, cin, h, w := inputShape[0], inputShape[1], inputShape[2], inputShape[3]
	cout, kh, kw := kShape[0], kShape[2], kShape[3]
	outH, outW := gShape[2], gShape[3]

	result := mustNewRaw(inputShape, outputGrad.DType(), cpu.device, "conv2d input backward")

	g := outputGrad.AsFloat32()
	kd := kernel.AsFloat32()
	dst := result.AsFloat32()

	for ni := 0; ni < n; ni++ {
		for co := 0; co < cout; co++ {
			for oh := 0; oh < outH; oh++ {
				for ow := 0; ow < outW; ow++ {
					grad := g[((ni*cout+co)*outH+oh)*outW+ow]
					if grad == 0 {
						continue
					}
					for ci := 0; ci < cin; ci++ {
						for ki := 0; ki < kh; ki++ {
							ih := oh*stride + ki - padding
							if ih < 0 || ih >= h {
								continue
							}
							for kj := 0; kj < kw; kj++ {
								iw := ow*stride + kj - padding
								if iw < 0 || iw >= w {
									continue
								}
								dst[((ni*cin+ci)*h+ih)*w+iw] += grad * kd[((co*cin+ci)*kh+ki)*kw+kj]
							}
						}
					}
				}
			}
		}
	}

	return result
}

// Conv2DKernelBackward computes the gradient of Conv2D with respect to its kernel.
//
// gradKernel[co,ci,kh,kw] = sum over (n,oh,ow) of
// outputGrad[n,co,oh,ow] * input[n,ci,oh*s+kh-p, ow*s+kw-p].
func (cpu *CPUBackend) Conv2DKernelBackward(outputGrad, input *tensor.RawTensor, kernelShape tensor.Shape, stride, padding int) *tensor.RawTensor {
	if len(kernelShape) != 4 {
		panic(fmt.Sprintf("conv2d kernel backward: kernel shape must be 4D, got %v", kernelShape))
	}
	gShape := outputGrad.Shape()
	iShape := input.Shape()

	n, cin, h, w := iShape[0], iShape[1], iShape[2], iShape[3]
	cout, kh, kw := kernelShape[0], kernelShape[2], kernelShape[3]
	outH, outW := gShape[2], gShape[3]

	result := mustNewRaw(kernelShape, outputGrad.DType(), cpu.device, "conv2d kernel backward")

	g := outputGrad.AsFloat32()
	src := input.AsFloat32()
	dst := result.AsFloat32()

	for ni := 0; ni < n; ni++ {
		for co := 0; co < cout; co++ {
			for oh := 0; oh < outH; oh++ {
				for ow := 0; ow < outW; ow++ {
					grad := g[((ni*cout+co)*outH+oh)*outW+ow]
					if grad == 0 {
						continue
					}
					for ci := 0; ci < cin; ci++ {
						for ki := 0; ki < kh; ki++ {
							ih := oh*stride + ki - padding
							if ih < 0 || ih >= h {
								continue
							}
							for kj := 0; kj < kw; kj++ {
								iw := ow*stride + kj - padding
								if iw < 0 || iw >= w {
									continue
								}
								dst[((co*cin+ci)*kh+ki)*kw+kj] += grad * src[((ni*cin+ci)*h+ih)*w+iw]
							}
						}
					}
				}
			}
		}
	}

	return result
}

type convDims struct {
	n, c, h, w int
	out        int
}

// conv2DShapes validates convolution operands and extracts dimensions.
func conv2DShapes(input, kernel *tensor.RawTensor, stride, padding int) (in, k convDims) {
	iShape := input.Shape()
	kShape := kernel.Shape()

	if len(iShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N, C, H, W], got %v", iShape))
	}
	if len(kShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out, C_in, kH, kW], got %v", kShape))
	}
	if iShape[1] != kShape[1] {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", iShape[1], kShape[1]))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv2d: stride must be positive, got %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: padding must be non-negative, got %d", padding))
	}
	if input.DType() != tensor.Float32 || kernel.DType() != tensor.Float32 {
		panic(fmt.Sprintf("conv2d: only float32 supported, got %s/%s", input.DType(), kernel.DType()))
	}

	in = convDims{n: iShape[0], c: iShape[1], h: iShape[2], w: iShape[3]}
	k = convDims{h: kShape[2], w: kShape[3], out: kShape[0], c: kShape[1]}
	return in, k
}
