package ops

import "github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"

// ChunkOp represents splitting a tensor into n equal parts along a
// dimension. It is the one multi-output operation on the tape: the
// denoiser's two-headed output (noise prediction and variance values)
// is separated with it.
//
// Backward pass: the per-chunk gradients are concatenated back along
// the split dimension.
type ChunkOp struct {
	inputs  []*tensor.RawTensor
	outputs []*tensor.RawTensor
	dim     int
}

// NewChunkOp creates a new ChunkOp.
func NewChunkOp(x *tensor.RawTensor, outputs []*tensor.RawTensor, dim int) *ChunkOp {
	return &ChunkOp{
		inputs:  []*tensor.RawTensor{x},
		outputs: outputs,
		dim:     dim,
	}
}

// Backward is not used for multi-output operations; the tape calls
// BackwardMulti instead.
func (op *ChunkOp) Backward(_ *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	panic("ChunkOp: use BackwardMulti for multi-output operations")
}

// BackwardMulti concatenates the chunk gradients back along the split
// dimension. Gradients for unused chunks are zero-filled by the tape.
func (op *ChunkOp) BackwardMulti(outputGrads []*tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Cat(outputGrads, op.dim)}
}

// Inputs returns the input tensor.
func (op *ChunkOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the first output chunk.
func (op *ChunkOp) Output() *tensor.RawTensor { return op.outputs[0] }

// Outputs returns all output chunks.
func (op *ChunkOp) Outputs() []*tensor.RawTensor { return op.outputs }
