package diffusion

import (
	"fmt"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// wrappedModel translates spaced-schedule timestep indices to
// original-schedule values before invoking the underlying model.
type wrappedModel[B tensor.Backend] struct {
	model            Model[B]
	timestepMap      []int
	rescale          bool
	originalNumSteps int
}

// WrapModel returns a model addressed by spaced-schedule indices
// (0..len(timestepMap)-1). Each index is translated by table lookup to its
// original-schedule value; with rescale enabled the value is further
// scaled by 1000/originalNumSteps so models trained against a nominal
// 1000-step range see familiar inputs. Wrapping an already-wrapped model
// returns it unchanged, so double translation cannot happen.
func WrapModel[B tensor.Backend](model Model[B], timestepMap []int, rescale bool, originalNumSteps int) Model[B] {
	if _, ok := model.(*wrappedModel[B]); ok {
		return model
	}
	return &wrappedModel[B]{
		model:            model,
		timestepMap:      timestepMap,
		rescale:          rescale,
		originalNumSteps: originalNumSteps,
	}
}

// Forward translates the timestep batch and calls the wrapped model.
func (w *wrappedModel[B]) Forward(x, t *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	indices := t.Data()
	translated := make([]float32, len(indices))
	for i, v := range indices {
		idx := int(v)
		if idx < 0 || idx >= len(w.timestepMap) {
			panic(fmt.Sprintf("adapter: spaced timestep %d out of range [0, %d)", idx, len(w.timestepMap)))
		}
		value := float32(w.timestepMap[idx])
		if w.rescale {
			value *= 1000.0 / float32(w.originalNumSteps)
		}
		translated[i] = value
	}

	mapped, err := tensor.FromSlice(translated, t.Shape(), t.Backend())
	if err != nil {
		panic(fmt.Sprintf("adapter: timestep tensor: %v", err))
	}
	return w.model.Forward(x, mapped)
}
