package diffusion

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// SpaceTimesteps computes the set of original-schedule indices retained by
// a respaced sampler.
//
// Two specification forms are accepted:
//   - "ddimN": fixed-stride mode. The smallest positive stride whose
//     range(0, numTimesteps, stride) yields exactly N indices is used; if
//     no stride in [1, numTimesteps) works, that is a configuration error.
//   - "a,b,c": per-section counts, see SpaceTimestepsSections.
func SpaceTimesteps(numTimesteps int, sectionCounts string) (map[int]struct{}, error) {
	if desired, ok := strings.CutPrefix(sectionCounts, "ddim"); ok {
		count, err := strconv.Atoi(desired)
		if err != nil {
			return nil, fmt.Errorf("respace: invalid ddim count %q: %w", desired, err)
		}
		for stride := 1; stride < numTimesteps; stride++ {
			if strideCount(numTimesteps, stride) == count {
				retained := make(map[int]struct{}, count)
				for i := 0; i < numTimesteps; i += stride {
					retained[i] = struct{}{}
				}
				return retained, nil
			}
		}
		return nil, fmt.Errorf("respace: cannot create exactly %d steps with an integer stride over %d timesteps", count, numTimesteps)
	}

	parts := strings.Split(sectionCounts, ",")
	counts := make([]int, len(parts))
	for i, part := range parts {
		count, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("respace: invalid section count %q: %w", part, err)
		}
		counts[i] = count
	}
	return SpaceTimestepsSections(numTimesteps, counts)
}

// SpaceTimestepsSections is the list-of-integers form of SpaceTimesteps.
//
// The original schedule is partitioned into len(counts) contiguous
// sections of near-equal size (the first numTimesteps mod len(counts)
// sections get one extra slot). Each section contributes counts[i]
// retained indices spread evenly across its span by linear interpolation
// with round-to-nearest; a count larger than the section's span is a
// configuration error.
func SpaceTimestepsSections(numTimesteps int, counts []int) (map[int]struct{}, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("respace: no section counts given")
	}

	sizePer := numTimesteps / len(counts)
	extra := numTimesteps % len(counts)

	retained := make(map[int]struct{})
	start := 0
	for i, count := range counts {
		size := sizePer
		if i < extra {
			size++
		}
		if size < count {
			return nil, fmt.Errorf("respace: cannot divide section of %d steps into %d", size, count)
		}
		if count <= 0 {
			return nil, fmt.Errorf("respace: section count must be positive, got %d", count)
		}

		// count == 1 takes the section start; otherwise endpoints included.
		var frac float64
		if count > 1 {
			frac = float64(size-1) / float64(count-1)
		}
		cur := 0.0
		for j := 0; j < count; j++ {
			retained[start+int(math.Round(cur))] = struct{}{}
			cur += frac
		}
		start += size
	}
	return retained, nil
}

// strideCount is len(range(0, numTimesteps, stride)).
func strideCount(numTimesteps, stride int) int {
	return (numTimesteps + stride - 1) / stride
}

// SpacedDiffusion is a diffusion process over a retained subsequence of a
// base schedule. It embeds a GaussianDiffusion constructed from derived
// betas, so every closed-form query transparently operates on the
// reduced-length process; TimestepMap translates spaced indices back to
// original-schedule values.
type SpacedDiffusion[B tensor.Backend] struct {
	*GaussianDiffusion[B]

	timestepMap      []int
	originalNumSteps int
}

// NewSpacedDiffusion derives the reduced process from the base betas and
// the retained-index set. Walking the retained indices in increasing
// order, each derived beta is 1 - cumprod_i/cumprod_last, which makes the
// reduced process's cumulative products match the base's at every
// retained index.
func NewSpacedDiffusion[B tensor.Backend](useTimesteps map[int]struct{}, baseBetas []float64, backend B) (*SpacedDiffusion[B], error) {
	if len(useTimesteps) == 0 {
		return nil, fmt.Errorf("respace: empty retained-timestep set")
	}

	base, err := NewGaussianDiffusion(baseBetas, backend)
	if err != nil {
		return nil, err
	}

	lastAlpha := 1.0
	timestepMap := make([]int, 0, len(useTimesteps))
	derivedBetas := make([]float64, 0, len(useTimesteps))
	for i, cumprod := range base.AlphasCumprod() {
		if _, ok := useTimesteps[i]; !ok {
			continue
		}
		derivedBetas = append(derivedBetas, 1-cumprod/lastAlpha)
		lastAlpha = cumprod
		timestepMap = append(timestepMap, i)
	}

	reduced, err := NewGaussianDiffusion(derivedBetas, backend)
	if err != nil {
		return nil, fmt.Errorf("respace: derived schedule: %w", err)
	}

	return &SpacedDiffusion[B]{
		GaussianDiffusion: reduced,
		timestepMap:       timestepMap,
		originalNumSteps:  len(baseBetas),
	}, nil
}

// TimestepMap returns the retained original-schedule indices in increasing
// order. Position k in the map is spaced-schedule timestep k.
func (d *SpacedDiffusion[B]) TimestepMap() []int {
	return d.timestepMap
}

// OriginalNumSteps returns the length of the base schedule.
func (d *SpacedDiffusion[B]) OriginalNumSteps() int {
	return d.originalNumSteps
}

// WrapModel adapts a model to the spaced schedule (see adapter.go).
func (d *SpacedDiffusion[B]) WrapModel(model Model[B], rescaleTimesteps bool) Model[B] {
	return WrapModel(model, d.timestepMap, rescaleTimesteps, d.originalNumSteps)
}
