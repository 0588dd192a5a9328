package diffusion_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/diffusion"
)

func sortedTimesteps(use map[int]struct{}) []int {
	out := make([]int, 0, len(use))
	for t := range use {
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}

// TestSpaceTimesteps_DDIM checks the DDIM stride form: "ddim50" over 1000
// steps picks every 20th timestep starting at 0.
func TestSpaceTimesteps_DDIM(t *testing.T) {
	use, err := diffusion.SpaceTimesteps(1000, "ddim50")
	require.NoError(t, err)
	require.Len(t, use, 50)

	ts := sortedTimesteps(use)
	for i, got := range ts {
		assert.Equal(t, i*20, got)
	}
}

// TestSpaceTimesteps_DDIMUsesSmallestStride checks that the smallest
// stride producing the requested count wins when several would.
func TestSpaceTimesteps_DDIMUsesSmallestStride(t *testing.T) {
	// ceil(10/4) = 3: stride 4 gives {0, 4, 8}.
	use, err := diffusion.SpaceTimesteps(10, "ddim3")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4, 8}, sortedTimesteps(use))
}

func TestSpaceTimesteps_DDIMImpossibleCount(t *testing.T) {
	// No stride over 10 timesteps yields exactly 7 steps.
	_, err := diffusion.SpaceTimesteps(10, "ddim7")
	assert.Error(t, err)
}

// TestSpaceTimesteps_SingleSection checks the comma form with one count:
// "250" over 1000 steps spans the whole range including both endpoints.
func TestSpaceTimesteps_SingleSection(t *testing.T) {
	use, err := diffusion.SpaceTimesteps(1000, "250")
	require.NoError(t, err)
	require.Len(t, use, 250)

	ts := sortedTimesteps(use)
	assert.Equal(t, 0, ts[0])
	assert.Equal(t, 999, ts[len(ts)-1])
}

// TestSpaceTimestepsSections checks the multi-section partition: counts
// are distributed over equal sections, the first T%k sections one longer.
func TestSpaceTimestepsSections(t *testing.T) {
	use, err := diffusion.SpaceTimestepsSections(10, []int{2, 3})
	require.NoError(t, err)

	// Sections are [0,5) and [5,10); 2 steps from the first, 3 from the
	// second, with endpoints of each section included.
	assert.Equal(t, []int{0, 4, 5, 7, 9}, sortedTimesteps(use))
}

func TestSpaceTimestepsSections_CountOne(t *testing.T) {
	use, err := diffusion.SpaceTimestepsSections(10, []int{1})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, sortedTimesteps(use))
}

func TestSpaceTimestepsSections_Errors(t *testing.T) {
	_, err := diffusion.SpaceTimestepsSections(10, []int{11})
	assert.Error(t, err, "count larger than section")

	_, err = diffusion.SpaceTimestepsSections(10, []int{0})
	assert.Error(t, err, "non-positive count")

	_, err = diffusion.SpaceTimesteps(10, "abc")
	assert.Error(t, err, "unparsable section counts")
}

// TestNewSpacedDiffusion_RoundTrip checks the core respacing invariant:
// the reduced process reproduces the base process marginals at every
// retained timestep.
func TestNewSpacedDiffusion_RoundTrip(t *testing.T) {
	backend := newBackend()
	baseBetas := diffusion.LinearBetas(1000)
	base, err := diffusion.NewGaussianDiffusion(baseBetas, backend)
	require.NoError(t, err)

	use, err := diffusion.SpaceTimesteps(1000, "ddim50")
	require.NoError(t, err)

	spaced, err := diffusion.NewSpacedDiffusion(use, baseBetas, backend)
	require.NoError(t, err)
	require.Equal(t, 50, spaced.NumTimesteps())

	baseAC := base.AlphasCumprod()
	spacedAC := spaced.AlphasCumprod()
	for i, origT := range spaced.TimestepMap() {
		assert.InDelta(t, baseAC[origT], spacedAC[i], 1e-9, "spaced step %d (original %d)", i, origT)
	}
}

// TestNewSpacedDiffusion_TimestepMapSorted checks the map is the sorted
// retained set and the original length is preserved.
func TestNewSpacedDiffusion_TimestepMapSorted(t *testing.T) {
	backend := newBackend()
	baseBetas := diffusion.LinearBetas(100)

	use, err := diffusion.SpaceTimesteps(100, "10")
	require.NoError(t, err)

	spaced, err := diffusion.NewSpacedDiffusion(use, baseBetas, backend)
	require.NoError(t, err)

	assert.Equal(t, sortedTimesteps(use), spaced.TimestepMap())
	assert.Equal(t, 100, spaced.OriginalNumSteps())
}

func TestNewSpacedDiffusion_EmptySelection(t *testing.T) {
	backend := newBackend()
	_, err := diffusion.NewSpacedDiffusion(map[int]struct{}{}, diffusion.LinearBetas(10), backend)
	assert.Error(t, err)
}
