// Package diffusion implements guided reverse-diffusion sampling:
// timestep respacing, posterior-gradient (DPS) correction, an ancestral
// DDPM-style sampler and a multistep ODE-solver update.
package diffusion

import (
	"fmt"
	"math"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// Model is a denoising model: given a noisy batch x [N,C,H,W] and a batch
// of timestep values t [N], it predicts the noise added to x. Two-head
// models return 2C channels with the first C being the noise estimate.
type Model[B tensor.Backend] interface {
	Forward(x, t *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]
}

// GaussianDiffusion is the base (unspaced) diffusion process. All schedule
// arrays are kept in float64 so that the respacing round-trip reproduces
// cumulative products within floating-point tolerance.
type GaussianDiffusion[B tensor.Backend] struct {
	backend      B
	numTimesteps int

	betas         []float64
	alphasCumprod []float64

	sqrtAlphasCumprod         []float64
	sqrtOneMinusAlphasCumprod []float64
	sqrtRecipAlphasCumprod    []float64
	sqrtRecipm1AlphasCumprod  []float64

	posteriorVariance           []float64
	posteriorLogVarianceClipped []float64
	posteriorMeanCoef1          []float64
	posteriorMeanCoef2          []float64
}

// NewGaussianDiffusion constructs the process from a per-step noise
// increment sequence. Every beta must lie in (0, 1].
func NewGaussianDiffusion[B tensor.Backend](betas []float64, backend B) (*GaussianDiffusion[B], error) {
	n := len(betas)
	if n == 0 {
		return nil, fmt.Errorf("diffusion: empty beta schedule")
	}
	for i, beta := range betas {
		if beta <= 0 || beta > 1 {
			return nil, fmt.Errorf("diffusion: beta[%d] = %g out of range (0, 1]", i, beta)
		}
	}

	d := &GaussianDiffusion[B]{
		backend:       backend,
		numTimesteps:  n,
		betas:         append([]float64(nil), betas...),
		alphasCumprod: make([]float64, n),

		sqrtAlphasCumprod:         make([]float64, n),
		sqrtOneMinusAlphasCumprod: make([]float64, n),
		sqrtRecipAlphasCumprod:    make([]float64, n),
		sqrtRecipm1AlphasCumprod:  make([]float64, n),

		posteriorVariance:           make([]float64, n),
		posteriorLogVarianceClipped: make([]float64, n),
		posteriorMeanCoef1:          make([]float64, n),
		posteriorMeanCoef2:          make([]float64, n),
	}

	cumprod := 1.0
	prev := 1.0 // alphasCumprod[t-1], with the t=0 convention of 1
	for t := 0; t < n; t++ {
		alpha := 1 - betas[t]
		cumprod *= alpha
		d.alphasCumprod[t] = cumprod

		d.sqrtAlphasCumprod[t] = math.Sqrt(cumprod)
		d.sqrtOneMinusAlphasCumprod[t] = math.Sqrt(1 - cumprod)
		d.sqrtRecipAlphasCumprod[t] = math.Sqrt(1 / cumprod)
		d.sqrtRecipm1AlphasCumprod[t] = math.Sqrt(1/cumprod - 1)

		d.posteriorVariance[t] = betas[t] * (1 - prev) / (1 - cumprod)
		d.posteriorMeanCoef1[t] = betas[t] * math.Sqrt(prev) / (1 - cumprod)
		d.posteriorMeanCoef2[t] = (1 - prev) * math.Sqrt(alpha) / (1 - cumprod)

		prev = cumprod
	}

	// The t=0 posterior variance is zero by construction; clip the log to
	// the t=1 value so downstream exponentials stay finite.
	for t := 0; t < n; t++ {
		v := d.posteriorVariance[t]
		if t == 0 && n > 1 {
			v = d.posteriorVariance[1]
		}
		d.posteriorLogVarianceClipped[t] = math.Log(math.Max(v, 1e-20))
	}

	return d, nil
}

// NumTimesteps returns the schedule length.
func (d *GaussianDiffusion[B]) NumTimesteps() int {
	return d.numTimesteps
}

// Betas returns the per-step noise increments.
func (d *GaussianDiffusion[B]) Betas() []float64 {
	return d.betas
}

// AlphasCumprod returns the cumulative signal-retention fractions.
func (d *GaussianDiffusion[B]) AlphasCumprod() []float64 {
	return d.alphasCumprod
}

// Backend returns the compute backend the process allocates on.
func (d *GaussianDiffusion[B]) Backend() B {
	return d.backend
}

// PosteriorResult holds the posterior query outputs for one step.
type PosteriorResult[B tensor.Backend] struct {
	Mean        *tensor.Tensor[float32, B]
	LogVariance *tensor.Tensor[float32, B]
	PredXStart  *tensor.Tensor[float32, B]
}

// PMeanVariance queries the model at the given per-batch timesteps and
// returns the reverse posterior mean, (fixed-small) log-variance and the
// predicted clean signal. Two-head model outputs are channel-split and
// the auxiliary head ignored.
func (d *GaussianDiffusion[B]) PMeanVariance(model Model[B], x *tensor.Tensor[float32, B], ts []int) *PosteriorResult[B] {
	batch := x.Shape()[0]
	if len(ts) != batch {
		panic(fmt.Sprintf("diffusion: got %d timesteps for batch of %d", len(ts), batch))
	}

	eps := d.modelEps(model, x, ts)
	predXStart := d.PredictXStartFromEps(x, ts, eps)

	coef1 := d.extract(d.posteriorMeanCoef1, ts)
	coef2 := d.extract(d.posteriorMeanCoef2, ts)
	mean := coef1.Mul(predXStart).Add(coef2.Mul(x))

	return &PosteriorResult[B]{
		Mean:        mean,
		LogVariance: d.extract(d.posteriorLogVarianceClipped, ts),
		PredXStart:  predXStart,
	}
}

// PredictXStartFromEps inverts the forward process: given x_t and a noise
// estimate, recover the clean-signal estimate x_0.
func (d *GaussianDiffusion[B]) PredictXStartFromEps(x *tensor.Tensor[float32, B], ts []int, eps *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	recip := d.extract(d.sqrtRecipAlphasCumprod, ts)
	recipm1 := d.extract(d.sqrtRecipm1AlphasCumprod, ts)
	return recip.Mul(x).Sub(recipm1.Mul(eps))
}

// QSample draws from the forward process q(x_t | x_0) with the given noise.
func (d *GaussianDiffusion[B]) QSample(x0 *tensor.Tensor[float32, B], ts []int, noise *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	signal := d.extract(d.sqrtAlphasCumprod, ts)
	sigma := d.extract(d.sqrtOneMinusAlphasCumprod, ts)
	return signal.Mul(x0).Add(sigma.Mul(noise))
}

// modelEps invokes the model and returns the noise-estimate head.
func (d *GaussianDiffusion[B]) modelEps(model Model[B], x *tensor.Tensor[float32, B], ts []int) *tensor.Tensor[float32, B] {
	out := model.Forward(x, d.timestepTensor(ts))

	channels := x.Shape()[1]
	if out.Shape()[1] == 2*channels {
		return out.Chunk(2, 1)[0]
	}
	if out.Shape()[1] != channels {
		panic(fmt.Sprintf("diffusion: model returned %d channels for %d-channel input", out.Shape()[1], channels))
	}
	return out
}

// timestepTensor builds the [N] timestep batch handed to the model.
func (d *GaussianDiffusion[B]) timestepTensor(ts []int) *tensor.Tensor[float32, B] {
	data := make([]float32, len(ts))
	for i, t := range ts {
		data[i] = float32(t)
	}
	out, err := tensor.FromSlice(data, tensor.Shape{len(ts)}, d.backend)
	if err != nil {
		panic(fmt.Sprintf("diffusion: timestep tensor: %v", err))
	}
	return out
}

// extract gathers per-timestep schedule coefficients into a broadcastable
// [N,1,1,1] constant tensor.
func (d *GaussianDiffusion[B]) extract(coeffs []float64, ts []int) *tensor.Tensor[float32, B] {
	data := make([]float32, len(ts))
	for i, t := range ts {
		if t < 0 || t >= len(coeffs) {
			panic(fmt.Sprintf("diffusion: timestep %d out of range [0, %d)", t, len(coeffs)))
		}
		data[i] = float32(coeffs[t])
	}
	out, err := tensor.FromSlice(data, tensor.Shape{len(ts), 1, 1, 1}, d.backend)
	if err != nil {
		panic(fmt.Sprintf("diffusion: coefficient tensor: %v", err))
	}
	return out
}

// LinearBetas returns the linear beta schedule scaled so that schedules of
// any length share the limiting behavior of the 1000-step reference.
func LinearBetas(numTimesteps int) []float64 {
	scale := 1000.0 / float64(numTimesteps)
	start := scale * 0.0001
	end := scale * 0.02

	betas := make([]float64, numTimesteps)
	if numTimesteps == 1 {
		betas[0] = start
		return betas
	}
	for i := range betas {
		betas[i] = start + (end-start)*float64(i)/float64(numTimesteps-1)
	}
	return betas
}

// CosineBetas returns the cosine beta schedule, clipped at 0.999.
func CosineBetas(numTimesteps int) []float64 {
	alphaBar := func(t float64) float64 {
		v := math.Cos((t + 0.008) / 1.008 * math.Pi / 2)
		return v * v
	}

	betas := make([]float64, numTimesteps)
	for i := range betas {
		t1 := float64(i) / float64(numTimesteps)
		t2 := float64(i+1) / float64(numTimesteps)
		betas[i] = math.Min(1-alphaBar(t2)/alphaBar(t1), 0.999)
	}
	return betas
}
