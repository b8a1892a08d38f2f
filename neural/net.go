// Package neural implements the policy's function approximator: a small
// dense network with rectified hidden layers and a linear output layer,
// trained online by single-sample gradient steps through Adam.
package neural

import (
	"fmt"
	"math"
	"math/rand"
)

// Adam hyperparameters. Standard values; only the learning rate varies
// per network.
const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

// Spec describes a network to build.
type Spec struct {
	Sizes        []int   // Layer widths, input first, output last
	LearningRate float64 // Adam step size
	OutputBias   float64 // Initial bias on every output unit
}

// Network is a dense multi-layer perceptron. Forward caches activations
// so a following Backward can run one optimizer step without the caller
// holding any graph state.
type Network struct {
	sizes []int
	w     [][][]float64 // w[l][out][in]
	b     [][]float64   // b[l][out]

	// Adam state, same shapes as w and b.
	mw, vw [][][]float64
	mb, vb [][]float64
	lr     float64
	steps  int

	// Caches from the most recent Forward.
	acts [][]float64 // acts[0] is the input, acts[len] the output
	zs   [][]float64 // pre-activations per weighted layer
}

// New creates a randomly initialized network. Hidden weights use scaled
// normal initialization (sqrt(2/fanIn)); biases start at zero except the
// output layer, which starts at spec.OutputBias.
func New(spec Spec, rng *rand.Rand) (*Network, error) {
	if len(spec.Sizes) < 2 {
		return nil, fmt.Errorf("neural: need at least input and output layers, got %d sizes", len(spec.Sizes))
	}
	for i, s := range spec.Sizes {
		if s <= 0 {
			return nil, fmt.Errorf("neural: layer %d has non-positive width %d", i, s)
		}
	}
	if spec.LearningRate <= 0 {
		return nil, fmt.Errorf("neural: learning rate must be positive, got %v", spec.LearningRate)
	}

	nLayers := len(spec.Sizes) - 1
	n := &Network{
		sizes: append([]int(nil), spec.Sizes...),
		w:     make([][][]float64, nLayers),
		b:     make([][]float64, nLayers),
		mw:    make([][][]float64, nLayers),
		vw:    make([][][]float64, nLayers),
		mb:    make([][]float64, nLayers),
		vb:    make([][]float64, nLayers),
		lr:    spec.LearningRate,
		acts:  make([][]float64, nLayers+1),
		zs:    make([][]float64, nLayers),
	}
	for l := 0; l < nLayers; l++ {
		in, out := spec.Sizes[l], spec.Sizes[l+1]
		scale := math.Sqrt(2.0 / float64(in))
		n.w[l] = make([][]float64, out)
		n.mw[l] = make([][]float64, out)
		n.vw[l] = make([][]float64, out)
		for i := 0; i < out; i++ {
			n.w[l][i] = make([]float64, in)
			n.mw[l][i] = make([]float64, in)
			n.vw[l][i] = make([]float64, in)
			for j := 0; j < in; j++ {
				n.w[l][i][j] = rng.NormFloat64() * scale
			}
		}
		n.b[l] = make([]float64, out)
		n.mb[l] = make([]float64, out)
		n.vb[l] = make([]float64, out)
		if l == nLayers-1 && spec.OutputBias != 0 {
			for i := range n.b[l] {
				n.b[l][i] = spec.OutputBias
			}
		}
	}
	return n, nil
}

// NumInputs returns the input layer width.
func (n *Network) NumInputs() int { return n.sizes[0] }

// NumOutputs returns the output layer width.
func (n *Network) NumOutputs() int { return n.sizes[len(n.sizes)-1] }

// Steps returns the number of optimizer steps taken.
func (n *Network) Steps() int { return n.steps }

// Forward computes the raw output scores for one input vector. The
// returned slice is owned by the caller; internal caches stay valid
// until the next Forward.
func (n *Network) Forward(input []float64) []float64 {
	if len(input) != n.sizes[0] {
		panic(fmt.Sprintf("neural: input width %d, network expects %d", len(input), n.sizes[0]))
	}

	n.acts[0] = append(n.acts[0][:0], input...)
	last := len(n.w) - 1
	for l := range n.w {
		in := n.acts[l]
		out := resize(n.zs[l], len(n.w[l]))
		for i, row := range n.w[l] {
			sum := n.b[l][i]
			for j, wij := range row {
				sum += wij * in[j]
			}
			out[i] = sum
		}
		n.zs[l] = out

		act := resize(n.acts[l+1], len(out))
		if l == last {
			copy(act, out)
		} else {
			for i, z := range out {
				if z > 0 {
					act[i] = z
				} else {
					act[i] = 0
				}
			}
		}
		n.acts[l+1] = act
	}

	result := make([]float64, len(n.acts[len(n.acts)-1]))
	copy(result, n.acts[len(n.acts)-1])
	return result
}

// Backward runs one Adam step from the gradient of the loss with respect
// to the last Forward's output scores. It must follow a Forward on the
// same input the gradient refers to.
func (n *Network) Backward(outputGrad []float64) {
	if n.acts[0] == nil {
		panic("neural: Backward called before any Forward")
	}
	if len(outputGrad) != n.NumOutputs() {
		panic(fmt.Sprintf("neural: gradient width %d, network outputs %d", len(outputGrad), n.NumOutputs()))
	}

	n.steps++
	// Bias-corrected step size folds the corrections into lr.
	c1 := 1 - math.Pow(adamBeta1, float64(n.steps))
	c2 := 1 - math.Pow(adamBeta2, float64(n.steps))

	delta := append([]float64(nil), outputGrad...)
	for l := len(n.w) - 1; l >= 0; l-- {
		in := n.acts[l]

		var next []float64
		if l > 0 {
			next = make([]float64, len(in))
			for i, di := range delta {
				for j, wij := range n.w[l][i] {
					next[j] += di * wij
				}
			}
			// Gate through the rectifier of the layer below.
			for j := range next {
				if n.zs[l-1][j] <= 0 {
					next[j] = 0
				}
			}
		}

		for i, di := range delta {
			for j := range n.w[l][i] {
				g := di * in[j]
				n.mw[l][i][j] = adamBeta1*n.mw[l][i][j] + (1-adamBeta1)*g
				n.vw[l][i][j] = adamBeta2*n.vw[l][i][j] + (1-adamBeta2)*g*g
				n.w[l][i][j] -= n.lr * (n.mw[l][i][j] / c1) / (math.Sqrt(n.vw[l][i][j]/c2) + adamEps)
			}
			n.mb[l][i] = adamBeta1*n.mb[l][i] + (1-adamBeta1)*di
			n.vb[l][i] = adamBeta2*n.vb[l][i] + (1-adamBeta2)*di*di
			n.b[l][i] -= n.lr * (n.mb[l][i] / c1) / (math.Sqrt(n.vb[l][i]/c2) + adamEps)
		}

		delta = next
	}
}

// Clone returns an independent copy of the network including optimizer
// state. Forward caches are not carried over.
func (n *Network) Clone() *Network {
	c := &Network{
		sizes: append([]int(nil), n.sizes...),
		w:     copy3(n.w),
		b:     copy2(n.b),
		mw:    copy3(n.mw),
		vw:    copy3(n.vw),
		mb:    copy2(n.mb),
		vb:    copy2(n.vb),
		lr:    n.lr,
		steps: n.steps,
		acts:  make([][]float64, len(n.sizes)),
		zs:    make([][]float64, len(n.sizes)-1),
	}
	return c
}

// Softmax returns the probability distribution for a score vector,
// shifted by the maximum for numerical stability.
func Softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		e := math.Exp(s - max)
		probs[i] = e
		sum += e
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Argmax returns the index of the largest score, first winner on ties.
func Argmax(scores []float64) int {
	best := 0
	for i, s := range scores[1:] {
		if s > scores[best] {
			best = i + 1
		}
	}
	return best
}

// Weights holds network parameters for serialization.
type Weights struct {
	Sizes []int         `json:"sizes"`
	W     [][][]float64 `json:"w"`
	B     [][]float64   `json:"b"`
}

// MarshalWeights copies the parameters out for JSON serialization.
// Optimizer state is not included.
func (n *Network) MarshalWeights() Weights {
	return Weights{
		Sizes: append([]int(nil), n.sizes...),
		W:     copy3(n.w),
		B:     copy2(n.b),
	}
}

// UnmarshalWeights restores parameters from serialized form. The shape
// must match the network; optimizer state resets.
func (n *Network) UnmarshalWeights(w Weights) error {
	if len(w.Sizes) != len(n.sizes) {
		return fmt.Errorf("neural: weight layout has %d layers, network has %d", len(w.Sizes), len(n.sizes))
	}
	for i, s := range w.Sizes {
		if s != n.sizes[i] {
			return fmt.Errorf("neural: layer %d width %d, network has %d", i, s, n.sizes[i])
		}
	}
	n.w = copy3(w.W)
	n.b = copy2(w.B)
	n.mw = zeros3(n.w)
	n.vw = zeros3(n.w)
	n.mb = zeros2(n.b)
	n.vb = zeros2(n.b)
	n.steps = 0
	return nil
}

func resize(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}

func copy2(src [][]float64) [][]float64 {
	dst := make([][]float64, len(src))
	for i, row := range src {
		dst[i] = append([]float64(nil), row...)
	}
	return dst
}

func copy3(src [][][]float64) [][][]float64 {
	dst := make([][][]float64, len(src))
	for i, m := range src {
		dst[i] = copy2(m)
	}
	return dst
}

func zeros2(like [][]float64) [][]float64 {
	dst := make([][]float64, len(like))
	for i, row := range like {
		dst[i] = make([]float64, len(row))
	}
	return dst
}

func zeros3(like [][][]float64) [][][]float64 {
	dst := make([][][]float64, len(like))
	for i, m := range like {
		dst[i] = zeros2(m)
	}
	return dst
}
