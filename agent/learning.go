package agent

import "github.com/pthm-cable/forager/neural"

// Approximator is the capability the policy needs from its function
// approximator: score one observation, and take one optimizer step from
// the gradient at those scores. Backward must follow the Forward whose
// scores the gradient refers to.
type Approximator interface {
	Forward(input []float64) []float64
	Backward(outputGrad []float64)
}

// logEps keeps the log-probability finite when a probability collapses
// to zero.
const logEps = 1e-8

// Gate performs energy-gated policy-gradient updates.
type Gate struct {
	ledger    *Ledger
	net       Approximator
	threshold float64
	cost      float64
	updates   int
}

// NewGate creates a gate charging cost per update, permitted only while
// ledger holds strictly more than threshold.
func NewGate(ledger *Ledger, net Approximator, threshold, cost float64) *Gate {
	return &Gate{ledger: ledger, net: net, threshold: threshold, cost: cost}
}

// CanLearn reports whether energy is strictly above the learning
// threshold. The episode evaluates it once per tick, after the tick's
// sensing, acting and consumption effects and before any learning cost.
func (g *Gate) CanLearn() bool { return g.ledger.Value() > g.threshold }

// Updates returns the number of gradient steps taken.
func (g *Gate) Updates() int { return g.updates }

// Update runs one policy-gradient step for the tick's decision: the raw
// scores soften into probabilities, loss is -log(p[action]+eps) scaled
// by reward, and the approximator takes one step. The gate is re-checked
// so a direct call cannot bypass it; when gated off nothing is charged
// and no parameters change. When learning proceeds the learning cost is
// charged before the gradient step.
func (g *Gate) Update(scores []float64, action int, reward float64) bool {
	if !g.CanLearn() {
		return false
	}
	g.ledger.Deduct(g.cost)

	probs := neural.Softmax(scores)
	pa := probs[action]

	// Gradient of the loss at the scores, softmax Jacobian folded in.
	// The eps factor only matters when p[action] underflows.
	grad := make([]float64, len(scores))
	coef := -reward * pa / (pa + logEps)
	for i, p := range probs {
		if i == action {
			grad[i] = coef * (1 - p)
		} else {
			grad[i] = coef * -p
		}
	}
	g.net.Backward(grad)
	g.updates++
	return true
}
