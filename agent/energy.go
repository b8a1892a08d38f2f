package agent

// Ledger tracks the agent's scalar energy store. Deductions do not
// floor at zero: depletion must stay observable for the death check.
// Credits clamp at capacity.
type Ledger struct {
	value float64
	max   float64
}

// NewLedger creates a ledger holding initial energy with capacity max.
func NewLedger(initial, max float64) *Ledger {
	return &Ledger{value: initial, max: max}
}

// Value returns the current energy.
func (l *Ledger) Value() float64 { return l.value }

// Max returns the energy capacity.
func (l *Ledger) Max() float64 { return l.max }

// Normalized returns energy as a fraction of capacity.
func (l *Ledger) Normalized() float64 { return l.value / l.max }

// Deduct charges cost against the store.
func (l *Ledger) Deduct(cost float64) { l.value -= cost }

// Credit adds gain to the store, clamped to capacity.
func (l *Ledger) Credit(gain float64) {
	l.value += gain
	if l.value > l.max {
		l.value = l.max
	}
}

// Depleted reports whether the store has run out.
func (l *Ledger) Depleted() bool { return l.value <= 0 }
