// Package agent holds the inside agent's networks and the one-hot encodings
// that feed them.
//
// StateEncoder turns a lock setting into scores over the symbol vocabulary.
// ActionDecoder turns a received symbol into per-digit scores over digit
// states. Both produce raw scores; normalization into probabilities is left
// to the caller (see Softmax and LogSoftmax).
//
// Forward passes never modify a network. Parameters change only through
// SetWeights and, for running statistics, UpdateStatistics; both are meant to
// be driven by an external training loop between forward passes. Networks are
// not safe for concurrent mutation.
package agent

import (
	"fmt"

	engine "github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/engine"
	"gonum.org/v1/gonum/mat"
)

// StateEncoder maps one-hot lock states to symbol scores:
// fc1 -> [bn1] -> ReLU -> fc2 -> [bn2] -> ReLU -> fc3.
type StateEncoder struct {
	dims  engine.Dims
	opts  Options
	mode  Mode
	trunk *trunk
	fc3   *linear
}

// NewStateEncoder builds an encoder for dims with freshly initialized parameters.
func NewStateEncoder(dims engine.Dims, opts Options) (*StateEncoder, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	opts, err := opts.resolve(DefaultNormalizedEncLatent)
	if err != nil {
		return nil, err
	}
	rng := newRand(opts.Seed)
	return &StateEncoder{
		dims:  dims,
		opts:  opts,
		trunk: newTrunk(dims.StateWidth(), opts.Latent, opts.Normalize, rng),
		fc3:   newLinear(opts.Latent, dims.VocabSize, rng),
	}, nil
}

func (e *StateEncoder) Dims() engine.Dims { return e.dims }
func (e *StateEncoder) Options() Options  { return e.opts }
func (e *StateEncoder) Mode() Mode        { return e.mode }
func (e *StateEncoder) InputWidth() int   { return e.dims.StateWidth() }
func (e *StateEncoder) OutputWidth() int  { return e.dims.VocabSize }

// SetMode switches between batch and running statistics. Unknown modes are
// rejected and leave the current mode in place.
func (e *StateEncoder) SetMode(m Mode) error {
	if err := m.Validate(); err != nil {
		return err
	}
	e.mode = m
	return nil
}

// Forward encodes states and returns a (len(states), VocabSize) score matrix.
func (e *StateEncoder) Forward(states []engine.State) (*mat.Dense, error) {
	x, err := EncodeStates(e.dims, states)
	if err != nil {
		return nil, fmt.Errorf("encode states: %w", err)
	}
	return e.forward(x)
}

// ForwardEncoded runs an already one-hot encoded batch of width
// Digits*StatesPerDigit.
func (e *StateEncoder) ForwardEncoded(x mat.Matrix) (*mat.Dense, error) {
	if err := checkBatch(x, e.InputWidth()); err != nil {
		return nil, err
	}
	return e.forward(x)
}

func (e *StateEncoder) forward(x mat.Matrix) (*mat.Dense, error) {
	h, err := e.trunk.forward(x, e.mode)
	if err != nil {
		return nil, err
	}
	return e.fc3.forward(h), nil
}

// UpdateStatistics folds the batch statistics of states into the running
// statistics of every normalization layer. It is a no-op without
// normalization and needs at least two states otherwise.
func (e *StateEncoder) UpdateStatistics(states []engine.State) error {
	x, err := EncodeStates(e.dims, states)
	if err != nil {
		return fmt.Errorf("encode states: %w", err)
	}
	return e.trunk.updateStatistics(x)
}

// CheckStatistics reports the error UpdateStatistics would return for
// states without touching any statistics.
func (e *StateEncoder) CheckStatistics(states []engine.State) error {
	x, err := EncodeStates(e.dims, states)
	if err != nil {
		return fmt.Errorf("encode states: %w", err)
	}
	return e.trunk.checkStatistics(x)
}

func (e *StateEncoder) params() []param {
	return append(e.trunk.params(), e.fc3.params("fc3")...)
}

// Weights returns copies of all parameters keyed by name, e.g. "fc1.weight"
// or "bn2.running_var".
func (e *StateEncoder) Weights() map[string]*mat.Dense { return copyWeights(e.params()) }

// SetWeights replaces all parameters. w must hold exactly the names Weights
// returns, with the same shapes.
func (e *StateEncoder) SetWeights(w map[string]*mat.Dense) error { return setWeights(e.params(), w) }

// ParamNames lists parameter names in layer order.
func (e *StateEncoder) ParamNames() []string { return paramNames(e.params()) }

// NumParams counts trainable scalars; running statistics are excluded.
func (e *StateEncoder) NumParams() int { return countParams(e.params()) }
