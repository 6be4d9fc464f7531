package agent

import (
	"fmt"
	"strconv"

	engine "github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/engine"
	"gonum.org/v1/gonum/mat"
)

// digitHead is one digit's private sub-network: fc3 -> ReLU -> fc4.
type digitHead struct {
	fc3 *linear // latent -> latent/2
	fc4 *linear // latent/2 -> states
}

// ActionDecoder maps one-hot symbols to per-digit state scores. A shared
// trunk produces a latent vector, then every digit gets its own output head.
//
// With HeadsPerDigit the heads are separate sub-networks and changing one
// digit's head parameters never changes another digit's scores. With
// HeadsWide one layer emits all digits' scores at once.
type ActionDecoder struct {
	dims  engine.Dims
	opts  Options
	mode  Mode
	trunk *trunk
	heads []digitHead // HeadsPerDigit
	wide  *linear     // HeadsWide
}

// headWidth is the hidden width of a per-digit head.
func headWidth(latent int) int {
	if w := latent / 2; w > 0 {
		return w
	}
	return 1
}

// NewActionDecoder builds a decoder for dims with freshly initialized parameters.
func NewActionDecoder(dims engine.Dims, opts Options) (*ActionDecoder, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	opts, err := opts.resolve(DefaultNormalizedDecLatent)
	if err != nil {
		return nil, err
	}
	rng := newRand(opts.Seed)
	dec := &ActionDecoder{
		dims:  dims,
		opts:  opts,
		trunk: newTrunk(dims.VocabSize, opts.Latent, opts.Normalize, rng),
	}
	switch opts.Heads {
	case HeadsWide:
		dec.wide = newLinear(opts.Latent, dims.StateWidth(), rng)
	default:
		hw := headWidth(opts.Latent)
		dec.heads = make([]digitHead, dims.Digits)
		for i := range dec.heads {
			dec.heads[i] = digitHead{
				fc3: newLinear(opts.Latent, hw, rng),
				fc4: newLinear(hw, dims.StatesPerDigit, rng),
			}
		}
	}
	return dec, nil
}

func (d *ActionDecoder) Dims() engine.Dims { return d.dims }
func (d *ActionDecoder) Options() Options  { return d.opts }
func (d *ActionDecoder) Mode() Mode        { return d.mode }
func (d *ActionDecoder) InputWidth() int   { return d.dims.VocabSize }

// SetMode behaves like StateEncoder.SetMode.
func (d *ActionDecoder) SetMode(m Mode) error {
	if err := m.Validate(); err != nil {
		return err
	}
	d.mode = m
	return nil
}

// Forward runs a (batch, VocabSize) matrix of symbol encodings. Rows are
// normally one-hot, but any finite values are accepted.
func (d *ActionDecoder) Forward(x mat.Matrix) (*ActionScores, error) {
	if err := checkBatch(x, d.InputWidth()); err != nil {
		return nil, err
	}
	h, err := d.trunk.forward(x, d.mode)
	if err != nil {
		return nil, err
	}
	rows, _ := h.Dims()
	out := newActionScores(rows, d.dims.Digits, d.dims.StatesPerDigit)

	if d.wide != nil {
		// (batch, digits*states) reshapes to (batch, digits, states) as-is.
		y := d.wide.forward(h)
		width := d.dims.StateWidth()
		for b := 0; b < rows; b++ {
			copy(out.data[b*width:(b+1)*width], y.RawRowView(b))
		}
		return out, nil
	}

	for i, hd := range d.heads {
		z := hd.fc3.forward(h)
		relu(z)
		y := hd.fc4.forward(z)
		for b := 0; b < rows; b++ {
			copy(out.Digit(b, i), y.RawRowView(b))
		}
	}
	return out, nil
}

// ForwardSymbols one-hot encodes symbols and runs them through the decoder.
func (d *ActionDecoder) ForwardSymbols(symbols []engine.Symbol) (*ActionScores, error) {
	x, err := EncodeSymbols(d.dims, symbols)
	if err != nil {
		return nil, fmt.Errorf("encode symbols: %w", err)
	}
	return d.Forward(x)
}

// UpdateStatistics folds the batch statistics of x into the running
// statistics of every normalization layer.
func (d *ActionDecoder) UpdateStatistics(x mat.Matrix) error {
	if err := checkBatch(x, d.InputWidth()); err != nil {
		return err
	}
	return d.trunk.updateStatistics(x)
}

// CheckStatistics reports the error UpdateStatistics would return for x
// without touching any statistics.
func (d *ActionDecoder) CheckStatistics(x mat.Matrix) error {
	if err := checkBatch(x, d.InputWidth()); err != nil {
		return err
	}
	return d.trunk.checkStatistics(x)
}

func (d *ActionDecoder) params() []param {
	ps := d.trunk.params()
	if d.wide != nil {
		return append(ps, d.wide.params("fc3")...)
	}
	for i, hd := range d.heads {
		prefix := "heads." + strconv.Itoa(i)
		ps = append(ps, hd.fc3.params(prefix+".fc3")...)
		ps = append(ps, hd.fc4.params(prefix+".fc4")...)
	}
	return ps
}

// Weights returns copies of all parameters keyed by name. Per-digit heads are
// named "heads.<digit>.fc3.weight" and so on.
func (d *ActionDecoder) Weights() map[string]*mat.Dense { return copyWeights(d.params()) }

// SetWeights replaces all parameters; see StateEncoder.SetWeights.
func (d *ActionDecoder) SetWeights(w map[string]*mat.Dense) error { return setWeights(d.params(), w) }

// ParamNames lists parameter names in layer order.
func (d *ActionDecoder) ParamNames() []string { return paramNames(d.params()) }

// NumParams counts trainable scalars; running statistics are excluded.
func (d *ActionDecoder) NumParams() int { return countParams(d.params()) }
