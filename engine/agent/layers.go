package agent

import (
	"fmt"
	"math"
	"math/rand/v2"

	engine "github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/engine"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	bnEps      = 1e-5
	bnMomentum = 0.1
)

// newRand returns the deterministic initialization source for a seed.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// linear is an affine layer y = x·Wᵀ + b with W shaped (out, in).
type linear struct {
	weight *mat.Dense // (out, in)
	bias   *mat.Dense // (1, out)
}

// newLinear draws W and b from U(-1/√in, 1/√in).
func newLinear(in, out int, rng *rand.Rand) *linear {
	bound := 1 / math.Sqrt(float64(in))
	uniform := func(n int) []float64 {
		v := make([]float64, n)
		for i := range v {
			v[i] = (2*rng.Float64() - 1) * bound
		}
		return v
	}
	return &linear{
		weight: mat.NewDense(out, in, uniform(out*in)),
		bias:   mat.NewDense(1, out, uniform(out)),
	}
}

func (l *linear) forward(x mat.Matrix) *mat.Dense {
	var y mat.Dense
	y.Mul(x, l.weight.T())
	b := l.bias.RawRowView(0)
	rows, _ := y.Dims()
	for i := 0; i < rows; i++ {
		floats.Add(y.RawRowView(i), b)
	}
	return &y
}

func (l *linear) params(prefix string) []param {
	return []param{
		{name: prefix + ".weight", m: l.weight, trainable: true},
		{name: prefix + ".bias", m: l.bias, trainable: true},
	}
}

// batchNorm normalizes each column over the batch, then scales by gamma and
// shifts by beta.
type batchNorm struct {
	gamma       *mat.Dense // (1, width)
	beta        *mat.Dense
	runningMean *mat.Dense
	runningVar  *mat.Dense
}

func newBatchNorm(width int) *batchNorm {
	ones := make([]float64, width)
	for i := range ones {
		ones[i] = 1
	}
	return &batchNorm{
		gamma:       mat.NewDense(1, width, ones),
		beta:        mat.NewDense(1, width, nil),
		runningMean: mat.NewDense(1, width, nil),
		runningVar:  mat.NewDense(1, width, append([]float64(nil), ones...)),
	}
}

// batchStats returns the per-column mean, biased variance and unbiased
// variance of x. The unbiased variance is nil for a single row.
func batchStats(x *mat.Dense) (mean, biased, unbiased []float64) {
	rows, cols := x.Dims()
	mean = make([]float64, cols)
	biased = make([]float64, cols)
	for i := 0; i < rows; i++ {
		floats.Add(mean, x.RawRowView(i))
	}
	floats.Scale(1/float64(rows), mean)
	for i := 0; i < rows; i++ {
		for j, v := range x.RawRowView(i) {
			d := v - mean[j]
			biased[j] += d * d
		}
	}
	if rows > 1 {
		unbiased = make([]float64, cols)
		floats.ScaleTo(unbiased, 1/float64(rows-1), biased)
	}
	floats.Scale(1/float64(rows), biased)
	return mean, biased, unbiased
}

// forward normalizes x with batch statistics when train is set and with the
// running statistics otherwise. Neither x nor the layer is modified.
func (bn *batchNorm) forward(x *mat.Dense, train bool) *mat.Dense {
	var mean, variance []float64
	if train {
		mean, variance, _ = batchStats(x)
	} else {
		mean, variance = bn.runningMean.RawRowView(0), bn.runningVar.RawRowView(0)
	}
	gamma, beta := bn.gamma.RawRowView(0), bn.beta.RawRowView(0)
	out := mat.DenseCopyOf(x)
	rows, _ := out.Dims()
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] = (row[j]-mean[j])/math.Sqrt(variance[j]+bnEps)*gamma[j] + beta[j]
		}
	}
	return out
}

// accumulate folds the statistics of x into the running statistics with the
// usual exponential moving average. x must hold at least two rows.
func (bn *batchNorm) accumulate(x *mat.Dense) {
	mean, _, unbiased := batchStats(x)
	rm, rv := bn.runningMean.RawRowView(0), bn.runningVar.RawRowView(0)
	for j := range rm {
		rm[j] = (1-bnMomentum)*rm[j] + bnMomentum*mean[j]
		rv[j] = (1-bnMomentum)*rv[j] + bnMomentum*unbiased[j]
	}
}

func (bn *batchNorm) params(prefix string) []param {
	return []param{
		{name: prefix + ".weight", m: bn.gamma, trainable: true},
		{name: prefix + ".bias", m: bn.beta, trainable: true},
		{name: prefix + ".running_mean", m: bn.runningMean},
		{name: prefix + ".running_var", m: bn.runningVar},
	}
}

// relu clamps m at zero in place.
func relu(m *mat.Dense) {
	m.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	}, m)
}

// trunk is the shared fc1 -> [bn1] -> ReLU -> fc2 -> [bn2] -> ReLU stack of
// both networks.
type trunk struct {
	fc1, fc2 *linear
	bn1, bn2 *batchNorm // nil without normalization
}

func newTrunk(in, latent int, normalize bool, rng *rand.Rand) *trunk {
	t := &trunk{
		fc1: newLinear(in, latent, rng),
		fc2: newLinear(latent, latent, rng),
	}
	if normalize {
		t.bn1 = newBatchNorm(latent)
		t.bn2 = newBatchNorm(latent)
	}
	return t
}

func (t *trunk) normalized() bool { return t.bn1 != nil }

// checkMode rejects a batch that training-mode normalization cannot handle.
func (t *trunk) checkMode(x mat.Matrix, mode Mode) error {
	if rows, _ := x.Dims(); t.normalized() && mode == ModeTrain && rows < 2 {
		return fmt.Errorf("%w: batch normalization in train mode needs at least 2 rows, got %d", engine.ErrDegenerateBatch, rows)
	}
	return nil
}

func (t *trunk) forward(x mat.Matrix, mode Mode) (*mat.Dense, error) {
	if err := t.checkMode(x, mode); err != nil {
		return nil, err
	}
	train := mode == ModeTrain
	h := t.fc1.forward(x)
	if t.bn1 != nil {
		h = t.bn1.forward(h, train)
	}
	relu(h)
	h = t.fc2.forward(h)
	if t.bn2 != nil {
		h = t.bn2.forward(h, train)
	}
	relu(h)
	return h, nil
}

// checkStatistics reports whether updateStatistics would accept x.
func (t *trunk) checkStatistics(x mat.Matrix) error {
	if !t.normalized() {
		return nil
	}
	return t.checkMode(x, ModeTrain)
}

// updateStatistics runs x through the trunk in train mode, folding each
// normalization layer's batch statistics into its running statistics.
func (t *trunk) updateStatistics(x mat.Matrix) error {
	if !t.normalized() {
		return nil
	}
	if err := t.checkStatistics(x); err != nil {
		return err
	}
	h := t.fc1.forward(x)
	t.bn1.accumulate(h)
	h = t.bn1.forward(h, true)
	relu(h)
	h = t.fc2.forward(h)
	t.bn2.accumulate(h)
	return nil
}

func (t *trunk) params() []param {
	ps := t.fc1.params("fc1")
	if t.bn1 != nil {
		ps = append(ps, t.bn1.params("bn1")...)
	}
	ps = append(ps, t.fc2.params("fc2")...)
	if t.bn2 != nil {
		ps = append(ps, t.bn2.params("bn2")...)
	}
	return ps
}
