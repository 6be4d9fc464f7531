package agent

import (
	"math"

	engine "github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/engine"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ActionScores holds per-digit scores shaped (Batch, Digits, States), stored
// row-major: the scores of digit d in batch row b are contiguous.
type ActionScores struct {
	Batch  int
	Digits int
	States int
	data   []float64
}

func newActionScores(batch, digits, states int) *ActionScores {
	return &ActionScores{
		Batch:  batch,
		Digits: digits,
		States: states,
		data:   make([]float64, batch*digits*states),
	}
}

// Shape returns (Batch, Digits, States).
func (a *ActionScores) Shape() (int, int, int) { return a.Batch, a.Digits, a.States }

func (a *ActionScores) offset(b, d int) int { return (b*a.Digits + d) * a.States }

// At returns the score of state s for digit d in batch row b.
func (a *ActionScores) At(b, d, s int) float64 { return a.data[a.offset(b, d)+s] }

// Digit returns the score vector of digit d in batch row b. The slice aliases
// the receiver.
func (a *ActionScores) Digit(b, d int) []float64 {
	o := a.offset(b, d)
	return a.data[o : o+a.States : o+a.States]
}

// Head copies out digit d's scores for the whole batch as a (Batch, States) matrix.
func (a *ActionScores) Head(d int) *mat.Dense {
	m := mat.NewDense(a.Batch, a.States, nil)
	for b := 0; b < a.Batch; b++ {
		copy(m.RawRowView(b), a.Digit(b, d))
	}
	return m
}

// Data returns a copy of the flat row-major scores.
func (a *ActionScores) Data() []float64 { return append([]float64(nil), a.data...) }

// Argmax returns the highest scoring state of every digit, one lock State per
// batch row.
func (a *ActionScores) Argmax() []engine.State {
	out := make([]engine.State, a.Batch)
	for b := range out {
		s := make(engine.State, a.Digits)
		for d := range s {
			s[d] = floats.MaxIdx(a.Digit(b, d))
		}
		out[b] = s
	}
	return out
}

// Probabilities applies a softmax to every digit's score vector.
func (a *ActionScores) Probabilities() *ActionScores {
	p := newActionScores(a.Batch, a.Digits, a.States)
	for b := 0; b < a.Batch; b++ {
		for d := 0; d < a.Digits; d++ {
			softmaxTo(p.Digit(b, d), a.Digit(b, d))
		}
	}
	return p
}

// IsFinite reports whether every score is a finite number.
func (a *ActionScores) IsFinite() bool {
	for _, v := range a.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func softmaxTo(dst, src []float64) {
	lse := floats.LogSumExp(src)
	for i, v := range src {
		dst[i] = math.Exp(v - lse)
	}
}

// Softmax normalizes every row of scores into a probability distribution.
func Softmax(scores mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(scores)
	rows, _ := out.Dims()
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		softmaxTo(row, row)
	}
	return out
}

// LogSoftmax returns the row-wise log-probabilities of scores.
func LogSoftmax(scores mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(scores)
	rows, _ := out.Dims()
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		floats.AddConst(-floats.LogSumExp(row), row)
	}
	return out
}

// Argmax returns the index of the largest value in every row, the lowest
// index winning ties.
func Argmax(scores mat.Matrix) []int {
	m := mat.DenseCopyOf(scores)
	rows, _ := m.Dims()
	out := make([]int, rows)
	for i := range out {
		out[i] = floats.MaxIdx(m.RawRowView(i))
	}
	return out
}

// Symbols is Argmax typed as vocabulary symbols.
func Symbols(scores mat.Matrix) []engine.Symbol {
	idx := Argmax(scores)
	out := make([]engine.Symbol, len(idx))
	for i, v := range idx {
		out[i] = engine.Symbol(v)
	}
	return out
}
