package agent

import (
	"fmt"
	"math"

	engine "github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/engine"
	"gonum.org/v1/gonum/mat"
)

// EncodeStates one-hot encodes each digit of each state and concatenates the
// digits, giving a (len(states), Digits*StatesPerDigit) matrix.
//
// Digit i of a row occupies columns [i*StatesPerDigit, (i+1)*StatesPerDigit).
// Out-of-range digits are rejected; they never encode as an all-zero block.
func EncodeStates(dims engine.Dims, states []engine.State) (*mat.Dense, error) {
	if err := dims.ValidateStates(states); err != nil {
		return nil, err
	}
	width := dims.StateWidth()
	out := mat.NewDense(len(states), width, nil)
	for r, s := range states {
		row := out.RawRowView(r)
		offset := 0
		for _, v := range s {
			row[offset+v] = 1
			offset += dims.StatesPerDigit
		}
	}
	return out, nil
}

// EncodeSymbols one-hot encodes symbols into a (len(symbols), VocabSize) matrix.
func EncodeSymbols(dims engine.Dims, symbols []engine.Symbol) (*mat.Dense, error) {
	if err := dims.ValidateSymbols(symbols); err != nil {
		return nil, err
	}
	out := mat.NewDense(len(symbols), dims.VocabSize, nil)
	for r, sym := range symbols {
		out.Set(r, int(sym), 1)
	}
	return out, nil
}

// checkBatch verifies that x is a non-empty batch of width columns holding
// only finite values.
func checkBatch(x mat.Matrix, width int) error {
	if x == nil {
		return fmt.Errorf("%w: nil input", engine.ErrInvalidShape)
	}
	rows, cols := x.Dims()
	if rows == 0 {
		return fmt.Errorf("%w: empty batch", engine.ErrInvalidShape)
	}
	if cols != width {
		return fmt.Errorf("%w: input width %d, want %d", engine.ErrInvalidShape, cols, width)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := x.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: input[%d][%d] = %v", engine.ErrNonFinite, i, j, v)
			}
		}
	}
	return nil
}
