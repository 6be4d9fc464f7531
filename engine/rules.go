package engine

// DefaultDims returns a three-digit, ten-state lock with one symbol per
// possible digit value.
func DefaultDims() Dims {
	return Dims{
		Digits:         3,
		StatesPerDigit: 10,
		VocabSize:      10,
	}
}

// NumStates returns how many distinct lock settings d admits, saturating at
// the largest int instead of overflowing.
func (d Dims) NumStates() int {
	const maxInt = int(^uint(0) >> 1)
	n := 1
	for i := 0; i < d.Digits; i++ {
		if d.StatesPerDigit != 0 && n > maxInt/d.StatesPerDigit {
			return maxInt
		}
		n *= d.StatesPerDigit
	}
	return n
}

// StateAt returns the idx-th lock setting in lexicographic order, digit 0
// most significant. idx must be in [0, NumStates()).
func (d Dims) StateAt(idx int) State {
	s := make(State, d.Digits)
	for i := d.Digits - 1; i >= 0; i-- {
		s[i] = idx % d.StatesPerDigit
		idx /= d.StatesPerDigit
	}
	return s
}
