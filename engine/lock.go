// Package engine defines the combination-lock domain shared by the agents of
// the lock/key signaling game.
//
// A lock has a fixed number of digits, each settable to one of a fixed number
// of states. Agents communicate through symbols drawn from a fixed vocabulary.
// Everything here is a plain value type; validation happens at the call
// boundary and reports one of the sentinel errors in errors.go.
package engine

import "fmt"

// Dims fixes the shape of a lock game: how many digits the lock has, how many
// states each digit takes, and how many symbols the agents may utter.
// Every tensor handed to a network is checked against the Dims it was built with.
type Dims struct {
	Digits         int
	StatesPerDigit int
	VocabSize      int
}

// Validate reports ErrInvalidConfig if any dimension is not positive.
func (d Dims) Validate() error {
	switch {
	case d.Digits <= 0:
		return fmt.Errorf("%w: digits must be positive (got %d)", ErrInvalidConfig, d.Digits)
	case d.StatesPerDigit <= 0:
		return fmt.Errorf("%w: states per digit must be positive (got %d)", ErrInvalidConfig, d.StatesPerDigit)
	case d.VocabSize <= 0:
		return fmt.Errorf("%w: vocab size must be positive (got %d)", ErrInvalidConfig, d.VocabSize)
	}
	return nil
}

// StateWidth is the width of a one-hot encoded lock state.
func (d Dims) StateWidth() int { return d.Digits * d.StatesPerDigit }

// State is one setting of the lock, digit i holding a value in [0, StatesPerDigit).
type State []int

// Clone returns a copy of s that shares no memory with it.
func (s State) Clone() State {
	out := make(State, len(s))
	copy(out, s)
	return out
}

// Equal reports whether two states hold the same digits.
func (s State) Equal(o State) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// ValidateState checks the digit count and every digit's range.
func (d Dims) ValidateState(s State) error {
	if len(s) != d.Digits {
		return fmt.Errorf("%w: state has %d digits, lock has %d", ErrInvalidShape, len(s), d.Digits)
	}
	for i, v := range s {
		if v < 0 || v >= d.StatesPerDigit {
			return fmt.Errorf("%w: digit %d = %d out of range [0, %d)", ErrInvalidValue, i, v, d.StatesPerDigit)
		}
	}
	return nil
}

// ValidateStates checks a non-empty batch of states. The returned error names
// the offending row.
func (d Dims) ValidateStates(states []State) error {
	if len(states) == 0 {
		return fmt.Errorf("%w: empty state batch", ErrInvalidShape)
	}
	for i, s := range states {
		if err := d.ValidateState(s); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// Symbol is an index into the communication vocabulary.
type Symbol int

// ValidateSymbol reports ErrInvalidValue if sym is outside [0, VocabSize).
func (d Dims) ValidateSymbol(sym Symbol) error {
	if sym < 0 || int(sym) >= d.VocabSize {
		return fmt.Errorf("%w: symbol %d out of range [0, %d)", ErrInvalidValue, sym, d.VocabSize)
	}
	return nil
}

// ValidateSymbols checks a non-empty batch of symbols.
func (d Dims) ValidateSymbols(symbols []Symbol) error {
	if len(symbols) == 0 {
		return fmt.Errorf("%w: empty symbol batch", ErrInvalidShape)
	}
	for i, sym := range symbols {
		if err := d.ValidateSymbol(sym); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}
