package agent

import (
	"errors"
	"testing"

	engine "github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/engine"
)

// FuzzEncodeStates checks that every valid state encodes to exactly one 1.0
// per digit block at the digit's value, and every invalid state is rejected.
func FuzzEncodeStates(f *testing.F) {
	f.Add(uint8(2), uint8(3), []byte{1, 2})
	f.Add(uint8(3), uint8(4), []byte{0, 1, 2})
	f.Add(uint8(1), uint8(1), []byte{0})
	f.Add(uint8(2), uint8(3), []byte{3, 0})

	f.Fuzz(func(t *testing.T, digits, states uint8, raw []byte) {
		d := int(digits%8) + 1
		s := int(states%12) + 1
		dims := engine.Dims{Digits: d, StatesPerDigit: s, VocabSize: 1}

		state := make(engine.State, len(raw))
		valid := len(raw) == d
		for i, b := range raw {
			state[i] = int(b) % (s + 2)
			if state[i] >= s {
				valid = false
			}
		}

		x, err := EncodeStates(dims, []engine.State{state})
		if !valid {
			if !errors.Is(err, engine.ErrInvalidShape) && !errors.Is(err, engine.ErrInvalidValue) {
				t.Fatalf("state %v on %+v: expected rejection, got %v", state, dims, err)
			}
			return
		}
		if err != nil {
			t.Fatalf("state %v on %+v: %v", state, dims, err)
		}
		row := x.RawRowView(0)
		if len(row) != d*s {
			t.Fatalf("width: want %d, got %d", d*s, len(row))
		}
		for digit := 0; digit < d; digit++ {
			ones := 0
			for j := 0; j < s; j++ {
				v := row[digit*s+j]
				switch v {
				case 1:
					ones++
					if j != state[digit] {
						t.Errorf("digit %d: one at %d, want %d", digit, j, state[digit])
					}
				case 0:
				default:
					t.Errorf("digit %d pos %d = %v (not 0 or 1)", digit, j, v)
				}
			}
			if ones != 1 {
				t.Errorf("digit %d: %d ones, want 1", digit, ones)
			}
		}
	})
}
