package agent

import (
	"fmt"

	engine "github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/engine"
)

// Mode selects which statistics batch normalization uses.
type Mode uint8

const (
	ModeTrain Mode = iota // normalize with the current batch's statistics
	ModeEval              // normalize with the running statistics
)

func (m Mode) String() string {
	switch m {
	case ModeTrain:
		return "train"
	case ModeEval:
		return "eval"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Validate rejects modes other than ModeTrain and ModeEval.
func (m Mode) Validate() error {
	if m != ModeTrain && m != ModeEval {
		return fmt.Errorf("%w: unknown mode %v", engine.ErrInvalidConfig, m)
	}
	return nil
}

// HeadLayout selects how ActionDecoder turns the shared latent into per-digit scores.
type HeadLayout uint8

const (
	// HeadsPerDigit gives every digit its own latent -> latent/2 -> states
	// sub-network. No parameters are shared between digits.
	HeadsPerDigit HeadLayout = iota
	// HeadsWide uses one latent -> digits*states layer whose output is split
	// into per-digit blocks.
	HeadsWide
)

func (h HeadLayout) String() string {
	switch h {
	case HeadsPerDigit:
		return "per-digit"
	case HeadsWide:
		return "wide"
	default:
		return fmt.Sprintf("HeadLayout(%d)", uint8(h))
	}
}

// ParseHeadLayout is the inverse of HeadLayout.String.
func ParseHeadLayout(s string) (HeadLayout, error) {
	switch s {
	case "per-digit", "":
		return HeadsPerDigit, nil
	case "wide":
		return HeadsWide, nil
	}
	return 0, fmt.Errorf("%w: unknown head layout %q", engine.ErrInvalidConfig, s)
}

// Default hidden widths.
const (
	DefaultLatent              = 64
	DefaultNormalizedEncLatent = 32
	DefaultNormalizedDecLatent = 64
)

// Options configures one network. A zero Latent selects the default for the
// network and normalization setting.
type Options struct {
	Latent    int
	Normalize bool       // batch normalization before each hidden ReLU
	Heads     HeadLayout // ActionDecoder only
	Seed      uint64     // parameter initialization
}

// DefaultEncoderOptions returns the StateEncoder defaults with or without
// batch normalization.
func DefaultEncoderOptions(normalize bool) Options {
	if normalize {
		return Options{Latent: DefaultNormalizedEncLatent, Normalize: true}
	}
	return Options{Latent: DefaultLatent}
}

// DefaultDecoderOptions returns the ActionDecoder defaults. The normalized
// decoder uses the wide head layout.
func DefaultDecoderOptions(normalize bool) Options {
	if normalize {
		return Options{Latent: DefaultNormalizedDecLatent, Normalize: true, Heads: HeadsWide}
	}
	return Options{Latent: DefaultLatent, Heads: HeadsPerDigit}
}

func (o Options) resolve(normalizedDefault int) (Options, error) {
	switch {
	case o.Latent < 0:
		return o, fmt.Errorf("%w: latent must be positive (got %d)", engine.ErrInvalidConfig, o.Latent)
	case o.Latent == 0 && o.Normalize:
		o.Latent = normalizedDefault
	case o.Latent == 0:
		o.Latent = DefaultLatent
	}
	if o.Heads != HeadsPerDigit && o.Heads != HeadsWide {
		return o, fmt.Errorf("%w: unknown head layout %d", engine.ErrInvalidConfig, o.Heads)
	}
	return o, nil
}
