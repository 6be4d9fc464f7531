package agent

import (
	"fmt"
	"sort"

	engine "github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/engine"
	"gonum.org/v1/gonum/mat"
)

// param names one parameter matrix of a network. Running statistics are
// params too, but not trainable ones.
type param struct {
	name      string
	m         *mat.Dense
	trainable bool
}

// copyWeights returns deep copies of ps keyed by name.
func copyWeights(ps []param) map[string]*mat.Dense {
	out := make(map[string]*mat.Dense, len(ps))
	for _, p := range ps {
		out[p.name] = mat.DenseCopyOf(p.m)
	}
	return out
}

// setWeights overwrites ps from w. Every name must be present with a matching
// shape and no unknown names may appear; on error nothing is written.
func setWeights(ps []param, w map[string]*mat.Dense) error {
	known := make(map[string]struct{}, len(ps))
	for _, p := range ps {
		known[p.name] = struct{}{}
		src, ok := w[p.name]
		if !ok || src == nil {
			return fmt.Errorf("%w: missing parameter %q", engine.ErrInvalidShape, p.name)
		}
		wr, wc := p.m.Dims()
		if sr, sc := src.Dims(); sr != wr || sc != wc {
			return fmt.Errorf("%w: parameter %q is %dx%d, want %dx%d", engine.ErrInvalidShape, p.name, sr, sc, wr, wc)
		}
	}
	var unknown []string
	for name := range w {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown parameters %v", engine.ErrInvalidShape, unknown)
	}
	for _, p := range ps {
		p.m.Copy(w[p.name])
	}
	return nil
}

func countParams(ps []param) int {
	n := 0
	for _, p := range ps {
		if p.trainable {
			r, c := p.m.Dims()
			n += r * c
		}
	}
	return n
}

// paramNames lists the parameter names of ps in registration order.
func paramNames(ps []param) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.name
	}
	return names
}
