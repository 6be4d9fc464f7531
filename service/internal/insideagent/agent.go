// internal/insideagent/agent.go
package insideagent

import (
	"fmt"
	"sync"

	engine "github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/engine"
	"github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/engine/agent"
	"github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/service/internal/config"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Agent is the inside agent of the lock game. It tells the outside agent
// about the lock's initial setting through a symbol (Speak), and turns the
// outside agent's reply into a lock setting (Act).
//
// Forward passes take a read lock; mode and parameter changes take the write
// lock, so a training loop may update the agent between passes from another
// goroutine.
type Agent struct {
	ID uuid.UUID

	mu      sync.RWMutex
	dims    engine.Dims
	encoder *agent.StateEncoder
	decoder *agent.ActionDecoder
	log     *logrus.Entry
}

// New builds an agent with freshly initialized networks. A nil logger uses
// the logrus standard logger.
func New(cfg config.Config, logger *logrus.Logger) (*Agent, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	enc, err := agent.NewStateEncoder(cfg.Dims, cfg.Encoder)
	if err != nil {
		return nil, fmt.Errorf("state encoder: %w", err)
	}
	dec, err := agent.NewActionDecoder(cfg.Dims, cfg.Decoder)
	if err != nil {
		return nil, fmt.Errorf("action decoder: %w", err)
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("agent id: %w", err)
	}
	a := &Agent{
		ID:      id,
		dims:    cfg.Dims,
		encoder: enc,
		decoder: dec,
		log:     logger.WithField("agent_id", id),
	}
	a.log.WithFields(cfg.Fields()).WithFields(logrus.Fields{
		"encoder_params": enc.NumParams(),
		"decoder_params": dec.NumParams(),
	}).Info("Inside agent created")
	return a, nil
}

// Dims returns the lock dimensions the agent was built for.
func (a *Agent) Dims() engine.Dims { return a.dims }

// Speak picks the highest scoring symbol for each lock state. The raw
// (batch, VocabSize) scores are returned alongside.
func (a *Agent) Speak(states []engine.State) ([]engine.Symbol, *mat.Dense, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	scores, err := a.encoder.Forward(states)
	if err != nil {
		a.log.WithError(err).WithField("batch", len(states)).Warn("Speak failed")
		return nil, nil, fmt.Errorf("speak: %w", err)
	}
	symbols := agent.Symbols(scores)
	a.log.WithFields(logrus.Fields{
		"batch": len(states),
		"mode":  a.encoder.Mode().String(),
	}).Debug("Speak")
	return symbols, scores, nil
}

// Act picks the highest scoring state of every digit for each received
// symbol, giving one target lock setting per symbol.
func (a *Agent) Act(symbols []engine.Symbol) ([]engine.State, *agent.ActionScores, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	scores, err := a.decoder.ForwardSymbols(symbols)
	if err != nil {
		a.log.WithError(err).WithField("batch", len(symbols)).Warn("Act failed")
		return nil, nil, fmt.Errorf("act: %w", err)
	}
	a.log.WithFields(logrus.Fields{
		"batch": len(symbols),
		"mode":  a.decoder.Mode().String(),
	}).Debug("Act")
	return scores.Argmax(), scores, nil
}

// SetMode switches both networks between train and eval statistics. An
// unknown mode changes neither network.
func (a *Agent) SetMode(m agent.Mode) error {
	if err := m.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.encoder.SetMode(m); err != nil {
		return err
	}
	if err := a.decoder.SetMode(m); err != nil {
		return err
	}
	a.log.WithField("mode", m.String()).Debug("Mode changed")
	return nil
}

// Mode reports the current mode. Both networks always share it.
func (a *Agent) Mode() agent.Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.encoder.Mode()
}

// UpdateStatistics folds a batch of states and a batch of symbols into the
// running statistics of the encoder and decoder respectively. Either batch
// may be empty to skip that network. Both batches are checked before either
// network is updated, so a failed call changes nothing.
func (a *Agent) UpdateStatistics(states []engine.State, symbols []engine.Symbol) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var x *mat.Dense
	if len(states) > 0 {
		if err := a.encoder.CheckStatistics(states); err != nil {
			return fmt.Errorf("encoder statistics: %w", err)
		}
	}
	if len(symbols) > 0 {
		var err error
		if x, err = agent.EncodeSymbols(a.dims, symbols); err != nil {
			return fmt.Errorf("decoder statistics: %w", err)
		}
		if err := a.decoder.CheckStatistics(x); err != nil {
			return fmt.Errorf("decoder statistics: %w", err)
		}
	}

	if len(states) > 0 {
		if err := a.encoder.UpdateStatistics(states); err != nil {
			return fmt.Errorf("encoder statistics: %w", err)
		}
	}
	if x != nil {
		if err := a.decoder.UpdateStatistics(x); err != nil {
			return fmt.Errorf("decoder statistics: %w", err)
		}
	}
	return nil
}

// EncoderWeights returns a copy of the state encoder's parameters.
func (a *Agent) EncoderWeights() map[string]*mat.Dense {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.encoder.Weights()
}

// DecoderWeights returns a copy of the action decoder's parameters.
func (a *Agent) DecoderWeights() map[string]*mat.Dense {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.decoder.Weights()
}

// SetEncoderWeights replaces the state encoder's parameters.
func (a *Agent) SetEncoderWeights(w map[string]*mat.Dense) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.encoder.SetWeights(w); err != nil {
		a.log.WithError(err).Warn("Rejected encoder weights")
		return err
	}
	return nil
}

// SetDecoderWeights replaces the action decoder's parameters.
func (a *Agent) SetDecoderWeights(w map[string]*mat.Dense) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.decoder.SetWeights(w); err != nil {
		a.log.WithError(err).Warn("Rejected decoder weights")
		return err
	}
	return nil
}

// ParamSummary describes one parameter for inspection tools.
type ParamSummary struct {
	Network string `json:"network"`
	Name    string `json:"name"`
	Rows    int    `json:"rows"`
	Cols    int    `json:"cols"`
}

// Params lists every parameter of both networks in layer order.
func (a *Agent) Params() []ParamSummary {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []ParamSummary
	add := func(network string, names []string, w map[string]*mat.Dense) {
		for _, n := range names {
			r, c := w[n].Dims()
			out = append(out, ParamSummary{Network: network, Name: n, Rows: r, Cols: c})
		}
	}
	add("encoder", a.encoder.ParamNames(), a.encoder.Weights())
	add("decoder", a.decoder.ParamNames(), a.decoder.Weights())
	return out
}
