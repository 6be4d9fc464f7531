// cmd/insideagent/root.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	engine "github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/engine"
	"github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/engine/agent"
	"github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/service/internal/config"
	"github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/service/internal/insideagent"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFiles []string
	eval     bool
	logLevel string
}

// newRootCmd builds the command tree. Commands share one agent built in
// PersistentPreRunE from the environment and any --env-file.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var ia *insideagent.Agent

	root := &cobra.Command{
		Use:          "insideagent",
		Short:        "Run the inside agent's networks on lock states and symbols.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.envFiles...)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := logrus.New()
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetLevel(cfg.LogLevel)
			if opts.logLevel != "" {
				lvl, err := logrus.ParseLevel(opts.logLevel)
				if err != nil {
					return fmt.Errorf("%w: --log-level: %v", engine.ErrInvalidConfig, err)
				}
				logger.SetLevel(lvl)
			}
			ia, err = insideagent.New(cfg, logger)
			if err != nil {
				return err
			}
			if opts.eval {
				return ia.SetMode(agent.ModeEval)
			}
			return nil
		},
	}
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "env files to load (default .env)")
	root.PersistentFlags().BoolVar(&opts.eval, "eval", false, "use running statistics instead of batch statistics")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override LOG_LEVEL")

	agentFn := func() *insideagent.Agent { return ia }
	root.AddCommand(newSpeakCmd(agentFn), newActCmd(agentFn), newParamsCmd(agentFn))
	return root
}

func newSpeakCmd(get func() *insideagent.Agent) *cobra.Command {
	var raw []string
	cmd := &cobra.Command{
		Use:   "speak",
		Short: "Predict a symbol for each lock state.",
		Example: `  insideagent speak --state 0,1,2 --state 3,3,3
  LOCK_NORMALIZE=true insideagent speak --eval --state 0,1,2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			states := make([]engine.State, 0, len(raw))
			for _, s := range raw {
				st, err := parseState(s)
				if err != nil {
					return err
				}
				states = append(states, st)
			}
			symbols, scores, err := get().Speak(states)
			if err != nil {
				return err
			}
			type row struct {
				State  engine.State  `json:"state"`
				Symbol engine.Symbol `json:"symbol"`
				Scores []float64     `json:"scores"`
			}
			out := make([]row, len(states))
			for i := range states {
				out[i] = row{State: states[i], Symbol: symbols[i], Scores: append([]float64(nil), scores.RawRowView(i)...)}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringArrayVar(&raw, "state", nil, "comma separated digits, repeatable")
	_ = cmd.MarkFlagRequired("state")
	return cmd
}

func newActCmd(get func() *insideagent.Agent) *cobra.Command {
	var raw []int
	cmd := &cobra.Command{
		Use:     "act",
		Short:   "Predict a lock setting for each received symbol.",
		Example: `  insideagent act --symbol 3 --symbol 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols := make([]engine.Symbol, len(raw))
			for i, v := range raw {
				symbols[i] = engine.Symbol(v)
			}
			targets, scores, err := get().Act(symbols)
			if err != nil {
				return err
			}
			type row struct {
				Symbol engine.Symbol `json:"symbol"`
				Target engine.State  `json:"target"`
				Scores [][]float64   `json:"scores"`
			}
			out := make([]row, len(symbols))
			for b := range symbols {
				perDigit := make([][]float64, scores.Digits)
				for d := range perDigit {
					perDigit[d] = append([]float64(nil), scores.Digit(b, d)...)
				}
				out[b] = row{Symbol: symbols[b], Target: targets[b], Scores: perDigit}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntSliceVar(&raw, "symbol", nil, "symbol index, repeatable")
	_ = cmd.MarkFlagRequired("symbol")
	return cmd
}

func newParamsCmd(get func() *insideagent.Agent) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "List parameter names and shapes of both networks.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), get().Params())
		},
	}
}

// parseState parses "0,1,2" into a State. Range checks are left to the agent.
func parseState(s string) (engine.State, error) {
	parts := strings.Split(s, ",")
	st := make(engine.State, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: state %q: digit %d is not an integer", engine.ErrInvalidValue, s, i)
		}
		st[i] = v
	}
	return st, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
