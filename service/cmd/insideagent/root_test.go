// cmd/insideagent/root_test.go
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	engine "github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/engine"
	"github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCmd executes the root command with args against a fresh env file and
// returns stdout.
func runCmd(t *testing.T, env string, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(env), 0o600))
	for _, k := range config.Keys() {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--env-file", path}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

const smallLock = "LOCK_DIGITS=3\nLOCK_STATES_PER_DIGIT=4\nLOCK_VOCAB_SIZE=5\nLOG_LEVEL=error\n"

func TestSpeakCommand(t *testing.T) {
	out, err := runCmd(t, smallLock, "speak", "--state", "0,1,2", "--state", "3, 3, 3")
	require.NoError(t, err)

	var rows []struct {
		State  []int     `json:"state"`
		Symbol int       `json:"symbol"`
		Scores []float64 `json:"scores"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, []int{0, 1, 2}, rows[0].State)
	assert.Equal(t, []int{3, 3, 3}, rows[1].State)
	for _, r := range rows {
		assert.Len(t, r.Scores, 5)
		assert.GreaterOrEqual(t, r.Symbol, 0)
		assert.Less(t, r.Symbol, 5)
	}
}

func TestSpeakCommandRejectsBadState(t *testing.T) {
	_, err := runCmd(t, smallLock, "speak", "--state", "0,1,9")
	assert.ErrorIs(t, err, engine.ErrInvalidValue)

	_, err = runCmd(t, smallLock, "speak", "--state", "0,x,1")
	assert.ErrorIs(t, err, engine.ErrInvalidValue)

	_, err = runCmd(t, smallLock, "speak", "--state", "0,1")
	assert.ErrorIs(t, err, engine.ErrInvalidShape)
}

func TestActCommand(t *testing.T) {
	out, err := runCmd(t, smallLock, "act", "--symbol", "4", "--symbol", "0")
	require.NoError(t, err)

	var rows []struct {
		Symbol int         `json:"symbol"`
		Target []int       `json:"target"`
		Scores [][]float64 `json:"scores"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, 4, rows[0].Symbol)
	for _, r := range rows {
		require.Len(t, r.Target, 3)
		require.Len(t, r.Scores, 3)
		for d, s := range r.Scores {
			assert.Len(t, s, 4)
			assert.GreaterOrEqual(t, r.Target[d], 0)
			assert.Less(t, r.Target[d], 4)
		}
	}
}

func TestNormalizedCommandNeedsEvalForSingleRow(t *testing.T) {
	env := smallLock + "LOCK_NORMALIZE=true\n"
	_, err := runCmd(t, env, "act", "--symbol", "1")
	assert.ErrorIs(t, err, engine.ErrDegenerateBatch)

	_, err = runCmd(t, env, "--eval", "act", "--symbol", "1")
	assert.NoError(t, err)
}

func TestEnvironmentDoesNotLeakIntoCommands(t *testing.T) {
	t.Setenv(config.EnvHeads, "bogus")
	t.Setenv(config.EnvEncoderLatent, "x")
	_, err := runCmd(t, smallLock, "params")
	assert.NoError(t, err)
}

func TestBadLogLevelFlag(t *testing.T) {
	_, err := runCmd(t, smallLock, "--log-level", "loud", "params")
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
}

func TestParamsCommand(t *testing.T) {
	out, err := runCmd(t, smallLock, "params")
	require.NoError(t, err)

	var params []struct {
		Network string `json:"network"`
		Name    string `json:"name"`
		Rows    int    `json:"rows"`
		Cols    int    `json:"cols"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &params))
	require.NotEmpty(t, params)
	assert.Equal(t, "encoder", params[0].Network)
	assert.Equal(t, "fc1.weight", params[0].Name)
	assert.Equal(t, 12, params[0].Cols)
}

func TestParseState(t *testing.T) {
	st, err := parseState(" 1,0 ,2")
	require.NoError(t, err)
	assert.Equal(t, engine.State{1, 0, 2}, st)

	_, err = parseState("")
	assert.ErrorIs(t, err, engine.ErrInvalidValue)
}
