// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	engine "github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/engine"
	"github.com/SouthwestWindQ/Keep-Talking-and-Nobody-Explodes/engine/agent"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Environment keys recognized by FromEnv.
const (
	EnvDigits         = "LOCK_DIGITS"
	EnvStatesPerDigit = "LOCK_STATES_PER_DIGIT"
	EnvVocabSize      = "LOCK_VOCAB_SIZE"
	EnvEncoderLatent  = "LOCK_ENCODER_LATENT"
	EnvDecoderLatent  = "LOCK_DECODER_LATENT"
	EnvNormalize      = "LOCK_NORMALIZE"
	EnvHeads          = "LOCK_HEADS"
	EnvSeed           = "LOCK_SEED"
	EnvLogLevel       = "LOG_LEVEL"
)

// Keys lists every environment key FromEnv reads.
func Keys() []string {
	return []string{
		EnvDigits, EnvStatesPerDigit, EnvVocabSize,
		EnvEncoderLatent, EnvDecoderLatent,
		EnvNormalize, EnvHeads, EnvSeed, EnvLogLevel,
	}
}

// Config holds everything needed to build an inside agent.
type Config struct {
	Dims     engine.Dims
	Encoder  agent.Options
	Decoder  agent.Options
	LogLevel logrus.Level
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		Dims:     engine.DefaultDims(),
		Encoder:  agent.DefaultEncoderOptions(false),
		Decoder:  agent.DefaultDecoderOptions(false),
		LogLevel: logrus.InfoLevel,
	}
}

// Load reads the given .env files (".env" when none are named) into the
// process environment, then builds a Config from it. Missing files are not
// an error; variables already set in the environment take precedence.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromMap builds a Config from key/value pairs, e.g. the result of
// godotenv.Read or godotenv.Unmarshal.
func FromMap(env map[string]string) (Config, error) {
	return FromEnv(func(k string) string { return env[k] })
}

// FromEnv builds a Config from a getenv-style lookup. Unset keys keep their
// defaults. Normalization switches the default latent widths and decoder
// head layout unless they are set explicitly.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	var err error

	intVar := func(key string, dst *int) {
		if err != nil {
			return
		}
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, perr := strconv.Atoi(v)
		if perr != nil {
			err = fmt.Errorf("%w: %s=%q is not an integer", engine.ErrInvalidConfig, key, v)
			return
		}
		*dst = n
	}

	intVar(EnvDigits, &cfg.Dims.Digits)
	intVar(EnvStatesPerDigit, &cfg.Dims.StatesPerDigit)
	intVar(EnvVocabSize, &cfg.Dims.VocabSize)
	if err != nil {
		return Config{}, err
	}

	if v := strings.TrimSpace(getenv(EnvNormalize)); v != "" {
		normalize, perr := strconv.ParseBool(v)
		if perr != nil {
			return Config{}, fmt.Errorf("%w: %s=%q is not a boolean", engine.ErrInvalidConfig, EnvNormalize, v)
		}
		cfg.Encoder = agent.DefaultEncoderOptions(normalize)
		cfg.Decoder = agent.DefaultDecoderOptions(normalize)
	}

	intVar(EnvEncoderLatent, &cfg.Encoder.Latent)
	intVar(EnvDecoderLatent, &cfg.Decoder.Latent)
	if err != nil {
		return Config{}, err
	}

	if v := strings.TrimSpace(getenv(EnvHeads)); v != "" {
		heads, herr := agent.ParseHeadLayout(v)
		if herr != nil {
			return Config{}, herr
		}
		cfg.Decoder.Heads = heads
	}

	if v := strings.TrimSpace(getenv(EnvSeed)); v != "" {
		seed, perr := strconv.ParseUint(v, 10, 64)
		if perr != nil {
			return Config{}, fmt.Errorf("%w: %s=%q is not an unsigned integer", engine.ErrInvalidConfig, EnvSeed, v)
		}
		cfg.Encoder.Seed = seed
		// Offset so the two networks never draw identical parameters.
		cfg.Decoder.Seed = seed + 1
	}

	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		lvl, lerr := logrus.ParseLevel(v)
		if lerr != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", engine.ErrInvalidConfig, EnvLogLevel, lerr)
		}
		cfg.LogLevel = lvl
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the lock dimensions and hidden widths.
func (c Config) Validate() error {
	if err := c.Dims.Validate(); err != nil {
		return err
	}
	if c.Encoder.Latent <= 0 {
		return fmt.Errorf("%w: encoder latent must be positive (got %d)", engine.ErrInvalidConfig, c.Encoder.Latent)
	}
	if c.Decoder.Latent <= 0 {
		return fmt.Errorf("%w: decoder latent must be positive (got %d)", engine.ErrInvalidConfig, c.Decoder.Latent)
	}
	return nil
}

// Fields renders the config as logrus fields.
func (c Config) Fields() logrus.Fields {
	return logrus.Fields{
		"digits":         c.Dims.Digits,
		"states":         c.Dims.StatesPerDigit,
		"vocab":          c.Dims.VocabSize,
		"encoder_latent": c.Encoder.Latent,
		"decoder_latent": c.Decoder.Latent,
		"normalize":      c.Encoder.Normalize,
		"heads":          c.Decoder.Heads.String(),
	}
}
