// Package config handles intcode.toml project configuration.
package config

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/psilLang/intcode/pkg/parser"
	"github.com/psilLang/intcode/pkg/types"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "intcode.toml"

// Config represents an intcode.toml file.
type Config struct {
	Machine Machine `toml:"machine"`
	IO      IO      `toml:"io"`
	Amp     Amp     `toml:"amp"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the intcode.toml file (set at load time).
	Dir string `toml:"-"`
}

// Machine configures the program and its execution limits.
type Machine struct {
	Program  string           `toml:"program"`
	MaxSteps int              `toml:"max-steps"`
	Poke     map[string]int64 `toml:"poke"`
}

// IO configures buffered program input.
type IO struct {
	Inputs []int64 `toml:"inputs"`
}

// Amp configures amplifier chains.
type Amp struct {
	Phases   []int64 `toml:"phases"`
	Feedback bool    `toml:"feedback"`
	Threaded bool    `toml:"threaded"`
	Buffer   int     `toml:"buffer"`
}

// Log configures logging.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Amp: Amp{
			Phases: []int64{0, 1, 2, 3, 4},
			Buffer: 64,
		},
	}
}

// Load parses an intcode.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if c.Machine.MaxSteps < 0 {
		return nil, fmt.Errorf("%s: max-steps must not be negative", path)
	}
	if _, err := c.Pokes(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}

// FindAndLoad walks up from startDir to find an intcode.toml file,
// then loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ProgramPath returns the program path resolved against the config
// directory, or "" if none is set.
func (c *Config) ProgramPath() string {
	if c.Machine.Program == "" || filepath.IsAbs(c.Machine.Program) {
		return c.Machine.Program
	}
	return filepath.Join(c.Dir, c.Machine.Program)
}

// Inputs returns the configured program inputs as words.
func (c *Config) Inputs() []types.Word {
	return toWords(c.IO.Inputs)
}

// Phases returns the configured amplifier phases as words.
func (c *Config) Phases() []types.Word {
	return toWords(c.Amp.Phases)
}

// Poke is a single memory patch applied before a run.
type Poke struct {
	Addr  types.Addr
	Value types.Word
}

// Pokes returns the [machine.poke] table ("address" = value) sorted by
// address.
func (c *Config) Pokes() ([]Poke, error) {
	pokes := make([]Poke, 0, len(c.Machine.Poke))
	for k, v := range c.Machine.Poke {
		addr, err := strconv.ParseUint(strings.TrimSpace(k), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid poke address %q", k)
		}
		pokes = append(pokes, Poke{Addr: types.Addr(addr), Value: types.Word(v)})
	}
	slices.SortFunc(pokes, func(a, b Poke) int { return cmp.Compare(a.Addr, b.Addr) })
	return pokes, nil
}

// ParsePoke parses "addr=value" as given on the command line.
func ParsePoke(s string) (Poke, error) {
	a, v, ok := strings.Cut(s, "=")
	if !ok {
		return Poke{}, fmt.Errorf("invalid poke %q, want addr=value", s)
	}
	addr, err := strconv.ParseUint(strings.TrimSpace(a), 10, 64)
	if err != nil {
		return Poke{}, fmt.Errorf("invalid poke address %q", a)
	}
	val, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return Poke{}, fmt.Errorf("invalid poke value %q", v)
	}
	return Poke{Addr: types.Addr(addr), Value: types.Word(val)}, nil
}

// ParseWords parses a comma-separated list of integers such as "1,2,-3"
// with the program grammar, so malformed lists fail with a positioned
// *parser.ParseError. A blank string yields no words.
func ParseWords(s string) ([]types.Word, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return parser.ParseProgram("", s)
}

func toWords(vals []int64) []types.Word {
	if len(vals) == 0 {
		return nil
	}
	words := make([]types.Word, len(vals))
	for i, v := range vals {
		words[i] = types.Word(v)
	}
	return words
}
