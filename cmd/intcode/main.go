// intcode runs Intcode programs.
// Programs are comma-separated integers; inputs come from -input, the
// console (-i) or an interactive debugger (-debug).
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/psilLang/intcode/pkg/asm"
	"github.com/psilLang/intcode/pkg/config"
	"github.com/psilLang/intcode/pkg/intcode"
	"github.com/psilLang/intcode/pkg/types"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var (
	flagInput       = flag.String("input", "", "Comma-separated input values")
	flagInteractive = flag.Bool("i", false, "Read input from stdin, one value per line")
	flagDebug       = flag.Bool("debug", false, "Start the interactive debugger")
	flagDisasm      = flag.Bool("disasm", false, "Disassemble instead of run")
	flagTrace       = flag.Bool("trace", false, "Print each instruction before it executes")
	flagMaxSteps    = flag.Int("max-steps", 0, "Step limit (0 = unlimited)")
	flagConfig      = flag.String("config", "", "Directory containing intcode.toml (default: search upwards)")
	flagSave        = flag.String("save", "", "Write a snapshot here when the program halts or runs out of input")
	flagResume      = flag.String("resume", "", "Resume from a snapshot instead of loading a program")
	flagVerbose     = flag.Int("v", 0, "Log verbosity")
	flagPokes       pokeList
)

var log = commonlog.GetLogger("intcode")

// pokeList collects repeated -poke addr=value flags.
type pokeList []config.Poke

func (p *pokeList) String() string { return fmt.Sprint(*p) }

func (p *pokeList) Set(s string) error {
	poke, err := config.ParsePoke(s)
	if err != nil {
		return err
	}
	*p = append(*p, poke)
	return nil
}

func init() {
	flag.Var(&flagPokes, "poke", "Patch memory before running: addr=value (repeatable)")
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	verbosity := cfg.Log.Verbosity
	if isSet("v") {
		verbosity = *flagVerbose
	}
	commonlog.Configure(verbosity, nil)

	m, err := loadMachine(cfg)
	if err != nil {
		return err
	}

	if *flagDisasm {
		fmt.Print(asm.Disassemble(m.Memory().Words()))
		return nil
	}

	if *flagDebug {
		return newDebugger(m, os.Stdin, os.Stdout).Loop()
	}

	switch {
	case *flagInteractive:
		err = runIO(m, consoleIO())
	default:
		inputs := cfg.Inputs()
		if isSet("input") {
			if inputs, err = config.ParseWords(*flagInput); err != nil {
				return fmt.Errorf("-input: %w", err)
			}
		}
		err = runBuffered(m, inputs)
	}

	if errors.Is(err, intcode.ErrInputExhausted) && *flagSave != "" {
		fmt.Fprintf(os.Stderr, "Suspended at pc %d waiting for input\n", m.PC())
		return saveSnapshot(m, *flagSave)
	}
	if err != nil {
		return err
	}
	if *flagSave != "" {
		return saveSnapshot(m, *flagSave)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if *flagConfig != "" {
		return config.Load(*flagConfig)
	}
	cfg, err := config.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

func loadMachine(cfg *config.Config) (*intcode.Machine, error) {
	var (
		m   *intcode.Machine
		err error
	)

	if *flagResume != "" {
		data, err := os.ReadFile(*flagResume)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", *flagResume, err)
		}
		if m, err = intcode.UnmarshalSnapshot(data); err != nil {
			return nil, fmt.Errorf("resuming %s: %w", *flagResume, err)
		}
		log.Infof("resumed %s at pc %d after %d steps", *flagResume, m.PC(), m.Steps())
	} else {
		filename := cfg.ProgramPath()
		if args := flag.Args(); len(args) > 0 {
			filename = args[0]
		}
		if filename == "" {
			return nil, errors.New("no program given")
		}
		if m, err = loadProgram(filename); err != nil {
			return nil, err
		}

		pokes, err := cfg.Pokes()
		if err != nil {
			return nil, err
		}
		for _, p := range append(pokes, flagPokes...) {
			m.Poke(p.Addr, p.Value)
		}
	}

	m.MaxSteps = cfg.Machine.MaxSteps
	if isSet("max-steps") {
		m.MaxSteps = *flagMaxSteps
	}
	return m, nil
}

func loadProgram(filename string) (*intcode.Machine, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}

	// Assembly sources are assembled on the fly
	if strings.HasSuffix(filename, ".ias") {
		words, err := asm.Assemble(filename, string(data))
		if err != nil {
			return nil, fmt.Errorf("assembly error in %s: %w", filename, err)
		}
		return intcode.NewFromWords(words), nil
	}

	m, err := intcode.New(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", filename, err)
	}
	log.Debugf("loaded %s: %d cells", filename, m.Memory().BaseLen())
	return m, nil
}

func runBuffered(m *intcode.Machine, inputs []types.Word) error {
	in := intcode.NewQueue(inputs...)
	out := intcode.OutputFunc(func(w types.Word) error {
		_, err := fmt.Println(w)
		return err
	})
	if err := runIO(m, ioPair{in, out}); err != nil {
		return err
	}
	if in.Len() > 0 {
		log.Infof("%d input values left unread", in.Len())
	}
	return nil
}

type ioPair struct {
	intcode.Input
	intcode.Output
}

func consoleIO() ioPair {
	c := intcode.NewConsole(os.Stdin, os.Stdout)
	c.Prompt = "> "
	return ioPair{c, c}
}

func runIO(m *intcode.Machine, io ioPair) error {
	if *flagTrace {
		m.Trace = os.Stderr
	}
	return m.Run(io, io)
}

func saveSnapshot(m *intcode.Machine, path string) error {
	data, err := m.MarshalSnapshot()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	log.Infof("saved snapshot to %s", path)
	return nil
}

func isSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
