// amp runs an Intcode program as a chain of amplifiers.
// By default it searches every ordering of the phase settings for the
// largest output signal; -once runs the phases in the order given.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/psilLang/intcode/pkg/amp"
	"github.com/psilLang/intcode/pkg/config"
	"github.com/psilLang/intcode/pkg/intcode"
	"github.com/psilLang/intcode/pkg/types"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var (
	flagPhases   = flag.String("phases", "", "Comma-separated phase settings (default 0,1,2,3,4)")
	flagFeedback = flag.Bool("feedback", false, "Feed the last amplifier's output back to the first")
	flagThreaded = flag.Bool("threaded", false, "Run each amplifier on its own goroutine")
	flagBuffer   = flag.Int("buffer", 0, "Channel capacity between threaded amplifiers")
	flagOnce     = flag.Bool("once", false, "Run the phases in the given order instead of searching")
	flagSignal   = flag.Int64("signal", 0, "Initial signal for -once")
	flagMaxSteps = flag.Int("max-steps", 0, "Step limit per amplifier (0 = unlimited)")
	flagConfig   = flag.String("config", "", "Directory containing intcode.toml (default: search upwards)")
	flagVerbose  = flag.Int("v", 0, "Log verbosity")
)

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
	applyFlags(cfg)
	commonlog.Configure(cfg.Log.Verbosity, nil)

	filename := cfg.ProgramPath()
	if args := flag.Args(); len(args) > 0 {
		filename = args[0]
	}
	if filename == "" {
		return fmt.Errorf("no program given")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}
	m, err := intcode.New(string(data))
	if err != nil {
		return fmt.Errorf("parse error in %s: %w", filename, err)
	}
	m.MaxSteps = cfg.Machine.MaxSteps

	phases := cfg.Phases()
	if isSet("phases") {
		if phases, err = config.ParseWords(*flagPhases); err != nil {
			return fmt.Errorf("-phases: %w", err)
		}
	}

	ctx, stop := interruptContext(cfg.Amp.Threaded)
	defer stop()

	if *flagOnce {
		out, err := runner(ctx, cfg)(m, phases, types.Word(*flagSignal))
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	var res amp.Result
	if cfg.Amp.Threaded {
		res, err = amp.MaxSignalThreaded(ctx, m, phases, cfg.Amp.Buffer)
	} else {
		res, err = amp.MaxSignal(m, phases, runner(ctx, cfg))
	}
	if err != nil {
		return err
	}
	fmt.Printf("%d %v\n", res.Signal, res.Phases)
	return nil
}

// interruptContext cancels on Ctrl-C when the amplifiers run on a ring,
// which watches the context. The cooperative runners never look at one, so
// they keep the default interrupt behaviour of exiting the process.
func interruptContext(threaded bool) (context.Context, context.CancelFunc) {
	if !threaded {
		return context.WithCancel(context.Background())
	}
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// runner picks the chain strategy for a single run.
func runner(ctx context.Context, cfg *config.Config) amp.Runner {
	switch {
	case cfg.Amp.Threaded:
		return func(m *intcode.Machine, phases []types.Word, signal types.Word) (types.Word, error) {
			r, err := amp.NewRing(ctx, m, len(phases), cfg.Amp.Buffer)
			if err != nil {
				return 0, err
			}
			out, err := r.Run(phases, signal)
			if cerr := r.Close(); err == nil {
				err = cerr
			}
			return out, err
		}
	case cfg.Amp.Feedback:
		return amp.RunFeedback
	}
	return amp.RunSeries
}

func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "feedback":
			cfg.Amp.Feedback = *flagFeedback
		case "threaded":
			cfg.Amp.Threaded = *flagThreaded
		case "buffer":
			cfg.Amp.Buffer = *flagBuffer
		case "max-steps":
			cfg.Machine.MaxSteps = *flagMaxSteps
		case "v":
			cfg.Log.Verbosity = *flagVerbose
		}
	})
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

func isSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
