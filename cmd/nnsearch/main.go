// Command nnsearch is a UCI chess engine with an incrementally updated
// neural network evaluation.
//
// Usage:
//
//	nnsearch [flags] [uci | bench | analyze | perft] [args]
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/nnsearch/internal/engine"
	"github.com/hailam/nnsearch/internal/nnue"
	"github.com/hailam/nnsearch/internal/storage"
	"github.com/hailam/nnsearch/internal/uci"
)

// Network file looked up when -eval is not given.
const defaultNetName = "nnsearch.bin"

var (
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
	evalFile    = flag.String("eval", "", "network file (default: "+defaultNetName+" in the data directory or the working directory)")
	hashMB      = flag.Int("hash", 0, "transposition table size in MB (default: stored preference or 16)")
	threads     = flag.Int("threads", 0, "search threads (default: stored preference or 1)")
	logLevel    = flag.String("log-level", "info", "log level: debug, info, warn, error")
	randomNet   = flag.Uint64("random-net", 0, "use a random network built from this seed instead of a file")
	materialNet = flag.Bool("material-net", false, "use a network that only counts material instead of a file")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal().Err(err).Str("level", *logLevel).Msg("bad log level")
	}
	zerolog.SetGlobalLevel(level)

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", profilePath).Msg("CPU profiling enabled")
	}

	cmd, args := "uci", []string(nil)
	if flag.NArg() > 0 {
		cmd, args = flag.Arg(0), flag.Args()[1:]
	}

	switch cmd {
	case "uci":
		err = runUCI()
	case "bench":
		err = runBench(args)
	case "analyze":
		err = runAnalyze(args)
	case "perft":
		err = runPerft(args)
	default:
		usage()
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		// Fatal exits without running deferred calls.
		pprof.StopCPUProfile()
		log.Fatal().Err(err).Str("cmd", cmd).Msg("nnsearch failed")
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: %s [flags] [command] [args]

Commands:
  uci       speak UCI on stdin/stdout (default)
  bench     search a fixed set of positions and report nodes per second
  analyze   search one position, caching the result in the analysis database
  perft     count legal move paths

Flags:
`, filepath.Base(os.Args[0]))
	flag.PrintDefaults()
}

// loadNetwork returns the network selected by the flags. A missing network
// file is an error.
func loadNetwork(path string) (*nnue.Network, string, error) {
	if *materialNet {
		log.Warn().Msg("using a material-only network")
		return nnue.NewMaterialNetwork(), "", nil
	}
	if *randomNet != 0 {
		log.Warn().Uint64("seed", *randomNet).Msg("using a random network")
		return nnue.NewRandomNetwork(*randomNet), "", nil
	}

	candidates := []string{path}
	if path == "" {
		candidates = nil
		if p, err := storage.DefaultNetworkPath(defaultNetName); err == nil {
			candidates = append(candidates, p)
		}
		candidates = append(candidates, defaultNetName)
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		net, err := nnue.LoadFile(p)
		if err != nil {
			return nil, "", err
		}
		log.Info().Str("path", p).Msg("network loaded")
		return net, p, nil
	}
	return nil, "", fmt.Errorf("no network file found (tried %s): %w",
		strings.Join(candidates, ", "), os.ErrNotExist)
}

// newEngine builds an engine from the flags, falling back to prefs for
// anything not given on the command line.
func newEngine(prefs *storage.Preferences) (*engine.Engine, *nnue.Network, error) {
	opts := engine.DefaultOptions()
	path := *evalFile
	if prefs != nil {
		opts.HashMB = prefs.HashMB
		opts.Threads = prefs.Threads
		if path == "" {
			path = prefs.EvalFile
		}
	}
	if *hashMB > 0 {
		opts.HashMB = *hashMB
	}
	if *threads > 0 {
		opts.Threads = *threads
	}

	net, loadedFrom, err := loadNetwork(path)
	if err != nil {
		return nil, nil, err
	}
	opts.EvalFile = loadedFrom

	eng, err := engine.New(net, opts)
	if err != nil {
		return nil, nil, err
	}
	return eng, net, nil
}

func runUCI() error {
	eng, net, err := newEngine(nil)
	if err != nil {
		return err
	}
	return uci.New(eng, net, os.Stdout).Run(os.Stdin)
}

// errUsage reports bad sub-command arguments.
var errUsage = errors.New("bad arguments")
