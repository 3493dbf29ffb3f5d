// Package corefuzz is a coverage-guided, in-process-target fuzzing engine.
//
// A consumer registers a target function under a name and wraps it with
// Fuzz; running the resulting binary parses command-line arguments and
// either drives the fuzzing loop or, if COREFUZZ_WORKER names this exact
// target, re-enters as the worker that executes it. Both the supervisor
// and the worker are the same program, distinguished only by an
// environment variable set across the re-exec boundary.
package corefuzz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corefuzz/corefuzz/internal/config"
	"github.com/corefuzz/corefuzz/internal/corpus"
	"github.com/corefuzz/corefuzz/internal/dictionary"
	"github.com/corefuzz/corefuzz/internal/mutator"
	"github.com/corefuzz/corefuzz/internal/snapshot"
	"github.com/corefuzz/corefuzz/internal/supervisor"
	"github.com/corefuzz/corefuzz/internal/worker"
)

// Target is the function under test: it must return a non-nil error (or
// panic) exactly when it wants the input flagged as a crash.
type Target func(data []byte) error

// Fuzz builds and executes the CLI for a single registered target named
// name. Call this from main(); it does not return in the worker branch
// (the process exits as soon as worker.Run's loop ends, either after a
// fault reply or when the supervisor tears the pipe down).
func Fuzz(name string, target Target) {
	if os.Getenv(supervisor.WorkerEnvVar) == name {
		runWorker(name, target)
		return
	}
	runCLI(name, target)
}

func runWorker(name string, target Target) {
	closeFDMask := 0
	if v := os.Getenv(supervisor.CloseFDMaskEnvVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			closeFDMask = n
		}
	}

	in := os.NewFile(3, "corefuzz-in")
	out := os.NewFile(4, "corefuzz-out")
	if in == nil || out == nil {
		fmt.Fprintln(os.Stderr, "corefuzz: worker launched without a control channel")
		os.Exit(1)
	}

	if err := worker.Run(func(b []byte) error { return target(b) }, in, out, closeFDMask); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

// cliOptions holds the flag destinations for the cobra command built by
// runCLI; kept together so applyFlags and the RunE closure don't
// have to thread a dozen separate variables around.
type cliOptions struct {
	exactArtifactPath string
	regression        bool
	rssLimitMB        int
	maxInputSize      int
	closeFDMask       int
	runs              int
	timeout           int
	mutatorsFilter    string
	dictPath          string
	configPath        string
	tui               bool
	maxExecsPerSec    float64
	listMutators      bool
}

func runCLI(name string, target Target) {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Coverage-guided fuzzer for %s", name),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(name, target, args, opts, cmd.Flags().Changed)
		},
	}

	root.Flags().StringVar(&opts.exactArtifactPath, "exact-artifact-path", "", "set exact artifact path for crashes/timeouts/ooms")
	root.Flags().BoolVar(&opts.regression, "regression", false, "run the fuzzer through the seed corpus once instead of mutating")
	root.Flags().IntVar(&opts.rssLimitMB, "rss-limit-mb", 2048, "memory usage limit in MB (0 disables the check)")
	root.Flags().IntVar(&opts.maxInputSize, "max-input-size", 4096, "max input size in bytes")
	root.Flags().IntVar(&opts.closeFDMask, "close-fd-mask", 0, "bitmask: 1 silences the target's stdout, 2 its stderr")
	root.Flags().IntVar(&opts.runs, "runs", -1, "number of executions to run before stopping (-1 = unbounded)")
	root.Flags().IntVar(&opts.timeout, "timeout", 30, "seconds before an execution is treated as a timeout")
	root.Flags().StringVar(&opts.mutatorsFilter, "mutators", "", "whitespace-separated tag filter selecting which mutators to use")
	root.Flags().StringVar(&opts.dictPath, "dict", "", "path to a dictionary file or directory")
	root.Flags().StringVar(&opts.configPath, "config", "", "path to a YAML config file overriding the defaults")
	root.Flags().BoolVar(&opts.tui, "tui", false, "show a live stats dashboard alongside the log lines")
	root.Flags().Float64Var(&opts.maxExecsPerSec, "max-execs-per-sec", 0, "throttle executions per second (0 = unlimited)")
	root.Flags().BoolVar(&opts.listMutators, "list-mutators", false, "print the mutator catalog and exit")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(name string, target Target, dirs []string, opts *cliOptions, flagChanged func(string) bool) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadYAML(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlags(cfg, dirs, opts, flagChanged)

	if opts.listMutators {
		printMutatorCatalog(cfg.Mutation.MutatorsFilter)
		return nil
	}

	rng := mutator.NewSeededRand(seedFromEnv())
	c, err := corpus.New(corpus.Options{
		Dirs:           cfg.Mutation.SeedDirs,
		MaxInputSize:   cfg.Run.MaxInputSize,
		MutatorsFilter: cfg.Mutation.MutatorsFilter,
		DictPath:       cfg.Mutation.DictPath,
		Rand:           rng,
	})
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	sup := supervisor.New(logger, c, supervisor.Config{
		RSSLimitMB:        cfg.Run.RSSLimitMB,
		Timeout:           cfg.Run.Timeout,
		Runs:              cfg.Run.Runs,
		CloseFDMask:       cfg.Run.CloseFDMask,
		ExactArtifactPath: cfg.Artifact.ExactArtifactPath,
		MaxExecsPerSec:    cfg.Run.MaxExecsPerSec,
	}, name)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Diagnostic.EnableNearDupScan {
		go snapshot.WatchNearDuplicates(ctx, logger, c)
	}

	if cfg.Diagnostic.EnableTUI {
		stopDashboard := runDashboard(ctx, name, sup)
		defer stopDashboard()
	}

	var runErr error
	if cfg.Run.Regression {
		runErr = sup.RunRegression(ctx)
	} else {
		runErr = sup.Run(ctx)
	}

	if runErr != nil {
		logger.Error(runErr.Error())
		os.Exit(exitCodeFor(runErr))
	}
	return nil
}

// applyFlags layers explicitly-passed CLI flags on top of the loaded
// config, so the precedence is flags > config file > built-in defaults:
// a flag left at its default is not applied unless the user actually set
// it, or it would always clobber a value the config file set.
func applyFlags(cfg *config.Config, dirs []string, opts *cliOptions, flagChanged func(string) bool) {
	if len(dirs) > 0 {
		cfg.Mutation.SeedDirs = dirs
	}
	if flagChanged("exact-artifact-path") {
		cfg.Artifact.ExactArtifactPath = opts.exactArtifactPath
	}
	if flagChanged("regression") {
		cfg.Run.Regression = opts.regression
	}
	if flagChanged("rss-limit-mb") {
		cfg.Run.RSSLimitMB = opts.rssLimitMB
	}
	if flagChanged("max-input-size") {
		cfg.Run.MaxInputSize = opts.maxInputSize
	}
	if flagChanged("close-fd-mask") {
		cfg.Run.CloseFDMask = opts.closeFDMask
	}
	if flagChanged("runs") {
		cfg.Run.Runs = opts.runs
	}
	if flagChanged("timeout") {
		cfg.Run.Timeout = secondsToDuration(opts.timeout)
	}
	if flagChanged("mutators") {
		cfg.Mutation.MutatorsFilter = opts.mutatorsFilter
	}
	if flagChanged("dict") {
		cfg.Mutation.DictPath = opts.dictPath
	}
	if flagChanged("tui") {
		cfg.Diagnostic.EnableTUI = opts.tui
	}
	if flagChanged("max-execs-per-sec") {
		cfg.Run.MaxExecsPerSec = opts.maxExecsPerSec
	}
}

func printMutatorCatalog(filterExpr string) {
	reg := mutator.NewRegistry()
	mutator.Register17(reg, dictionary.New())
	filter := mutator.ParseFilter(filterExpr)
	fmt.Println("Mutators currently available (and their tags):")
	for _, line := range reg.Describe(filter) {
		fmt.Println("  " + line)
	}
	fmt.Println()
	fmt.Println("Mutators prefixed by '-' are currently disabled.")
}

// exitCodeFor maps a run failure to a process exit code. Every failure
// exits non-zero; the distinct codes just let calling scripts (or the
// demo's own smoke tests) tell a crash apart from a timeout or an OOM
// without parsing the log.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, supervisor.ErrWorkerFault):
		return 2
	case errors.Is(err, supervisor.ErrWorkerTimeout):
		return 3
	case errors.Is(err, supervisor.ErrOOMExceeded):
		return 4
	case errors.Is(err, supervisor.ErrWorkerDied):
		return 5
	default:
		return 1
	}
}
