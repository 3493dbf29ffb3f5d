// Package supervisor implements the fuzzing loop: it owns the corpus, the
// worker subprocess, and the decision of when an input is "interesting"
// (grew coverage), timed out, crashed, or pushed the process past its RSS
// ceiling.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/time/rate"

	"github.com/corefuzz/corefuzz/internal/artifact"
	"github.com/corefuzz/corefuzz/internal/channel"
	"github.com/corefuzz/corefuzz/internal/corpus"
)

// samplingWindow: a PULSE stats line is only logged if this much time has
// passed since the last sample, so an unproductive run doesn't spam the log.
const samplingWindow = 5 * time.Second

// Sentinel errors describing why Run stopped. A nil return means the run
// hit its --runs cap and stopped cleanly.
var (
	ErrWorkerTimeout = errors.New("supervisor: worker timed out")
	ErrWorkerFault   = errors.New("supervisor: worker reported a fault")
	ErrOOMExceeded   = errors.New("supervisor: worker exceeded the RSS limit")
	ErrWorkerDied    = errors.New("supervisor: worker exited unexpectedly")
)

// WorkerEnvVar names the environment variable a re-executed binary checks
// to decide whether it should run as a worker.
const WorkerEnvVar = "COREFUZZ_WORKER"

// CloseFDMaskEnvVar carries the --close-fd-mask value across the re-exec
// boundary, since the child process doesn't see the parent's parsed flags.
const CloseFDMaskEnvVar = "COREFUZZ_CLOSE_FD_MASK"

// Config bundles the run-time knobs Run needs from the CLI/YAML layer.
type Config struct {
	RSSLimitMB        int
	Timeout           time.Duration
	Runs              int
	CloseFDMask       int
	ExactArtifactPath string
	MaxExecsPerSec    float64
}

// Supervisor drives the fuzzing loop against a single registered target.
type Supervisor struct {
	logger     *slog.Logger
	corpus     *corpus.Corpus
	cfg        Config
	targetName string

	totalExecutions  atomic.Int64
	executionsInSmpl int64
	lastSampleTime   time.Time
	totalCoverage    atomic.Int64

	limiter *rate.Limiter
}

// Stats is a point-in-time view of the run, safe to read concurrently with
// Run (e.g. from a --tui poller goroutine).
type Stats struct {
	TotalExecutions int64
	TotalCoverage   int64
	CorpusLength    int
}

// Stats returns the current run counters.
func (s *Supervisor) Stats() Stats {
	return Stats{
		TotalExecutions: s.totalExecutions.Load(),
		TotalCoverage:   s.totalCoverage.Load(),
		CorpusLength:    s.corpus.Length(),
	}
}

// New builds a Supervisor for targetName, backed by c and configured by cfg.
func New(logger *slog.Logger, c *corpus.Corpus, cfg Config, targetName string) *Supervisor {
	s := &Supervisor{
		logger:         logger,
		corpus:         c,
		cfg:            cfg,
		targetName:     targetName,
		lastSampleTime: time.Now(),
	}
	if cfg.MaxExecsPerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.MaxExecsPerSec), 1)
	}
	return s
}

// spawnWorker re-executes the current binary with WorkerEnvVar set to
// s.targetName, wiring a dedicated pair of pipes (fds 3 and 4 in the
// child) as the request/reply channel so it never collides with the
// target's own stdout/stderr, which close-fd-mask independently silences
// inside the worker.
func (s *Supervisor) spawnWorker() (*exec.Cmd, *channel.Writer, *channel.ReplyReader, error) {
	reqR, reqW, err := os.Pipe()
	if err != nil {
		return nil, nil, nil, err
	}
	repR, repW, err := os.Pipe()
	if err != nil {
		return nil, nil, nil, err
	}

	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(),
		WorkerEnvVar+"="+s.targetName,
		fmt.Sprintf("%s=%d", CloseFDMaskEnvVar, s.cfg.CloseFDMask),
	)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{reqR, repW}

	if err := cmd.Start(); err != nil {
		reqR.Close()
		reqW.Close()
		repR.Close()
		repW.Close()
		return nil, nil, nil, err
	}
	// The ends handed to the child belong to it now.
	reqR.Close()
	repW.Close()

	return cmd, channel.NewWriter(reqW), channel.NewReplyReader(repR), nil
}

// Run executes the supervisor loop until the run cap is hit, the worker
// times out, crashes, or the combined RSS exceeds the configured limit.
// A nil return means the configured --runs cap was reached cleanly.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info(fmt.Sprintf("#0 READ units: %d", s.corpus.Length()))

	cmd, reqW, repR, err := s.spawnWorker()
	if err != nil {
		return err
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		_ = cmd.Wait()
	}()

	for {
		if s.cfg.Runs != -1 && s.totalExecutions.Load() >= int64(s.cfg.Runs) {
			_ = cmd.Process.Kill()
			s.logger.Info(fmt.Sprintf("did %d runs, stopping now.", s.cfg.Runs))
			return nil
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		buf := s.corpus.GenerateInput()
		if err := reqW.WriteInput(buf); err != nil {
			return fmt.Errorf("%w: %v", ErrWorkerDied, err)
		}

		reply, timedOut, err := s.recvWithTimeout(repR, s.cfg.Timeout)
		if timedOut {
			_ = cmd.Process.Kill()
			s.logger.Info("=================================================================")
			s.logger.Info(fmt.Sprintf("timeout reached. testcase took: %s", s.cfg.Timeout))
			_, _ = artifact.Write(s.logger, buf, "timeout-", s.cfg.ExactArtifactPath)
			return ErrWorkerTimeout
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWorkerDied, err)
		}

		if reply.IsFault {
			s.logger.Info(fmt.Sprintf("fault in worker: %s", reply.Fault))
			_, _ = artifact.Write(s.logger, buf, "crash-", s.cfg.ExactArtifactPath)
			return ErrWorkerFault
		}

		s.totalExecutions.Add(1)
		s.executionsInSmpl++

		var rss float64
		if reply.Coverage > s.totalCoverage.Load() {
			s.totalCoverage.Store(reply.Coverage)
			if err := s.corpus.Put(buf); err != nil {
				s.logger.Warn("failed to persist corpus entry", "error", err)
			}
			rss = s.logStats(cmd.Process.Pid, "NEW")
		} else if time.Since(s.lastSampleTime) > samplingWindow {
			rss = s.logStats(cmd.Process.Pid, "PULSE")
		}

		if s.cfg.RSSLimitMB > 0 && rss > float64(s.cfg.RSSLimitMB) {
			s.logger.Info(fmt.Sprintf("MEMORY OOM: exceeded %d MB. Killing worker", s.cfg.RSSLimitMB))
			_, _ = artifact.Write(s.logger, buf, "crash-", s.cfg.ExactArtifactPath)
			return ErrOOMExceeded
		}
	}
}

func (s *Supervisor) recvWithTimeout(repR *channel.ReplyReader, timeout time.Duration) (channel.Reply, bool, error) {
	type result struct {
		reply channel.Reply
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		reply, err := repR.ReadReply()
		ch <- result{reply, err}
	}()

	select {
	case r := <-ch:
		return r.reply, false, r.err
	case <-time.After(timeout):
		return channel.Reply{}, true, nil
	}
}

// logStats renders the "#N TYPE cov: … corp: … exec/s: … rss: … MB" line
// and returns the combined supervisor+worker RSS in MB.
func (s *Supervisor) logStats(workerPid int, logType string) float64 {
	rssMB := s.combinedRSSMB(workerPid)

	elapsed := time.Since(s.lastSampleTime).Seconds()
	execPerSec := 0
	if elapsed > 0 {
		execPerSec = int(float64(s.executionsInSmpl) / elapsed)
	}
	s.lastSampleTime = time.Now()
	s.executionsInSmpl = 0

	s.logger.Info(fmt.Sprintf("#%d %s     cov: %d corp: %d exec/s: %d rss: %.0f MB",
		s.totalExecutions.Load(), logType, s.totalCoverage.Load(), s.corpus.Length(), execPerSec, rssMB))
	return rssMB
}

func (s *Supervisor) combinedRSSMB(workerPid int) float64 {
	var total uint64
	for _, pid := range []int{workerPid, os.Getpid()} {
		p, err := process.NewProcess(int32(pid))
		if err != nil {
			continue
		}
		mem, err := p.MemoryInfo()
		if err != nil || mem == nil {
			continue
		}
		total += mem.RSS
	}
	return float64(total) / 1024 / 1024
}

// RunRegression replays every input already loaded into the corpus (the
// seed files under the configured dirs, plus the zero-length seed) through
// a single worker instead of driving new mutation, and stops with an error
// naming the first input that crashes or times out.
func (s *Supervisor) RunRegression(ctx context.Context) error {
	cmd, reqW, repR, err := s.spawnWorker()
	if err != nil {
		return err
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		_ = cmd.Wait()
	}()

	// A worker that times out or faults on one input is no longer usable
	// for the next one (it has exited, or is stuck), so regression mode
	// fails fast on the first bad input rather than trying to respawn.
	total := s.corpus.Length()
	for i, buf := range s.corpus.Entries() {
		if err := reqW.WriteInput(buf); err != nil {
			return fmt.Errorf("%w: %v", ErrWorkerDied, err)
		}
		reply, timedOut, err := s.recvWithTimeout(repR, s.cfg.Timeout)
		switch {
		case timedOut:
			return fmt.Errorf("regression: timeout on input %d/%d (%d bytes)", i+1, total, len(buf))
		case err != nil:
			return fmt.Errorf("%w: %v", ErrWorkerDied, err)
		case reply.IsFault:
			return fmt.Errorf("regression: fault on input %d/%d (%d bytes): %s", i+1, total, len(buf), reply.Fault)
		}
	}

	s.logger.Info(fmt.Sprintf("regression: all %d inputs passed", total))
	return nil
}
