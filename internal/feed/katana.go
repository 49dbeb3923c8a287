package feed

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"go.uber.org/zap"
)

// KatanaConfig describes the katana invocation used as the crawl feed.
type KatanaConfig struct {
	Binary            string
	SeedURL           string
	MatchPattern      string
	MaxDepth          int
	RequestsPerSecond int
}

// Args returns the katana command line for cfg.
func (cfg KatanaConfig) Args() []string {
	return []string{
		"-u", cfg.SeedURL,
		"-mr", cfg.MatchPattern,
		"-d", strconv.Itoa(cfg.MaxDepth),
		"-rl", strconv.Itoa(cfg.RequestsPerSecond),
		"-silent",
		"-jsonl",
	}
}

// NewKatanaSource starts katana and streams its JSONL output. Failing to
// start the process is returned immediately; a non-zero exit after start
// surfaces from Next as cafe.ErrSourceFailed.
func NewKatanaSource(ctx context.Context, cfg KatanaConfig, logger *zap.Logger) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bin := cfg.Binary
	if bin == "" {
		bin = "katana"
	}
	cmd := exec.Command(bin, cfg.Args()...) // #nosec G204 -- binary and args come from operator config.
	stderr, err := zap.NewStdLogAt(logger.Named("katana"), zap.WarnLevel)
	if err == nil {
		cmd.Stderr = stderr.Writer()
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("katana stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start katana: %w", err)
	}
	logger.Info("katana started", zap.Int("pid", cmd.Process.Pid), zap.Strings("args", cfg.Args()))

	return Start(ctx, func(ctx context.Context, emit Emit) error {
		stop := context.AfterFunc(ctx, func() {
			_ = cmd.Process.Kill()
		})
		defer stop()

		scanErr := scanLines(ctx, stdout, emit)
		waitErr := cmd.Wait()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if scanErr != nil {
			return scanErr
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return fmt.Errorf("katana exited with code %d: %w", exitErr.ExitCode(), waitErr)
		}
		if waitErr != nil {
			return fmt.Errorf("katana wait: %w", waitErr)
		}
		return nil
	}), nil
}
