package importer

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sratabix/gifselector/pkg/logger"
)

// CommandRunner abstracts the invocation of external tools (downloader,
// ffmpeg, ImageMagick) so the pipeline logic never hardcodes the
// invocation mechanism, and tests can substitute fakes.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct {
	timeout time.Duration
}

func NewExecRunner(timeout time.Duration) CommandRunner {
	return &execRunner{timeout: timeout}
}

// Run executes the named binary, resolved via the process PATH, waiting
// for it to complete. A non-zero exit is returned as an error with the
// tail of the combined output attached for diagnostics.
func (runner *execRunner) Run(parentCtx context.Context, name string, args ...string) error {
	ctx := parentCtx
	if runner.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parentCtx, runner.timeout)
		defer cancel()
	}

	log.Emit(logger.DEBUG, "Running external command %s %s\n", name, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("command %s failed: %w (%s)", name, err, tailOfOutput(output))
	}

	return nil
}

// tailOfOutput trims combined tool output down to its final lines;
// tools like ffmpeg emit screenfuls of build configuration before the
// message of interest.
func tailOfOutput(output []byte) string {
	const maxTail = 400

	trimmed := strings.TrimSpace(string(output))
	if len(trimmed) <= maxTail {
		return trimmed
	}

	return "..." + trimmed[len(trimmed)-maxTail:]
}
