package deploy

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Runner executes external commands. The deployment engine never shells out
// directly; everything goes through a Runner so tests can inject a fake.
type Runner interface {
	// Run executes the command and returns its combined output
	Run(ctx context.Context, name string, args ...string) (string, error)

	// RunInput executes the command with the given stdin
	RunInput(ctx context.Context, stdin, name string, args ...string) (string, error)
}

// ExecRunner runs commands through os/exec
type ExecRunner struct {
	// Dir is the working directory for every command, usually the project root
	Dir    string
	logger *zap.Logger
}

// NewExecRunner creates a runner executing in the given directory
func NewExecRunner(dir string, logger *zap.Logger) *ExecRunner {
	return &ExecRunner{
		Dir:    dir,
		logger: logger,
	}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	return r.RunInput(ctx, "", name, args...)
}

func (r *ExecRunner) RunInput(ctx context.Context, stdin, name string, args ...string) (string, error) {
	r.logger.Debug("Running command",
		zap.String("command", name),
		zap.Strings("args", args),
	)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		return output, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, output)
	}
	return output, nil
}
