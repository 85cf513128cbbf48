package deploy

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ComposeClient drives docker compose for the named project services
type ComposeClient struct {
	runner Runner
	file   string
	logger *zap.Logger
}

// NewComposeClient creates a compose client bound to a compose file
func NewComposeClient(runner Runner, composeFile string, logger *zap.Logger) *ComposeClient {
	return &ComposeClient{
		runner: runner,
		file:   composeFile,
		logger: logger,
	}
}

func (c *ComposeClient) compose(args ...string) []string {
	return append([]string{"compose", "-f", c.file}, args...)
}

// Up starts the given services in detached mode
func (c *ComposeClient) Up(ctx context.Context, services ...string) error {
	args := c.compose(append([]string{"up", "-d"}, services...)...)
	if _, err := c.runner.Run(ctx, "docker", args...); err != nil {
		return fmt.Errorf("failed to start %s: %w", strings.Join(services, ", "), err)
	}
	c.logger.Info("Services started", zap.Strings("services", services))
	return nil
}

// Teardown stops and removes the given services. Failures are tolerated:
// on a first deployment the containers do not exist yet.
func (c *ComposeClient) Teardown(ctx context.Context, services ...string) {
	stopArgs := c.compose(append([]string{"stop"}, services...)...)
	if out, err := c.runner.Run(ctx, "docker", stopArgs...); err != nil {
		c.logger.Warn("Service stop failed, continuing",
			zap.Strings("services", services),
			zap.String("output", out),
		)
	}

	rmArgs := c.compose(append([]string{"rm", "-f"}, services...)...)
	if out, err := c.runner.Run(ctx, "docker", rmArgs...); err != nil {
		c.logger.Warn("Service removal failed, continuing",
			zap.Strings("services", services),
			zap.String("output", out),
		)
	}
}

// Exec runs a command inside a running service container
func (c *ComposeClient) Exec(ctx context.Context, service string, command ...string) (string, error) {
	args := c.compose(append([]string{"exec", "-T", service}, command...)...)
	out, err := c.runner.Run(ctx, "docker", args...)
	if err != nil {
		return out, fmt.Errorf("failed to exec in %s: %w", service, err)
	}
	return out, nil
}

// Status returns the compose service state listing
func (c *ComposeClient) Status(ctx context.Context) (string, error) {
	out, err := c.runner.Run(ctx, "docker", c.compose("ps")...)
	if err != nil {
		return "", fmt.Errorf("failed to list services: %w", err)
	}
	return out, nil
}
