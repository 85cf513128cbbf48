package deploy

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// CronInstaller installs the daily certificate-renewal entry into the
// system crontab
type CronInstaller struct {
	runner Runner
	logger *zap.Logger
}

// NewCronInstaller creates a cron installer
func NewCronInstaller(runner Runner, logger *zap.Logger) *CronInstaller {
	return &CronInstaller{
		runner: runner,
		logger: logger,
	}
}

// Install adds "<spec> <command>" to the crontab unless an entry running
// the same command already exists. Re-running a deploy must not pile up
// duplicate renewal entries.
func (i *CronInstaller) Install(ctx context.Context, spec, command string) error {
	// An empty crontab makes `crontab -l` exit non-zero; treat it as empty
	existing, err := i.runner.Run(ctx, "crontab", "-l")
	if err != nil {
		existing = ""
	}

	for _, line := range strings.Split(existing, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, command) {
			i.logger.Info("Renewal cron entry already installed", zap.String("entry", line))
			return nil
		}
	}

	entry := fmt.Sprintf("%s %s", spec, command)
	updated := strings.TrimSpace(existing + "\n" + entry)

	if _, err := i.runner.RunInput(ctx, updated+"\n", "crontab", "-"); err != nil {
		return fmt.Errorf("failed to install cron entry: %w", err)
	}

	i.logger.Info("Renewal cron entry installed", zap.String("entry", entry))
	return nil
}
