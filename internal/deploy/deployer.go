package deploy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/craftmarket/backend/internal/infrastructure/config"
)

// composeService is the slice of ComposeClient the deployer drives
type composeService interface {
	Up(ctx context.Context, services ...string) error
	Teardown(ctx context.Context, services ...string)
	Status(ctx context.Context) (string, error)
}

// healthWaiter blocks until the web service is healthy
type healthWaiter interface {
	Wait(ctx context.Context) error
}

// proxyService swaps and reloads the reverse-proxy config
type proxyService interface {
	Install(variant ProxyVariant) error
	Reload(ctx context.Context) error
}

// certService checks and issues the TLS certificate
type certService interface {
	HasValidCert() bool
	Issue(ctx context.Context) error
}

// cronService installs the renewal crontab entry
type cronService interface {
	Install(ctx context.Context, spec, command string) error
}

// Deployer sequences a full deployment: container teardown and startup,
// health probing, reverse-proxy selection, certificate issuance and the
// renewal cron entry.
//
// Failure policy: every step is fatal except teardown of absent containers
// and certificate issuance. A failed issuance leaves the site on plain HTTP
// with a logged warning; the operator can re-run `deployctl cert issue`.
type Deployer struct {
	cfg     config.DeployConfig
	compose composeService
	health  healthWaiter
	proxy   proxyService
	certs   certService
	cron    cronService
	logger  *zap.Logger
}

// NewDeployer assembles a deployer from its parts
func NewDeployer(
	cfg config.DeployConfig,
	compose composeService,
	health healthWaiter,
	proxy proxyService,
	certs certService,
	cron cronService,
	logger *zap.Logger,
) *Deployer {
	return &Deployer{
		cfg:     cfg,
		compose: compose,
		health:  health,
		proxy:   proxy,
		certs:   certs,
		cron:    cron,
		logger:  logger,
	}
}

// BuildDeployer wires a deployer against the real docker, certbot and
// crontab binaries on the deployment host
func BuildDeployer(cfg config.DeployConfig, logger *zap.Logger) *Deployer {
	runner := NewExecRunner(cfg.ProjectRoot, logger)
	compose := NewComposeClient(runner, cfg.ComposeFile, logger)
	health := NewHealthProber(cfg.HealthURL, cfg.HealthWait, cfg.HealthInterval, logger)
	proxy := NewProxyManager(compose, cfg.ProxyService, cfg.ProxyConfPath, cfg.HTTPConfPath, cfg.HTTPSConfPath, logger)
	certs := NewCertManager(runner, cfg.CertbotImage, cfg.PublicHost, cfg.ACMEEmail, cfg.WebrootPath, cfg.CertLiveDir, logger)
	cron := NewCronInstaller(runner, logger)
	return NewDeployer(cfg, compose, health, proxy, certs, cron, logger)
}

// Deploy runs the full deployment sequence
func (d *Deployer) Deploy(ctx context.Context) error {
	if err := d.validate(); err != nil {
		return err
	}

	d.logger.Info("Starting deployment",
		zap.String("host", d.cfg.PublicHost),
		zap.String("compose_file", d.cfg.ComposeFile),
	)

	d.compose.Teardown(ctx, d.cfg.WebService, d.cfg.ProxyService)

	if err := d.compose.Up(ctx, d.cfg.DBService, d.cfg.CacheService); err != nil {
		return err
	}
	if err := d.compose.Up(ctx, d.cfg.WebService); err != nil {
		return err
	}

	if err := d.health.Wait(ctx); err != nil {
		return err
	}

	if err := d.configureProxy(ctx); err != nil {
		return err
	}

	if err := d.cron.Install(ctx, d.cfg.RenewCronSpec, d.cfg.RenewCommand); err != nil {
		return err
	}

	d.logger.Info("Deployment completed", zap.String("host", d.cfg.PublicHost))
	return nil
}

// configureProxy selects the proxy variant. With a valid certificate on
// disk the TLS variant goes live without touching the ACME client. Without
// one the site comes up on plain HTTP first, so the webroot challenge is
// reachable, and is switched to TLS only after a successful issuance.
func (d *Deployer) configureProxy(ctx context.Context) error {
	if d.certs.HasValidCert() {
		d.logger.Info("Valid certificate found, enabling TLS")
		if err := d.proxy.Install(VariantTLS); err != nil {
			return err
		}
		if err := d.compose.Up(ctx, d.cfg.ProxyService); err != nil {
			return err
		}
		return d.proxy.Reload(ctx)
	}

	if err := d.proxy.Install(VariantHTTP); err != nil {
		return err
	}
	if err := d.compose.Up(ctx, d.cfg.ProxyService); err != nil {
		return err
	}
	if err := d.proxy.Reload(ctx); err != nil {
		return err
	}

	if err := d.certs.Issue(ctx); err != nil {
		d.logger.Warn("Certificate issuance failed, staying on plain HTTP",
			zap.String("host", d.cfg.PublicHost),
			zap.Error(err),
		)
		return nil
	}

	if err := d.proxy.Install(VariantTLS); err != nil {
		return err
	}
	return d.proxy.Reload(ctx)
}

// Status reports compose service states and the certificate state
func (d *Deployer) Status(ctx context.Context) (string, error) {
	services, err := d.compose.Status(ctx)
	if err != nil {
		return "", err
	}

	certState := "absent or expired"
	if d.certs.HasValidCert() {
		certState = "valid"
	}

	return fmt.Sprintf("%s\n\ncertificate (%s): %s\n", services, d.cfg.PublicHost, certState), nil
}

func (d *Deployer) validate() error {
	if d.cfg.ACMEEmail == "" {
		return fmt.Errorf("ACME contact email is required, set MARKET_DEPLOY_ACME_EMAIL")
	}
	if d.cfg.PublicHost == "" {
		return fmt.Errorf("public host is not configured")
	}
	if d.cfg.ComposeFile == "" {
		return fmt.Errorf("compose file is not configured")
	}
	return nil
}
