package deploy

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// renewalHeadroom is how long before expiry a certificate stops counting
// as valid, so a deploy close to the expiry date re-issues instead of
// shipping a certificate about to lapse.
const renewalHeadroom = 24 * time.Hour

// CertManager checks, issues and renews the Let's Encrypt certificate for
// the public host through the certbot container (webroot validation)
type CertManager struct {
	runner      Runner
	image       string
	host        string
	email       string
	webroot     string
	certLiveDir string
	logger      *zap.Logger
	now         func() time.Time
}

// NewCertManager creates a certificate manager
func NewCertManager(runner Runner, image, host, email, webroot, certLiveDir string, logger *zap.Logger) *CertManager {
	return &CertManager{
		runner:      runner,
		image:       image,
		host:        host,
		email:       email,
		webroot:     webroot,
		certLiveDir: certLiveDir,
		logger:      logger,
		now:         time.Now,
	}
}

// CertPath returns the live fullchain path for the public host
func (m *CertManager) CertPath() string {
	return filepath.Join(m.certLiveDir, m.host, "fullchain.pem")
}

// KeyPath returns the live private key path for the public host
func (m *CertManager) KeyPath() string {
	return filepath.Join(m.certLiveDir, m.host, "privkey.pem")
}

// HasValidCert reports whether an unexpired certificate for the host exists
// on disk. A missing or unparsable certificate counts as absent.
func (m *CertManager) HasValidCert() bool {
	if _, err := os.Stat(m.KeyPath()); err != nil {
		return false
	}

	data, err := os.ReadFile(m.CertPath())
	if err != nil {
		return false
	}

	block, _ := pem.Decode(data)
	if block == nil {
		m.logger.Warn("Certificate file is not PEM", zap.String("path", m.CertPath()))
		return false
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		m.logger.Warn("Certificate file is unparsable", zap.Error(err))
		return false
	}

	if m.now().Add(renewalHeadroom).After(cert.NotAfter) {
		m.logger.Info("Certificate expired or about to expire",
			zap.Time("not_after", cert.NotAfter))
		return false
	}
	return true
}

// Issue obtains a certificate through the certbot container using webroot
// validation. The proxy must already serve the ACME challenge path over HTTP.
func (m *CertManager) Issue(ctx context.Context) error {
	if m.email == "" {
		return fmt.Errorf("ACME contact email is not configured")
	}

	letsencryptRoot := filepath.Dir(filepath.Clean(m.certLiveDir))
	out, err := m.runner.Run(ctx, "docker",
		"run", "--rm",
		"-v", letsencryptRoot+":/etc/letsencrypt",
		"-v", m.webroot+":/var/www/certbot",
		m.image,
		"certonly",
		"--webroot", "-w", "/var/www/certbot",
		"-d", m.host,
		"--email", m.email,
		"--agree-tos",
		"--non-interactive",
	)
	if err != nil {
		return fmt.Errorf("certificate issuance failed: %w", err)
	}

	m.logger.Info("Certificate issued",
		zap.String("host", m.host),
		zap.String("output", out),
	)
	return nil
}

// Renew renews all certificates due for renewal. Run daily from cron.
func (m *CertManager) Renew(ctx context.Context) error {
	letsencryptRoot := filepath.Dir(filepath.Clean(m.certLiveDir))
	out, err := m.runner.Run(ctx, "docker",
		"run", "--rm",
		"-v", letsencryptRoot+":/etc/letsencrypt",
		"-v", m.webroot+":/var/www/certbot",
		m.image,
		"renew",
		"--webroot", "-w", "/var/www/certbot",
		"--non-interactive",
	)
	if err != nil {
		return fmt.Errorf("certificate renewal failed: %w", err)
	}

	m.logger.Info("Certificate renewal completed", zap.String("output", out))
	return nil
}
