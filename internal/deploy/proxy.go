package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ProxyVariant selects which of the two nginx config variants is live
type ProxyVariant string

const (
	VariantHTTP ProxyVariant = "http"
	VariantTLS  ProxyVariant = "tls"
)

// ProxyManager swaps the live reverse-proxy config between the plain HTTP
// and the TLS variant and reloads the proxy container
type ProxyManager struct {
	compose  *ComposeClient
	service  string
	livePath string
	httpConf string
	tlsConf  string
	logger   *zap.Logger
}

// NewProxyManager creates a proxy manager over the two on-disk variants
func NewProxyManager(compose *ComposeClient, service, livePath, httpConf, tlsConf string, logger *zap.Logger) *ProxyManager {
	return &ProxyManager{
		compose:  compose,
		service:  service,
		livePath: livePath,
		httpConf: httpConf,
		tlsConf:  tlsConf,
		logger:   logger,
	}
}

// Install copies the requested variant over the live conf path
func (m *ProxyManager) Install(variant ProxyVariant) error {
	src := m.httpConf
	if variant == VariantTLS {
		src = m.tlsConf
	}

	conf, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("proxy config variant %s unavailable: %w", variant, err)
	}

	if err := os.MkdirAll(filepath.Dir(m.livePath), 0o755); err != nil {
		return fmt.Errorf("failed to prepare proxy config directory: %w", err)
	}
	if err := os.WriteFile(m.livePath, conf, 0o644); err != nil {
		return fmt.Errorf("failed to install proxy config: %w", err)
	}

	m.logger.Info("Proxy config installed",
		zap.String("variant", string(variant)),
		zap.String("path", m.livePath),
	)
	return nil
}

// Reload signals the running proxy container to re-read its config
func (m *ProxyManager) Reload(ctx context.Context) error {
	if _, err := m.compose.Exec(ctx, m.service, "nginx", "-s", "reload"); err != nil {
		return fmt.Errorf("failed to reload proxy: %w", err)
	}
	m.logger.Info("Proxy reloaded", zap.String("service", m.service))
	return nil
}
