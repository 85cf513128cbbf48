package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	identityapp "github.com/craftmarket/backend/internal/application/identity"
	"github.com/craftmarket/backend/internal/deploy"
	"github.com/craftmarket/backend/internal/infrastructure/config"
	"github.com/craftmarket/backend/internal/infrastructure/i18n"
	"github.com/craftmarket/backend/internal/infrastructure/logger"
	"github.com/craftmarket/backend/internal/infrastructure/persistence"
	"github.com/craftmarket/backend/internal/infrastructure/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliEnv carries the pieces every subcommand needs
type cliEnv struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadEnv() (*cliEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &cliEnv{cfg: cfg, logger: log}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "deployctl",
		Short:         "Deployment and operations tool for the CraftMarket backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newDeployCmd(),
		newStatusCmd(),
		newCertCmd(),
		newCronCmd(),
		newAdminCmd(),
		newI18nCmd(),
		newStaticCmd(),
	)
	return root
}

func newDeployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Run a full deployment: containers, health check, TLS, renewal cron",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			return deploy.BuildDeployer(env.cfg.Deploy, env.logger).Deploy(cmd.Context())
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show container and certificate state",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			out, err := deploy.BuildDeployer(env.cfg.Deploy, env.logger).Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func newCertCmd() *cobra.Command {
	cert := &cobra.Command{
		Use:   "cert",
		Short: "Manage the TLS certificate",
	}

	cert.AddCommand(&cobra.Command{
		Use:   "issue",
		Short: "Obtain a certificate and switch the proxy to TLS",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			d := env.cfg.Deploy
			runner := deploy.NewExecRunner(d.ProjectRoot, env.logger)
			certs := deploy.NewCertManager(runner, d.CertbotImage, d.PublicHost, d.ACMEEmail, d.WebrootPath, d.CertLiveDir, env.logger)
			if err := certs.Issue(cmd.Context()); err != nil {
				return err
			}

			compose := deploy.NewComposeClient(runner, d.ComposeFile, env.logger)
			proxy := deploy.NewProxyManager(compose, d.ProxyService, d.ProxyConfPath, d.HTTPConfPath, d.HTTPSConfPath, env.logger)
			if err := proxy.Install(deploy.VariantTLS); err != nil {
				return err
			}
			return proxy.Reload(cmd.Context())
		},
	})

	cert.AddCommand(&cobra.Command{
		Use:   "renew",
		Short: "Renew the certificate and reload the proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			d := env.cfg.Deploy
			runner := deploy.NewExecRunner(d.ProjectRoot, env.logger)
			certs := deploy.NewCertManager(runner, d.CertbotImage, d.PublicHost, d.ACMEEmail, d.WebrootPath, d.CertLiveDir, env.logger)
			if err := certs.Renew(cmd.Context()); err != nil {
				return err
			}

			compose := deploy.NewComposeClient(runner, d.ComposeFile, env.logger)
			proxy := deploy.NewProxyManager(compose, d.ProxyService, d.ProxyConfPath, d.HTTPConfPath, d.HTTPSConfPath, env.logger)
			return proxy.Reload(cmd.Context())
		},
	})

	return cert
}

func newCronCmd() *cobra.Command {
	cron := &cobra.Command{
		Use:   "cron",
		Short: "Manage scheduled deployment tasks",
	}

	cron.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Install the certificate renewal crontab entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			d := env.cfg.Deploy
			runner := deploy.NewExecRunner(d.ProjectRoot, env.logger)
			return deploy.NewCronInstaller(runner, env.logger).Install(cmd.Context(), d.RenewCronSpec, d.RenewCommand)
		},
	})

	return cron
}

func newAdminCmd() *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Administrative account management",
	}

	var email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an administrative account",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}

			db, err := persistence.NewDatabase(&env.cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()

			userRepo := persistence.NewGormUserRepository(db.DB)
			// admin creation never touches media storage
			userService := identityapp.NewUserService(userRepo, nil, env.logger)

			info, err := userService.CreateAdmin(cmd.Context(), identityapp.CreateAdminInput{
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Admin account created: %s (%s)\n", info.Email, info.ID)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "email address for the admin account")
	create.Flags().StringVar(&password, "password", "", "password for the admin account")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	admin.AddCommand(create)
	return admin
}

func newI18nCmd() *cobra.Command {
	i18nCmd := &cobra.Command{
		Use:   "i18n",
		Short: "Manage translation catalogs",
	}

	i18nCmd.AddCommand(&cobra.Command{
		Use:   "extract",
		Short: "Scan sources for catalog keys and add missing ones to the locale files",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}

			keys, err := i18n.ExtractKeys("internal", "cmd")
			if err != nil {
				return err
			}

			added, err := i18n.UpdateLocales(env.cfg.I18N.LocalesDir, env.cfg.I18N.SupportedLanguages, keys)
			if err != nil {
				return err
			}
			fmt.Printf("Extracted %d keys, added %d missing entries\n", len(keys), added)
			return nil
		},
	})

	i18nCmd.AddCommand(&cobra.Command{
		Use:   "compile",
		Short: "Compile the TOML locale files into the catalog the server loads",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}

			compiled, err := i18n.CompileLocales(env.cfg.I18N.LocalesDir, env.cfg.I18N.CatalogDir)
			if err != nil {
				return err
			}
			fmt.Printf("Compiled %d languages into %s\n", compiled, env.cfg.I18N.CatalogDir)
			return nil
		},
	})

	return i18nCmd
}

func newStaticCmd() *cobra.Command {
	static := &cobra.Command{
		Use:   "static",
		Short: "Manage static assets",
	}

	var syncBucket bool

	collect := &cobra.Command{
		Use:   "collect",
		Short: "Copy static assets into the directory the proxy serves",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			d := env.cfg.Deploy
			copied, err := deploy.NewStaticCollector(d.StaticSrcDir, d.StaticDestDir, env.logger).Collect()
			if err != nil {
				return err
			}
			fmt.Printf("Collected %d static files into %s\n", copied, d.StaticDestDir)

			if !syncBucket {
				return nil
			}
			if env.cfg.Storage.Bucket == "" {
				return fmt.Errorf("--sync requires a configured storage bucket")
			}
			media, err := storage.NewS3MediaStorage(&env.cfg.Storage, storage.WithLogger(env.logger))
			if err != nil {
				return fmt.Errorf("failed to initialize object storage: %w", err)
			}
			if err := media.EnsureBucket(cmd.Context()); err != nil {
				return err
			}
			uploaded, err := media.SyncDir(cmd.Context(), d.StaticDestDir)
			if err != nil {
				return err
			}
			fmt.Printf("Synced %d static files to bucket %s\n", uploaded, media.GetBucket())
			return nil
		},
	}
	collect.Flags().BoolVar(&syncBucket, "sync", false, "also upload the collected files to the object storage bucket")
	static.AddCommand(collect)

	return static
}
