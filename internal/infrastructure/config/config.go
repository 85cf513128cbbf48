package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	I18N      I18NConfig
	Mail      MailConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
	Telemetry TelemetryConfig
	Deploy    DeployConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name         string
	Env          string
	Port         string
	Debug        bool
	SecretKey    string
	AllowedHosts []string
	TimeZone     string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	RefreshSecret          string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	MaxRefreshCount        int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	MaxHeaderBytes        int
	MaxBodySize           int64
	RateLimitEnabled      bool
	RateLimitRequests     int
	RateLimitWindow       time.Duration
	AuthRateLimitEnabled  bool
	AuthRateLimitRequests int
	AuthRateLimitWindow   time.Duration
	CORSAllowOrigins      []string
	CORSAllowMethods      []string
	CORSAllowHeaders      []string
	TrustedProxies        []string
}

// I18NConfig holds language negotiation and message catalog settings
type I18NConfig struct {
	DefaultLanguage    string
	SupportedLanguages []string
	LocalesDir         string // Editable per-language TOML catalogs
	CatalogDir         string // Compiled catalog the server loads
	CookieName         string
	CookieMaxAge       time.Duration
}

// MailConfig holds outgoing mail settings for verification emails
type MailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// StorageConfig holds S3-compatible object storage settings for media
// uploads and collected static assets
type StorageConfig struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
	StaticPrefix      string // Key prefix for collected static assets
	MediaPrefix       string // Key prefix for user uploads
}

// SchedulerConfig holds housekeeping scheduler configuration
type SchedulerConfig struct {
	Enabled               bool
	DailyHour             int
	DailyMinute           int
	CheckInterval         time.Duration
	NotificationRetention time.Duration // How long read notifications are kept
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	ProfilingEnabled  bool
	ProfilingEndpoint string
}

// DeployConfig holds deployment orchestration settings used by deployctl.
// The defaults mirror the layout the compose file and nginx configs ship with.
type DeployConfig struct {
	ProjectRoot    string
	PublicHost     string
	ACMEEmail      string // From MARKET_DEPLOY_ACME_EMAIL; required for cert issuance
	ComposeFile    string
	WebService     string
	DBService      string
	CacheService   string
	ProxyService   string
	CertbotImage   string
	WebrootPath    string
	CertLiveDir    string
	ProxyConfPath  string // Live nginx conf the variants are copied over
	HTTPConfPath   string // Plain HTTP variant
	HTTPSConfPath  string // TLS variant
	HealthURL      string
	HealthWait     time.Duration // Wait window for the web service to report healthy
	HealthInterval time.Duration
	StaticSrcDir   string
	StaticDestDir  string
	MediaDir       string
	RenewCronSpec  string
	RenewCommand   string
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with MARKET_ prefix (e.g. MARKET_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("MARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:         v.GetString("app.name"),
			Env:          v.GetString("app.env"),
			Port:         v.GetString("app.port"),
			Debug:        v.GetBool("app.debug"),
			SecretKey:    v.GetString("app.secret_key"),
			AllowedHosts: v.GetStringSlice("app.allowed_hosts"),
			TimeZone:     v.GetString("app.time_zone"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:           v.GetDuration("http.read_timeout"),
			WriteTimeout:          v.GetDuration("http.write_timeout"),
			IdleTimeout:           v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:        v.GetInt("http.max_header_bytes"),
			MaxBodySize:           v.GetInt64("http.max_body_size"),
			RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:     v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:       v.GetDuration("http.rate_limit_window"),
			AuthRateLimitEnabled:  v.GetBool("http.auth_rate_limit_enabled"),
			AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
			CORSAllowOrigins:      v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:      v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:      v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:        v.GetStringSlice("http.trusted_proxies"),
		},
		I18N: I18NConfig{
			DefaultLanguage:    v.GetString("i18n.default_language"),
			SupportedLanguages: v.GetStringSlice("i18n.supported_languages"),
			LocalesDir:         v.GetString("i18n.locales_dir"),
			CatalogDir:         v.GetString("i18n.catalog_dir"),
			CookieName:         v.GetString("i18n.cookie_name"),
			CookieMaxAge:       v.GetDuration("i18n.cookie_max_age"),
		},
		Mail: MailConfig{
			Enabled:  v.GetBool("mail.enabled"),
			Host:     v.GetString("mail.host"),
			Port:     v.GetInt("mail.port"),
			Username: v.GetString("mail.username"),
			Password: v.GetString("mail.password"),
			From:     v.GetString("mail.from"),
		},
		Storage: StorageConfig{
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
			StaticPrefix:      v.GetString("storage.static_prefix"),
			MediaPrefix:       v.GetString("storage.media_prefix"),
		},
		Scheduler: SchedulerConfig{
			Enabled:               v.GetBool("scheduler.enabled"),
			DailyHour:             v.GetInt("scheduler.daily_hour"),
			DailyMinute:           v.GetInt("scheduler.daily_minute"),
			CheckInterval:         v.GetDuration("scheduler.check_interval"),
			NotificationRetention: v.GetDuration("scheduler.notification_retention"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingEndpoint: v.GetString("telemetry.profiling_endpoint"),
		},
		Deploy: DeployConfig{
			ProjectRoot:    v.GetString("deploy.project_root"),
			PublicHost:     v.GetString("deploy.public_host"),
			ACMEEmail:      v.GetString("deploy.acme_email"),
			ComposeFile:    v.GetString("deploy.compose_file"),
			WebService:     v.GetString("deploy.web_service"),
			DBService:      v.GetString("deploy.db_service"),
			CacheService:   v.GetString("deploy.cache_service"),
			ProxyService:   v.GetString("deploy.proxy_service"),
			CertbotImage:   v.GetString("deploy.certbot_image"),
			WebrootPath:    v.GetString("deploy.webroot_path"),
			CertLiveDir:    v.GetString("deploy.cert_live_dir"),
			ProxyConfPath:  v.GetString("deploy.proxy_conf_path"),
			HTTPConfPath:   v.GetString("deploy.http_conf_path"),
			HTTPSConfPath:  v.GetString("deploy.https_conf_path"),
			HealthURL:      v.GetString("deploy.health_url"),
			HealthWait:     v.GetDuration("deploy.health_wait"),
			HealthInterval: v.GetDuration("deploy.health_interval"),
			StaticSrcDir:   v.GetString("deploy.static_src_dir"),
			StaticDestDir:  v.GetString("deploy.static_dest_dir"),
			MediaDir:       v.GetString("deploy.media_dir"),
			RenewCronSpec:  v.GetString("deploy.renew_cron_spec"),
			RenewCommand:   v.GetString("deploy.renew_command"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "craftmarket"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8000"
	}
	if cfg.App.TimeZone == "" {
		cfg.App.TimeZone = "Europe/Moscow"
	}
	if len(cfg.App.AllowedHosts) == 0 {
		cfg.App.AllowedHosts = []string{"localhost", "127.0.0.1"}
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "craftmarket"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "craftmarket"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 10
	}
	if cfg.Log.Level == "" {
		if cfg.App.Debug {
			cfg.Log.Level = "debug"
		} else {
			cfg.Log.Level = "info"
		}
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.AuthRateLimitRequests == 0 {
		cfg.HTTP.AuthRateLimitRequests = 5
	}
	if cfg.HTTP.AuthRateLimitWindow == 0 {
		cfg.HTTP.AuthRateLimitWindow = time.Minute
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "Accept-Language"}
	}
	if cfg.I18N.DefaultLanguage == "" {
		cfg.I18N.DefaultLanguage = "ru"
	}
	if len(cfg.I18N.SupportedLanguages) == 0 {
		cfg.I18N.SupportedLanguages = []string{"ru", "en"}
	}
	if cfg.I18N.LocalesDir == "" {
		cfg.I18N.LocalesDir = "locales"
	}
	if cfg.I18N.CatalogDir == "" {
		cfg.I18N.CatalogDir = "locales/compiled"
	}
	if cfg.I18N.CookieName == "" {
		cfg.I18N.CookieName = "market_language"
	}
	if cfg.I18N.CookieMaxAge == 0 {
		cfg.I18N.CookieMaxAge = 365 * 24 * time.Hour
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = "noreply@craftmarket.example"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Storage.StaticPrefix == "" {
		cfg.Storage.StaticPrefix = "static/"
	}
	if cfg.Storage.MediaPrefix == "" {
		cfg.Storage.MediaPrefix = "media/"
	}
	if cfg.Scheduler.DailyHour == 0 && cfg.Scheduler.DailyMinute == 0 {
		cfg.Scheduler.DailyHour = 3 // 3am housekeeping
	}
	if cfg.Scheduler.CheckInterval == 0 {
		cfg.Scheduler.CheckInterval = time.Minute
	}
	if cfg.Scheduler.NotificationRetention == 0 {
		cfg.Scheduler.NotificationRetention = 30 * 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "craftmarket-backend"
	}
	applyDeployDefaults(&cfg.Deploy)
}

// applyDeployDefaults fills the deployment layout defaults. Paths follow the
// compose file shipped under deploy/.
func applyDeployDefaults(d *DeployConfig) {
	if d.ProjectRoot == "" {
		d.ProjectRoot = "/srv/craftmarket"
	}
	if d.PublicHost == "" {
		d.PublicHost = "craftmarket.example.com"
	}
	if d.ComposeFile == "" {
		d.ComposeFile = "deploy/docker-compose.yml"
	}
	if d.WebService == "" {
		d.WebService = "web"
	}
	if d.DBService == "" {
		d.DBService = "db"
	}
	if d.CacheService == "" {
		d.CacheService = "redis"
	}
	if d.ProxyService == "" {
		d.ProxyService = "nginx"
	}
	if d.CertbotImage == "" {
		d.CertbotImage = "certbot/certbot:latest"
	}
	if d.WebrootPath == "" {
		d.WebrootPath = "/var/www/certbot"
	}
	if d.CertLiveDir == "" {
		d.CertLiveDir = "/etc/letsencrypt/live"
	}
	if d.ProxyConfPath == "" {
		d.ProxyConfPath = "deploy/nginx/default.conf"
	}
	if d.HTTPConfPath == "" {
		d.HTTPConfPath = "deploy/nginx/marketplace-http.conf"
	}
	if d.HTTPSConfPath == "" {
		d.HTTPSConfPath = "deploy/nginx/marketplace-https.conf"
	}
	if d.HealthURL == "" {
		d.HealthURL = "http://localhost:8000/healthz"
	}
	if d.HealthWait == 0 {
		d.HealthWait = 2 * time.Minute
	}
	if d.HealthInterval == 0 {
		d.HealthInterval = 3 * time.Second
	}
	if d.StaticSrcDir == "" {
		d.StaticSrcDir = "static"
	}
	if d.StaticDestDir == "" {
		d.StaticDestDir = "staticfiles"
	}
	if d.MediaDir == "" {
		d.MediaDir = "media"
	}
	if d.RenewCronSpec == "" {
		d.RenewCronSpec = "0 4 * * *"
	}
	if d.RenewCommand == "" {
		d.RenewCommand = "deployctl cert renew"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.App.Debug {
			return fmt.Errorf("app.debug must be false in production")
		}
		if c.App.SecretKey == "" {
			return fmt.Errorf("app.secret_key is required in production")
		}
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if !contains(c.I18N.SupportedLanguages, c.I18N.DefaultLanguage) {
		return fmt.Errorf("i18n.default_language %q must be listed in i18n.supported_languages", c.I18N.DefaultLanguage)
	}

	return nil
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address for the Redis server
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CertDir returns the live certificate directory for the public host
func (d *DeployConfig) CertDir() string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(d.CertLiveDir, "/"), d.PublicHost)
}
