package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix は環境変数による上書きに使う接頭辞です。
const EnvPrefix = "EMS_"

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server       ServerConfig       `yaml:"server" envPrefix:"SERVER_"`
	Database     DatabaseConfig     `yaml:"database" envPrefix:"DATABASE_"`
	Phase        PhaseConfig        `yaml:"phase" envPrefix:"PHASE_"`
	Notification NotificationConfig `yaml:"notification" envPrefix:"NOTIFICATION_"`
	Log          LogConfig          `yaml:"log" envPrefix:"LOG_"`
	Telemetry    TelemetryConfig    `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

// ServerConfig は gRPC サーバーと運用向け HTTP サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
	HTTPAddr   string `yaml:"http_addr" env:"HTTP_ADDR"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host" env:"HOST"`
	Port               int           `yaml:"port" env:"PORT"`
	User               string        `yaml:"user" env:"USER"`
	Password           string        `yaml:"password" env:"PASSWORD"`
	Name               string        `yaml:"name" env:"NAME"`
	SSLMode            string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns       int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns       int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME"`
}

// PhaseConfig は評価期間の段階遷移に関する設定です。
type PhaseConfig struct {
	// AllowSkipAhead が未指定の場合は段階の飛び越しを許可します。
	AllowSkipAhead *bool `yaml:"allow_skip_ahead" env:"ALLOW_SKIP_AHEAD"`
}

// SkipAheadAllowed は段階の飛び越しを許可するかを返します。
func (p PhaseConfig) SkipAheadAllowed() bool {
	return p.AllowSkipAhead == nil || *p.AllowSkipAhead
}

// NotificationConfig は修正要求の配送 (outbox 中継と NATS JetStream) に関する設定です。
type NotificationConfig struct {
	Enabled          bool          `yaml:"enabled" env:"ENABLED"`
	NATSURL          string        `yaml:"nats_url" env:"NATS_URL"`
	Stream           string        `yaml:"stream" env:"STREAM"`
	SubjectPrefix    string        `yaml:"subject_prefix" env:"SUBJECT_PREFIX"`
	BatchSize        int           `yaml:"batch_size" env:"BATCH_SIZE"`
	MaxAttempts      int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	RelayInterval    time.Duration `yaml:"-"`
	RelayIntervalRaw string        `yaml:"relay_interval" env:"RELAY_INTERVAL"`
}

// LogConfig はログ出力に関する設定です。
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// TelemetryConfig は OpenTelemetry のトレース送信に関する設定です。
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" env:"ENABLED"`
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	Insecure    bool   `yaml:"insecure" env:"INSECURE"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Load は指定されたパスから設定ファイルを読み込み、EMS_ で始まる環境変数で上書きします。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	db := &c.Database
	if err := db.validateAndNormalize(); err != nil {
		return err
	}

	if err := c.Notification.validateAndNormalize(); err != nil {
		return err
	}

	c.Log.normalize()

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "ems-evaluation"
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("config: telemetry.endpoint must be set when telemetry is enabled")
	}

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (n *NotificationConfig) validateAndNormalize() error {
	if n.SubjectPrefix == "" {
		n.SubjectPrefix = "evaluation"
	}
	if n.Stream == "" {
		n.Stream = "EVALUATION"
	}
	if n.BatchSize < 0 {
		return fmt.Errorf("config: notification.batch_size must not be negative")
	}
	if n.MaxAttempts < 0 {
		return fmt.Errorf("config: notification.max_attempts must not be negative")
	}

	interval, err := parseDurationAllowEmpty(n.RelayIntervalRaw)
	if err != nil {
		return fmt.Errorf("config: notification.relay_interval: %w", err)
	}
	n.RelayInterval = interval

	if n.Enabled && n.NATSURL == "" {
		return fmt.Errorf("config: notification.nats_url must be set when notification is enabled")
	}
	return nil
}

func (l *LogConfig) normalize() {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。資格情報は URL エスケープされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
