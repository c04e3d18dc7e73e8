package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config конфигурация сервиса, загружается из config.toml
type Config struct {
	Server         ServerConfig        `toml:"server"`
	Database       DatabaseConfig      `toml:"database"`
	Logs           LogsConfig          `toml:"logs"`
	Metrics        MetricsConfig       `toml:"metrics"`
	RequestService IntegrationConfig   `toml:"request_service"`
	WalletService  IntegrationConfig   `toml:"wallet_service"`
	Notifications  NotificationsConfig `toml:"notifications"`
	Redis          RedisConfig         `toml:"redis"`
	Appointments   AppointmentsConfig  `toml:"appointments"`
	NoShow         NoShowConfig        `toml:"noshow"`
	Completion     CompletionConfig    `toml:"completion"`
	Policy         PolicyConfig        `toml:"policy"`
}

// ServerConfig настройки HTTP сервера
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// DatabaseConfig настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"`
}

// DSN возвращает строку подключения к PostgreSQL
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// LogsConfig настройки логирования
type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// MetricsConfig настройки prometheus метрик
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// IntegrationConfig настройки HTTP клиента внешнего сервиса
type IntegrationConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"`
}

// NotificationsConfig настройки Kafka продюсера уведомлений
type NotificationsConfig struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// RedisConfig настройки Redis (rate limiting)
type RedisConfig struct {
	Enabled         bool   `toml:"enabled"`
	Addr            string `toml:"addr"`
	Password        string `toml:"password"`
	DB              int    `toml:"db"`
	RateLimitPerMin int    `toml:"rate_limit_per_min"`
}

// AppointmentsConfig настройки жизненного цикла визитов
type AppointmentsConfig struct {
	ConfirmationSLAHours       int `toml:"confirmation_sla_hours"`
	DefaultSlotDurationMinutes int `toml:"default_slot_duration_minutes"`
	ExpireBatchSize            int `toml:"expire_batch_size"`
}

// NoShowConfig табличные настройки risk scorer-а
// Дельты аддитивны, score обрезается в [0, 100]
type NoShowConfig struct {
	DeltaBothPresenceNotConfirmed     int `toml:"delta_both_presence_not_confirmed"`
	DeltaClientPresenceNotConfirmed   int `toml:"delta_client_presence_not_confirmed"`
	DeltaProviderPresenceNotConfirmed int `toml:"delta_provider_presence_not_confirmed"`
	DeltaWindowWithin2h               int `toml:"delta_window_within_2h"`
	DeltaWindowWithin6h               int `toml:"delta_window_within_6h"`
	DeltaPriorNoShowHistory           int `toml:"delta_prior_no_show_history"`
	MediumThreshold                   int `toml:"medium_threshold"`
	HighThreshold                     int `toml:"high_threshold"`
	RiskSweepHorizonHours             int `toml:"risk_sweep_horizon_hours"`
	RiskSweepBatchSize                int `toml:"risk_sweep_batch_size"`
}

// CompletionConfig настройки протокола подтверждения завершения
type CompletionConfig struct {
	PinTTLMinutes        int `toml:"pin_ttl_minutes"`
	PinMaxFailedAttempts int `toml:"pin_max_failed_attempts"`
}

// PolicyConfig табличная конфигурация финансовой политики
type PolicyConfig struct {
	Rules []PolicyRuleConfig `toml:"rules"`
}

// PolicyRuleConfig одно правило штрафной политики
// Проценты задаются строками и парсятся в decimal на старте
type PolicyRuleConfig struct {
	Name                 string `toml:"name"`
	EventType            string `toml:"event_type"`
	MaxHoursBeforeWindow int    `toml:"max_hours_before_window"`
	PenaltyPercent       string `toml:"penalty_percent"`
	CompensationPercent  string `toml:"compensation_percent"`
	RetainedPercent      string `toml:"retained_percent"`
}

// Load загружает конфигурацию из TOML файла
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults подставляет дефолты для незаполненных значений
func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15
	}
	if cfg.Appointments.ConfirmationSLAHours == 0 {
		cfg.Appointments.ConfirmationSLAHours = 24
	}
	if cfg.Appointments.DefaultSlotDurationMinutes == 0 {
		cfg.Appointments.DefaultSlotDurationMinutes = 30
	}
	if cfg.Appointments.ExpireBatchSize == 0 {
		cfg.Appointments.ExpireBatchSize = 100
	}
	if cfg.NoShow.DeltaBothPresenceNotConfirmed == 0 {
		cfg.NoShow.DeltaBothPresenceNotConfirmed = 40
	}
	if cfg.NoShow.DeltaClientPresenceNotConfirmed == 0 {
		cfg.NoShow.DeltaClientPresenceNotConfirmed = 25
	}
	if cfg.NoShow.DeltaProviderPresenceNotConfirmed == 0 {
		cfg.NoShow.DeltaProviderPresenceNotConfirmed = 25
	}
	if cfg.NoShow.DeltaWindowWithin2h == 0 {
		cfg.NoShow.DeltaWindowWithin2h = 30
	}
	if cfg.NoShow.DeltaWindowWithin6h == 0 {
		cfg.NoShow.DeltaWindowWithin6h = 15
	}
	if cfg.NoShow.DeltaPriorNoShowHistory == 0 {
		cfg.NoShow.DeltaPriorNoShowHistory = 20
	}
	if cfg.NoShow.MediumThreshold == 0 {
		cfg.NoShow.MediumThreshold = 40
	}
	if cfg.NoShow.HighThreshold == 0 {
		cfg.NoShow.HighThreshold = 70
	}
	if cfg.NoShow.RiskSweepHorizonHours == 0 {
		cfg.NoShow.RiskSweepHorizonHours = 6
	}
	if cfg.NoShow.RiskSweepBatchSize == 0 {
		cfg.NoShow.RiskSweepBatchSize = 100
	}
	if cfg.Completion.PinTTLMinutes == 0 {
		cfg.Completion.PinTTLMinutes = 10
	}
	if cfg.Completion.PinMaxFailedAttempts == 0 {
		cfg.Completion.PinMaxFailedAttempts = 5
	}
}
