package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noahxzhu/contract-reminder/internal/model"
)

const EnvPrefix = "REMINDER"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Mail      MailConfig      `mapstructure:"mail"`
}

type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	APIToken string `mapstructure:"api_token"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StorageConfig struct {
	Driver          string        `mapstructure:"driver"` // file, postgres, mysql
	FilePath        string        `mapstructure:"file_path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RemindersConfig struct {
	WindowDays int `mapstructure:"window_days"`
}

type MailConfig struct {
	Provider    string         `mapstructure:"provider"` // log, smtp, sendgrid
	DefaultFrom string         `mapstructure:"default_from"`
	SMTP        SMTPConfig     `mapstructure:"smtp"`
	SendGrid    SendGridConfig `mapstructure:"sendgrid"`
}

type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	UseTLS   bool          `mapstructure:"use_tls"`
	UseSSL   bool          `mapstructure:"use_ssl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type SendGridConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	FromName string        `mapstructure:"from_name"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// New returns a viper instance with defaults and REMINDER_* environment overrides.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.api_token", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.file_path", "data/store.json")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.max_open_conns", 25)
	v.SetDefault("storage.max_idle_conns", 5)
	v.SetDefault("storage.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("reminders.window_days", 15)

	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.default_from", "noreply@example.com")
	v.SetDefault("mail.smtp.host", "localhost")
	v.SetDefault("mail.smtp.port", 25)
	v.SetDefault("mail.smtp.username", "")
	v.SetDefault("mail.smtp.password", "")
	v.SetDefault("mail.smtp.use_tls", false)
	v.SetDefault("mail.smtp.use_ssl", false)
	v.SetDefault("mail.smtp.timeout", 10*time.Second)
	v.SetDefault("mail.sendgrid.api_key", "")
	v.SetDefault("mail.sendgrid.from_name", "")
	v.SetDefault("mail.sendgrid.timeout", 10*time.Second)
}

// LoadConfig reads an optional .env file, then the YAML file at path (a
// missing file is not an error), then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	return Load(New(), path)
}

// Load is LoadConfig on a caller-prepared viper instance, e.g. one with bound flags.
func Load(v *viper.Viper, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "file", "postgres", "mysql":
	default:
		return fmt.Errorf("invalid storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver != "file" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for driver %q", c.Storage.Driver)
	}
	switch c.Mail.Provider {
	case "log", "smtp", "sendgrid":
	default:
		return fmt.Errorf("invalid mail.provider %q", c.Mail.Provider)
	}
	if c.Mail.Provider == "sendgrid" && c.Mail.SendGrid.APIKey == "" {
		return fmt.Errorf("mail.sendgrid.api_key is required for provider sendgrid")
	}
	if c.Reminders.WindowDays <= 0 || c.Reminders.WindowDays > model.MaxWindowDays {
		return fmt.Errorf("reminders.window_days must be between 1 and %d, got %d", model.MaxWindowDays, c.Reminders.WindowDays)
	}
	return nil
}
