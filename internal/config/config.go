package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Драйверы хранилища пользователей
const (
	StoreDriverSQLX   = "sqlx"
	StoreDriverGorm   = "gorm"
	StoreDriverMemory = "memory"
)

// Режимы доставки письма для сброса пароля
const (
	NotifyModeQueue  = "queue"
	NotifyModeDirect = "direct"
)

// Транспорты почты
const (
	MailTransportSMTP = "smtp"
	MailTransportS3   = "s3"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	ServerPort     string        `env:"SERVER_PORT" envDefault:"8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"json"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlx"`
	DatabaseURL string `env:"DATABASE_URL"`

	BcryptCost   int    `env:"BCRYPT_COST" envDefault:"10"`
	ResetBaseURL string `env:"RESET_BASE_URL" envDefault:"http://localhost:8081/resetPassword"`
	NotifyMode   string `env:"NOTIFY_MODE" envDefault:"direct"`

	RabbitMQ struct {
		RabbitMQURL       string `env:"RABBITMQ_URL"`
		RabbitMQQueueName string `env:"RABBITMQ_QUEUE_NAME" envDefault:"password_reset_queue"`
	}

	Mail struct {
		Transport    string `env:"MAIL_TRANSPORT" envDefault:"smtp"`
		From         string `env:"MAIL_FROM" envDefault:"no-reply@localhost"`
		SMTPHost     string `env:"SMTP_HOST" envDefault:"localhost"`
		SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
		SMTPUsername string `env:"SMTP_USERNAME"`
		SMTPPassword string `env:"SMTP_PASSWORD"`
	}

	// Настройки для MinIO (транспорт почты "s3" складывает письма в бакет)
	MinioEndpoint        string `env:"MINIO_ENDPOINT"`
	MinioAccessKeyID     string `env:"MINIO_ACCESS_KEY_ID"`
	MinioSecretAccessKey string `env:"MINIO_SECRET_ACCESS_KEY"`
	MinioUseSSL          bool   `env:"MINIO_USE_SSL"`
	MinioBucketName      string `env:"MINIO_BUCKET_NAME" envDefault:"outgoing-mail"`
	MinioRegion          string `env:"MINIO_REGION" envDefault:"us-east-1"`
}

// LoadConfig загружает конфигурацию из переменных окружения.
// В режиме разработки пытается загрузить .env файл.
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); !os.IsNotExist(err) {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("ошибка загрузки .env файла: %w", err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации из окружения: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет зависимости между полями, которые не выразить тегами env.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreDriverSQLX, StoreDriverGorm:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for store driver %q", c.StoreDriver))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q (sqlx, gorm, memory)", c.StoreDriver))
	}

	switch c.NotifyMode {
	case NotifyModeQueue:
		if c.RabbitMQ.RabbitMQURL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL is required for NOTIFY_MODE=queue"))
		}
	case NotifyModeDirect:
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_MODE %q (queue, direct)", c.NotifyMode))
	}

	switch c.Mail.Transport {
	case MailTransportSMTP:
		if c.Mail.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required for MAIL_TRANSPORT=smtp"))
		}
	case MailTransportS3:
		if c.MinioEndpoint == "" || c.MinioAccessKeyID == "" || c.MinioSecretAccessKey == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT, MINIO_ACCESS_KEY_ID, MINIO_SECRET_ACCESS_KEY are required for MAIL_TRANSPORT=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_TRANSPORT %q (smtp, s3)", c.Mail.Transport))
	}

	if c.ResetBaseURL == "" {
		errs = append(errs, errors.New("RESET_BASE_URL must not be empty"))
	}

	return errors.Join(errs...)
}
