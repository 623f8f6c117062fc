package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const defaultConfigPath = "./config/local.yaml"

type Config struct {
	Env      string `yaml:"env" env:"ENV" env-default:"prod"`
	ErrorLog string `yaml:"error_log" env:"ERROR_LOG" env-default:"errors.log"`

	// FrontendDir собранный SPA, отдаётся, если папка существует.
	FrontendDir string `yaml:"frontend_dir" env:"FRONTEND_DIR" env-default:"./frontend-dist"`

	HTTPServer `yaml:"http_server"`

	DB DB `yaml:"db"`

	AdminLogin string `yaml:"admin_login" env:"ADMIN_LOGIN"`
	AdminPass  string `yaml:"admin_pass" env:"ADMIN_PASS"`

	// LockTimeout сколько мутация ждёт блокировку строки заказа, потом "server busy".
	LockTimeout time.Duration `yaml:"lock_timeout" env:"LOCK_TIMEOUT" env-default:"30s"`
	CORSOrigins []string      `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:5173,http://localhost:8081"`

	Telegram Telegram `yaml:"telegram"`
	Bitrix   Bitrix   `yaml:"bitrix"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Sheets   Sheets   `yaml:"sheets"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:4001"`
	Timeout     time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type DB struct {
	User     string `yaml:"user" env:"DB_USER" env-required:"true"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"3306"`
	Name     string `yaml:"name" env:"DB_NAME" env-required:"true"`
	MaxConns int    `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
}

type Telegram struct {
	Token string `yaml:"token" env:"TELEGRAM_TOKEN"`
	// WebhookSecret сверяется с X-Telegram-Bot-Api-Secret-Token, пустой отключает проверку.
	WebhookSecret string `yaml:"webhook_secret" env:"TELEGRAM_WEBHOOK_SECRET"`
	// BroadcastLimit число одновременных отправок при рассылке.
	BroadcastLimit int `yaml:"broadcast_limit" env:"TELEGRAM_BROADCAST_LIMIT" env-default:"8"`
}

type Bitrix struct {
	WebhookURL string        `yaml:"webhook_url" env:"B24_WEBHOOK_URL"`
	BaseURL    string        `yaml:"base_url" env:"B24_BASE_URL"`
	Timeout    time.Duration `yaml:"timeout" env:"B24_TIMEOUT" env-default:"10s"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"60s"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"market.orders"`
}

type Sheets struct {
	CredentialsFile string `yaml:"credentials_file" env:"SHEETS_CREDENTIALS_FILE"`
	SpreadsheetID   string `yaml:"spreadsheet_id" env:"SHEETS_SPREADSHEET_ID"`
}

// Load читает .env (если есть), затем yaml по пути path. Без файла конфиг берётся из окружения.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = defaultConfigPath
	}

	var cfg Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return &cfg, nil
}

func MustConfig(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}
