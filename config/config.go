package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL"`
	HTTP        HTTP
	Postgres    Postgres
	Redis       Redis
	API         API
	Quotes      Quotes
	Cache       Cache
	Jobs        Jobs
	Auth        Auth
	Portfolio   Portfolio
	GoogleDrive GoogleDrive
}

type HTTP struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8000"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"55s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Username string `env:"REDIS_USERNAME" envDefault:""`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type API struct {
	Debug      bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout    time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	YahooApi   YahooApi
	ChatbotApi ChatbotApi
}

type YahooApi struct {
	Url string `env:"YAHOO_API_URL" envDefault:"https://query1.finance.yahoo.com"`
}

type ChatbotApi struct {
	Url     string        `env:"CHATBOT_API_URL" envDefault:"http://localhost:5000"`
	Timeout time.Duration `env:"CHATBOT_API_TIMEOUT" envDefault:"60s"`
}

type Quotes struct {
	Timeout        time.Duration `env:"QUOTE_TIMEOUT" envDefault:"5s"`
	MaxConcurrency int           `env:"QUOTE_MAX_CONCURRENCY" envDefault:"8"`
}

type Cache struct {
	QuotesExpiration   time.Duration `env:"CACHE_QUOTES_EXPIRATION" envDefault:"1m"`
	ArticlesExpiration time.Duration `env:"CACHE_ARTICLES_EXPIRATION" envDefault:"10s"`
}

type Jobs struct {
	FillQuoteCacheInterval time.Duration `env:"FILL_QUOTE_CACHE_JOB_INTERVAL" envDefault:"1m"`
	DriveCleanupCrontab    string        `env:"DRIVE_CLEANUP_JOB_CRONTAB" envDefault:"0 0 3 * * *"`
}

type Auth struct {
	JwtSecret  string        `env:"JWT_SECRET"`
	TokenTTL   time.Duration `env:"JWT_TOKEN_TTL" envDefault:"1h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`
}

type Portfolio struct {
	PersistValuations bool `env:"PORTFOLIO_PERSIST_VALUATIONS" envDefault:"false"`
}

// GoogleDrive export is disabled when CredentialsFile is empty.
type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"24h"`
}

func (g GoogleDrive) Enabled() bool {
	return g.CredentialsFile != ""
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
