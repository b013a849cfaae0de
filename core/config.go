package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	EnvProduction = "production"

	// devSecretKey signs sessions outside production only.
	devSecretKey = "3o$y1-k^d!vq_tw8r+e4z@b%m7lg0x)(c2ns5hjf6ap#9iu"
)

var errInsecureSecretKey = errors.New("SECRET_KEY must be set to a non-default value in production")

type (
	ServerConfig struct {
		Address         string
		DebugAddress    string
		ShutdownTimeout time.Duration
		SessionMaxAge   time.Duration
	}

	DatabaseConfig struct {
		Path string
	}

	UploadsConfig struct {
		Dir     string
		MaxSize int64
	}

	B2Config struct {
		AccountID string
		AppKey    string
		Bucket    string
	}

	SMTPConfig struct {
		Host string
		Port int
		User string
		Pass string
		From string
	}

	AnthropicConfig struct {
		APIKey    string
		Model     string
		MaxTokens int64
		Timeout   time.Duration
	}

	Config struct {
		Env            string
		Debug          bool
		TestMode       bool
		Build          string
		AppName        string
		SecretKey      string
		BaseURL        string
		MagicLinkTTL   time.Duration
		RollbarToken   string
		SendgridAPIKey string

		Server    ServerConfig
		Database  DatabaseConfig
		Uploads   UploadsConfig
		B2        B2Config
		SMTP      SMTPConfig
		Anthropic AnthropicConfig
	}
)

// NewConfig loads the app configuration from defaults, the optional `config/.env.<env>` file and the environment.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("env", "development")
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "AI Canvas")
	v.SetDefault("secretKey", devSecretKey)
	v.SetDefault("baseURL", "http://localhost:3000")
	v.SetDefault("magicLinkTTL", 24*time.Hour)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridAPIKey", "")
	v.SetDefault("server.address", ":3000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.sessionMaxAge", 7*24*time.Hour)
	v.SetDefault("database.path", "canvas.db")
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.maxSize", int64(20<<20))
	v.SetDefault("b2.accountID", "")
	v.SetDefault("b2.appKey", "")
	v.SetDefault("b2.bucket", "")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.pass", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("anthropic.apiKey", "")
	v.SetDefault("anthropic.model", "claude-opus-4-5-20251101")
	v.SetDefault("anthropic.maxTokens", int64(4096))
	v.SetDefault("anthropic.timeout", 2*time.Minute)

	env := os.Getenv("ENV")
	if env == "" {
		env = os.Getenv("NODE_ENV")
	}
	loadDotEnv(strings.ToLower(env))

	bindEnv(v)

	conf := &Config{
		Env:            strings.ToLower(v.GetString("env")),
		Build:          v.GetString("build"),
		AppName:        v.GetString("appName"),
		SecretKey:      v.GetString("secretKey"),
		BaseURL:        strings.TrimRight(v.GetString("baseURL"), "/"),
		MagicLinkTTL:   v.GetDuration("magicLinkTTL"),
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridAPIKey: v.GetString("sendgridAPIKey"),
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			DebugAddress:    v.GetString("server.debugAddress"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			SessionMaxAge:   v.GetDuration("server.sessionMaxAge"),
		},
		Database: DatabaseConfig{Path: v.GetString("database.path")},
		Uploads: UploadsConfig{
			Dir:     v.GetString("uploads.dir"),
			MaxSize: v.GetInt64("uploads.maxSize"),
		},
		B2: B2Config{
			AccountID: v.GetString("b2.accountID"),
			AppKey:    v.GetString("b2.appKey"),
			Bucket:    v.GetString("b2.bucket"),
		},
		SMTP: SMTPConfig{
			Host: v.GetString("smtp.host"),
			Port: v.GetInt("smtp.port"),
			User: v.GetString("smtp.user"),
			Pass: v.GetString("smtp.pass"),
			From: v.GetString("smtp.from"),
		},
		Anthropic: AnthropicConfig{
			APIKey:    v.GetString("anthropic.apiKey"),
			Model:     v.GetString("anthropic.model"),
			MaxTokens: v.GetInt64("anthropic.maxTokens"),
			Timeout:   v.GetDuration("anthropic.timeout"),
		},
	}
	conf.TestMode = conf.Env == "test"
	if v.IsSet("debug") {
		conf.Debug = v.GetBool("debug")
	} else {
		conf.Debug = !conf.IsProduction()
	}
	if err := conf.validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

func (c *Config) validate() error {
	if c.IsProduction() && (c.SecretKey == "" || c.SecretKey == devSecretKey) {
		return errInsecureSecretKey
	}
	return nil
}

func bindEnv(v *viper.Viper) {
	binds := [][]string{
		{"env", "ENV", "NODE_ENV"},
		{"debug", "DEBUG"},
		{"build", "BUILD"},
		{"appName", "APP_NAME"},
		{"secretKey", "SECRET_KEY"},
		{"baseURL", "BASE_URL", "NEXT_PUBLIC_BASE_URL"},
		{"magicLinkTTL", "MAGIC_LINK_TTL"},
		{"rollbarToken", "ROLLBAR_TOKEN"},
		{"sendgridAPIKey", "SENDGRID_API_KEY"},
		{"server.address", "SERVER_ADDRESS"},
		{"server.debugAddress", "DEBUG_ADDRESS"},
		{"server.shutdownTimeout", "SHUTDOWN_TIMEOUT"},
		{"server.sessionMaxAge", "SESSION_MAX_AGE"},
		{"database.path", "DATABASE_PATH"},
		{"uploads.dir", "UPLOADS_DIR"},
		{"uploads.maxSize", "UPLOADS_MAX_SIZE"},
		{"b2.accountID", "B2_ACCOUNT_ID"},
		{"b2.appKey", "B2_APP_KEY"},
		{"b2.bucket", "B2_BUCKET"},
		{"smtp.host", "SMTP_HOST"},
		{"smtp.port", "SMTP_PORT"},
		{"smtp.user", "SMTP_USER"},
		{"smtp.pass", "SMTP_PASS"},
		{"smtp.from", "SMTP_FROM"},
		{"anthropic.apiKey", "ANTHROPIC_API_KEY"},
		{"anthropic.model", "ANTHROPIC_MODEL"},
		{"anthropic.maxTokens", "ANTHROPIC_MAX_TOKENS"},
		{"anthropic.timeout", "ANTHROPIC_TIMEOUT"},
	}
	for _, b := range binds {
		if err := v.BindEnv(b...); err != nil {
			log.Fatalf("config.BindEnv(%s): %v", b[0], err)
		}
	}
}

// loadDotEnv loads `config/.env.<env>` if it exists (ignored if it does not).
// Variables already set in the environment win.
func loadDotEnv(env string) {
	if env == "" {
		env = "development"
	}
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+env)
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
}

func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// DevMailMode is true when no outbound mail transport is configured.
func (c *Config) DevMailMode() bool { return c.SMTP.Host == "" && c.SendgridAPIKey == "" }

// DefaultFromEmail is the sender of all outgoing emails.
func (c *Config) DefaultFromEmail() mail.Address {
	if c.SMTP.From != "" {
		if addr, err := mail.ParseAddress(c.SMTP.From); err == nil {
			return *addr
		}
	}
	return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
}
