// Package server wires configuration for the Baranex HTTP server binary.
package server

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	platformcmd "github.com/louisbranch/baranex/internal/platform/cmd"
	"github.com/louisbranch/baranex/internal/platform/config"
	"github.com/louisbranch/baranex/internal/platform/logging"
	"github.com/louisbranch/baranex/internal/services/api/app"
	"github.com/louisbranch/baranex/internal/services/assistant/gemini"
	"github.com/louisbranch/baranex/internal/services/auth/mailer"
)

// Version is stamped at build time with -ldflags "-X ...server.Version=...".
var Version = "dev"

// Config holds the server command configuration.
type Config struct {
	HTTPAddr       string `env:"BARANEX_HTTP_ADDR" envDefault:":8080"`
	DBPath         string `env:"BARANEX_DB_PATH" envDefault:"data/baranex.db"`
	ObjectsDir     string `env:"BARANEX_OBJECTS_DIR" envDefault:"data/objects"`
	MaxUploadBytes int64  `env:"BARANEX_MAX_UPLOAD_BYTES" envDefault:"5242880"`

	SigningKey  string        `env:"BARANEX_AUTH_SIGNING_KEY"`
	TokenIssuer string        `env:"BARANEX_AUTH_ISSUER" envDefault:"baranex"`
	AccessTTL   time.Duration `env:"BARANEX_AUTH_ACCESS_TTL" envDefault:"1h"`
	SealingKey  string        `env:"BARANEX_MFA_SEALING_KEY"`
	VerifyURL   string        `env:"BARANEX_VERIFY_URL"`
	SMTP        mailer.SMTPConfig

	SMSURL         string `env:"BARANEX_SMS_URL"`
	SMSAPIKey      string `env:"BARANEX_SMS_API_KEY"`
	SMSSenderName  string `env:"BARANEX_SMS_SENDER_NAME" envDefault:"BARANEX"`
	SMSConcurrency int    `env:"BARANEX_SMS_CONCURRENCY" envDefault:"8"`

	GenAIAPIKey          string `env:"BARANEX_GENAI_API_KEY"`
	GenAIEmbeddingModel  string `env:"BARANEX_GENAI_EMBEDDING_MODEL" envDefault:"gemini-embedding-001"`
	GenAIGenerationModel string `env:"BARANEX_GENAI_GENERATION_MODEL" envDefault:"gemini-2.5-flash"`

	RedisURL string `env:"BARANEX_REDIS_URL"`
	NATSURL  string `env:"BARANEX_NATS_URL"`

	AllowedOrigins []string      `env:"BARANEX_CORS_ORIGINS" envSeparator:","`
	StatsTTL       time.Duration `env:"BARANEX_STATS_TTL" envDefault:"5m"`

	Log logging.Config
}

// ParseConfig loads env defaults and lets flags override them.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.ObjectsDir, "objects-dir", cfg.ObjectsDir, "Object storage directory")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "Log format (json, console)")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AppConfig decodes keys and maps cfg onto the application wiring.
func (c Config) AppConfig(logger *zap.Logger) (app.Config, error) {
	signingKey, err := config.DecodeHexKey("BARANEX_AUTH_SIGNING_KEY", c.SigningKey, 0)
	if err != nil {
		return app.Config{}, err
	}
	var sealingKey []byte
	if strings.TrimSpace(c.SealingKey) != "" {
		sealingKey, err = config.DecodeHexKey("BARANEX_MFA_SEALING_KEY", c.SealingKey, 32)
		if err != nil {
			return app.Config{}, err
		}
	}
	return app.Config{
		DBPath:         c.DBPath,
		ObjectsDir:     c.ObjectsDir,
		MaxUploadBytes: c.MaxUploadBytes,
		SigningKey:     signingKey,
		TokenIssuer:    c.TokenIssuer,
		AccessTTL:      c.AccessTTL,
		SealingKey:     sealingKey,
		VerifyURL:      c.VerifyURL,
		SMTP:           c.SMTP,
		SMS: app.SMSConfig{
			URL:         c.SMSURL,
			APIKey:      c.SMSAPIKey,
			SenderName:  c.SMSSenderName,
			Concurrency: c.SMSConcurrency,
		},
		GenAI: gemini.Config{
			APIKey:          c.GenAIAPIKey,
			EmbeddingModel:  c.GenAIEmbeddingModel,
			GenerationModel: c.GenAIGenerationModel,
		},
		RedisURL:       c.RedisURL,
		NATSURL:        c.NATSURL,
		AllowedOrigins: c.AllowedOrigins,
		StatsTTL:       c.StatsTTL,
		Version:        Version,
		Logger:         logger,
	}, nil
}

// Run starts the HTTP server and blocks until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	appCfg, err := cfg.AppConfig(logger)
	if err != nil {
		return err
	}
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceServer, func(ctx context.Context) error {
		a, err := app.Open(ctx, appCfg)
		if err != nil {
			return fmt.Errorf("init app: %w", err)
		}
		defer func() {
			if err := a.Close(); err != nil {
				logger.Warn("close app", zap.Error(err))
			}
		}()

		srv, err := app.NewServer(a, cfg.HTTPAddr)
		if err != nil {
			return err
		}
		return srv.Serve(ctx)
	})
}
