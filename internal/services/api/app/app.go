// Package app assembles Baranex services behind one HTTP handler.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/louisbranch/baranex/internal/platform/cache"
	"github.com/louisbranch/baranex/internal/platform/id"
	"github.com/louisbranch/baranex/internal/platform/metrics"
	"github.com/louisbranch/baranex/internal/platform/objectstore"
	"github.com/louisbranch/baranex/internal/platform/secret"
	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	activitydomain "github.com/louisbranch/baranex/internal/services/activity/domain"
	activitysqlite "github.com/louisbranch/baranex/internal/services/activity/storage/sqlite"
	"github.com/louisbranch/baranex/internal/services/assistant/gemini"
	assistantservice "github.com/louisbranch/baranex/internal/services/assistant/service"
	assistantsqlite "github.com/louisbranch/baranex/internal/services/assistant/storage/sqlite"
	"github.com/louisbranch/baranex/internal/services/auth/mailer"
	authservice "github.com/louisbranch/baranex/internal/services/auth/service"
	authsqlite "github.com/louisbranch/baranex/internal/services/auth/storage/sqlite"
	"github.com/louisbranch/baranex/internal/services/auth/token"
	dashboardservice "github.com/louisbranch/baranex/internal/services/dashboard/service"
	emergencyservice "github.com/louisbranch/baranex/internal/services/emergency/service"
	emergencysqlite "github.com/louisbranch/baranex/internal/services/emergency/storage/sqlite"
	notifydomain "github.com/louisbranch/baranex/internal/services/notifications/domain"
	notifysqlite "github.com/louisbranch/baranex/internal/services/notifications/storage/sqlite"
	"github.com/louisbranch/baranex/internal/services/realtime"
	"github.com/louisbranch/baranex/internal/services/realtime/natsbridge"
	registryservice "github.com/louisbranch/baranex/internal/services/registry/service"
	registrysqlite "github.com/louisbranch/baranex/internal/services/registry/storage/sqlite"
	"github.com/louisbranch/baranex/internal/services/sms"
)

// SMSConfig configures the SMS gateway. An empty URL disables broadcasts.
type SMSConfig struct {
	URL         string
	APIKey      string
	SenderName  string
	Concurrency int
}

// Config wires an App.
type Config struct {
	DBPath     string
	ObjectsDir string
	// MaxUploadBytes caps stored objects; zero means objectstore.DefaultMaxSize.
	MaxUploadBytes int64

	SigningKey  []byte
	TokenIssuer string
	AccessTTL   time.Duration
	// SealingKey encrypts TOTP secrets; empty disables MFA enrollment.
	SealingKey []byte
	VerifyURL  string
	SMTP       mailer.SMTPConfig

	SMS   SMSConfig
	GenAI gemini.Config

	RedisURL string
	NATSURL  string

	AllowedOrigins []string
	StatsTTL       time.Duration
	Version        string

	Logger *zap.Logger
	Clock  func() time.Time
}

// App holds the assembled services and the resources they share.
type App struct {
	DB            *sql.DB
	Metrics       *metrics.Registry
	Hub           *realtime.Hub
	Objects       *objectstore.Store
	Cache         cache.Cache
	Tokens        *token.Issuer
	Notifications *notifydomain.Service
	Activity      *activitydomain.Service
	Auth          *authservice.Service
	Registry      *registryservice.Service
	Emergency     *emergencyservice.Service
	Dashboard     *dashboardservice.Service
	Assistant     *assistantservice.Service

	allowedOrigins []string
	version        string
	logger         *zap.Logger

	redis  *redis.Client
	nats   *nats.Conn
	bridge *natsbridge.Bridge
}

// Open builds every service over one SQLite database. Optional backends
// (Redis, NATS, the SMS gateway and GenAI) are wired only when configured.
func Open(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	a := &App{
		Metrics:        metrics.NewRegistry(),
		allowedOrigins: cfg.AllowedOrigins,
		version:        cfg.Version,
		logger:         logger,
	}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	if err := ensureDir(filepath.Dir(cfg.DBPath)); err != nil {
		return nil, err
	}
	db, err := sqlitedb.Open(ctx, cfg.DBPath, nil, "")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.DB = db

	maxSize := cfg.MaxUploadBytes
	if maxSize <= 0 {
		maxSize = objectstore.DefaultMaxSize
	}
	if a.Objects, err = objectstore.Open(cfg.ObjectsDir, maxSize); err != nil {
		return nil, fmt.Errorf("open object store: %w", err)
	}

	if err := a.openCache(ctx, cfg.RedisURL, clock); err != nil {
		return nil, err
	}

	a.Hub = realtime.NewHub(realtime.WithDropHook(a.Metrics.IncRealtimeDropped))
	if err := a.openBridge(cfg.NATSURL); err != nil {
		return nil, err
	}

	notifyStore, err := notifysqlite.New(ctx, db)
	if err != nil {
		return nil, err
	}
	a.Notifications = notifydomain.NewService(notifyStore, clock, id.NewID).WithPublisher(a.Hub)

	activityStore, err := activitysqlite.New(ctx, db)
	if err != nil {
		return nil, err
	}
	a.Activity = activitydomain.NewService(activityStore, clock, id.NewID)

	registryStore, err := registrysqlite.New(ctx, db)
	if err != nil {
		return nil, err
	}
	a.Registry = registryservice.NewService(registryStore, registryservice.Config{
		Publisher: a.Hub,
		Activity:  a.Activity,
		Notifier:  a.Notifications,
		Objects:   a.Objects,
		Logger:    logger.Named("registry"),
		Clock:     clock,
	})

	if err := a.openAuth(ctx, cfg, clock); err != nil {
		return nil, err
	}

	emergencyStore, err := emergencysqlite.New(ctx, db)
	if err != nil {
		return nil, err
	}
	emergencyCfg := emergencyservice.Config{
		Publisher:     a.Hub,
		Activity:      a.Activity,
		Notifier:      a.Notifications,
		Directory:     a.Auth,
		Phones:        a.Registry,
		Cache:         a.Cache,
		CacheObserver: a.Metrics,
		Logger:        logger.Named("emergency"),
		Clock:         clock,
	}
	if strings.TrimSpace(cfg.SMS.URL) != "" {
		gateway, err := sms.NewHTTPGateway(sms.HTTPGatewayConfig{
			URL:        cfg.SMS.URL,
			APIKey:     cfg.SMS.APIKey,
			SenderName: cfg.SMS.SenderName,
		})
		if err != nil {
			return nil, fmt.Errorf("configure sms gateway: %w", err)
		}
		emergencyCfg.SMS = sms.NewBroadcaster(gateway,
			sms.WithConcurrency(cfg.SMS.Concurrency),
			sms.WithObserver(a.Metrics),
			sms.WithLogger(logger.Named("sms")),
		)
	} else {
		logger.Info("sms gateway not configured; broadcasts are disabled")
	}
	a.Emergency = emergencyservice.NewService(emergencyStore, emergencyCfg)

	a.Dashboard = dashboardservice.NewService(dashboardservice.Config{
		Registry:      a.Registry,
		Emergencies:   a.Emergency,
		Users:         a.Auth,
		Cache:         a.Cache,
		CacheObserver: a.Metrics,
		TTL:           cfg.StatsTTL,
		Logger:        logger.Named("dashboard"),
		Clock:         clock,
	})

	if err := a.openAssistant(ctx, cfg, clock); err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

func (a *App) openCache(ctx context.Context, url string, clock func() time.Time) error {
	if strings.TrimSpace(url) == "" {
		a.Cache = cache.NewMemory(clock)
		return nil
	}
	client, err := cache.OpenRedis(ctx, url)
	if err != nil {
		return err
	}
	a.redis = client
	a.Cache = cache.NewRedis(client, "baranex:")
	return nil
}

func (a *App) openBridge(url string) error {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	conn, err := nats.Connect(url, nats.Name("baranex-server"))
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	a.nats = conn
	origin, err := id.NewID()
	if err != nil {
		return err
	}
	bridge, err := natsbridge.New(conn, a.Hub, origin, a.logger.Named("natsbridge"))
	if err != nil {
		return err
	}
	if err := bridge.Start(); err != nil {
		return err
	}
	a.bridge = bridge
	return nil
}

func (a *App) openAuth(ctx context.Context, cfg Config, clock func() time.Time) error {
	tokens, err := token.NewIssuer(token.Config{
		SigningKey: cfg.SigningKey,
		Issuer:     cfg.TokenIssuer,
		AccessTTL:  cfg.AccessTTL,
		Now:        clock,
	})
	if err != nil {
		return fmt.Errorf("configure tokens: %w", err)
	}
	a.Tokens = tokens

	authCfg := authservice.Config{
		Tokens:    tokens,
		Objects:   a.Objects,
		Notifier:  a.Notifications,
		Activity:  a.Activity,
		Barangays: a.Registry,
		Logger:    a.logger.Named("auth"),
		Clock:     clock,
		VerifyURL: cfg.VerifyURL,
	}
	if len(cfg.SealingKey) > 0 {
		sealer, err := secret.NewAESGCMSealer(cfg.SealingKey)
		if err != nil {
			return fmt.Errorf("configure mfa sealer: %w", err)
		}
		authCfg.Sealer = sealer
	}
	if strings.TrimSpace(cfg.SMTP.Addr) != "" {
		m, err := mailer.NewSMTPMailer(cfg.SMTP)
		if err != nil {
			return fmt.Errorf("configure mailer: %w", err)
		}
		authCfg.Mailer = m
	}

	store, err := authsqlite.New(ctx, a.DB)
	if err != nil {
		return err
	}
	a.Auth = authservice.NewService(store, authCfg)
	return nil
}

func (a *App) openAssistant(ctx context.Context, cfg Config, clock func() time.Time) error {
	store, err := assistantsqlite.New(ctx, a.DB)
	if err != nil {
		return err
	}
	assistantCfg := assistantservice.Config{
		Store:  store,
		Corpus: assistantservice.RegistryCorpus{Registry: a.Registry},
		Logger: a.logger.Named("assistant"),
		Clock:  clock,
	}
	if strings.TrimSpace(cfg.GenAI.APIKey) != "" {
		client, err := gemini.New(ctx, cfg.GenAI)
		if err != nil {
			return fmt.Errorf("configure genai: %w", err)
		}
		assistantCfg.Embedder = client
		assistantCfg.Generator = client
	} else {
		a.logger.Info("genai not configured; assistant is disabled")
	}
	a.Assistant = assistantservice.NewService(assistantCfg)
	return nil
}

// Close releases the shared resources.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.bridge != nil {
		errs = append(errs, a.bridge.Close())
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.nats != nil {
		a.nats.Close()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	return nil
}
