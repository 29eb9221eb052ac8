package app

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"Gin_postgres_redis_lending/ai"
	"Gin_postgres_redis_lending/cache"
	"Gin_postgres_redis_lending/db"
	"Gin_postgres_redis_lending/events"
	"Gin_postgres_redis_lending/notify"
	"Gin_postgres_redis_lending/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Ctx = gin.Context
type H = gin.H

// App holds every long-lived dependency.
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	Config Config
	Log    *slog.Logger

	Repo     *db.Repo
	Sessions *session.AppSessionStore
	Signer   *session.Signer
	Throttle *session.LoginThrottle
	Cache    *cache.Helper
	Bus      *events.Bus
	AI       *ai.Service
	Mailer   *notify.Mailer
}

type Config struct {
	DB          db.DBConfig
	RedisAddr   string
	RedisPwd    string
	WebOrigins  []string
	SessionTTL  time.Duration
	Secret      string
	AdminEmails []string

	BootstrapUsername string
	BootstrapPassword string
	BootstrapEmail    string

	LoginMaxAttempts int64
	LoginWindow      time.Duration

	AI              ai.Config
	SMTP            notify.SMTPConfig
	KafkaBrokers    []string
	OverdueInterval time.Duration

	Port     string
	LogLevel string
}

// WebOrigin is the primary front-end origin.
func (c Config) WebOrigin() string {
	if len(c.WebOrigins) == 0 {
		return ""
	}
	return c.WebOrigins[0]
}

func (c Config) SecureCookies() bool { return strings.HasPrefix(c.WebOrigin(), "https://") }

func MustNew(log *slog.Logger) *App {
	cfg := LoadConfig()

	dbConn, err := db.ConnectDB(cfg.DB, log)
	if err != nil {
		fatal(log, "database", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		fatal(log, "redis", err)
	}

	bus, err := events.NewBus(log, cfg.KafkaBrokers)
	if err != nil {
		fatal(log, "event bus", err)
	}

	if err := RegisterValidators(); err != nil {
		fatal(log, "validators", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log))
	useCORS(r, cfg.WebOrigins)

	return &App{
		Router:   r,
		DB:       dbConn,
		RDB:      rdb,
		Config:   cfg,
		Log:      log,
		Repo:     db.NewRepo(dbConn, log),
		Sessions: session.NewAppSessionStore(rdb, cfg.SessionTTL),
		Signer:   session.NewSigner(cfg.Secret, cfg.SessionTTL),
		Throttle: session.NewLoginThrottle(rdb, cfg.LoginMaxAttempts, cfg.LoginWindow),
		Cache:    cache.NewHelper(rdb, "lending:cache:", log),
		Bus:      bus,
		AI:       ai.NewService(cfg.AI, log),
		Mailer:   notify.NewMailer(cfg.SMTP, log),
	}
}

func (a *App) Close() {
	if err := a.Bus.Close(); err != nil {
		a.Log.Warn("close event bus", "err", err)
	}
	_ = a.RDB.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func fatal(log *slog.Logger, what string, err error) {
	log.Error("startup failed", "component", what, "err", err)
	os.Exit(1)
}

// NewLogger builds the JSON logger used everywhere; level is debug, info, warn or error.
func NewLogger(level string) *slog.Logger {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lv}))
}

func get(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func csv(v string, lower bool) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if t := strings.TrimSpace(s); t != "" {
			if lower {
				t = strings.ToLower(t)
			}
			out = append(out, t)
		}
	}
	return out
}

func seconds(k string, def time.Duration) time.Duration {
	if n, err := strconv.Atoi(get(k, "")); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func LoadConfig() Config {
	return Config{
		DB: db.DBConfig{
			URL:      get("DATABASE_URL", ""),
			Host:     get("DB_HOST", "127.0.0.1"),
			User:     get("DB_USER", "postgres"),
			Password: get("DB_PASSWORD", "postgres"),
			Name:     get("DB_NAME", "lending"),
			Port:     get("DB_PORT", "5432"),
			SSLMode:  get("DB_SSLMODE", "disable"),
		},
		RedisAddr:   get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:    os.Getenv("REDIS_PASSWORD"),
		WebOrigins:  csv(get("WEB_ORIGIN", "http://localhost:5173"), false),
		SessionTTL:  seconds("SESSION_TTL_SECONDS", 24*time.Hour),
		Secret:      get("SESSION_SECRET", "change-me"),
		AdminEmails: csv(os.Getenv("ADMIN_EMAILS"), true),

		BootstrapUsername: get("BOOTSTRAP_ADMIN_USERNAME", ""),
		BootstrapPassword: get("BOOTSTRAP_ADMIN_PASSWORD", ""),
		BootstrapEmail:    get("BOOTSTRAP_ADMIN_EMAIL", ""),

		LoginMaxAttempts: int64(atoi(get("LOGIN_MAX_ATTEMPTS", "5"), 5)),
		LoginWindow:      seconds("LOGIN_WINDOW_SECONDS", 15*time.Minute),

		AI: ai.Config{
			Preferred:      get("AI_PROVIDER", "gemini"),
			GeminiKey:      os.Getenv("GOOGLE_GEMINI_API_KEY"),
			OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
			HuggingFaceKey: os.Getenv("HUGGINGFACE_API_KEY"),
		},
		SMTP: notify.SMTPConfig{
			Host:     get("SMTP_HOST", ""),
			Port:     get("SMTP_PORT", "587"),
			Username: get("SMTP_USERNAME", ""),
			Password: get("SMTP_PASSWORD", ""),
			From:     get("SMTP_FROM", ""),
			AppName:  get("APP_NAME", "Equipment Lending"),
		},
		KafkaBrokers:    csv(os.Getenv("KAFKA_BROKERS"), false),
		OverdueInterval: seconds("OVERDUE_SWEEP_INTERVAL", time.Hour),

		Port:     get("PORT", "3001"),
		LogLevel: get("LOG_LEVEL", "info"),
	}
}

func atoi(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return def
}
