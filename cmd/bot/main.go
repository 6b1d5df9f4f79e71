package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"zapisnik/internal/admin"
	"zapisnik/internal/booking"
	"zapisnik/internal/bot"
	"zapisnik/internal/config"
	"zapisnik/internal/database"
	"zapisnik/internal/google"
	"zapisnik/internal/metrics"
	"zapisnik/internal/reminder"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("ZAPISNIK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	if err := db.EnsureDefaults(ctx, cfg.Telegram.AdminChatID); err != nil {
		logger.Fatal().Err(err).Msg("seed defaults error")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}
	api.Debug = cfg.Telegram.Debug

	var rdb *redis.Client
	var limiter bot.RateLimiter
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		limiter = bot.NewRedisRateLimiter(rdb, cfg.RateLimit.PerUserPerMinute)
	} else {
		limiter = bot.NewLocalRateLimiter(cfg.RateLimit.PerUserPerMinute)
	}

	var calendarSvc *google.CalendarService
	if cfg.GoogleCalendar.Enabled {
		calendarSvc, err = google.NewCalendarService(ctx,
			cfg.GoogleCalendar.CredentialsPath, cfg.GoogleCalendar.CalendarID,
			logger.With().Str("component", "calendar").Logger())
		if err != nil {
			logger.Fatal().Err(err).Msg("calendar setup error")
		}
	}

	sessions := booking.NewSessionStore(cfg.SessionTTL())
	flow := booking.NewFlow(db, sessions, logger.With().Str("component", "booking").Logger())
	b := bot.New(api, flow, db, calendarSvc, limiter,
		cfg.Telegram.AdminChatID, cfg.GoogleCalendar.Location,
		logger.With().Str("component", "bot").Logger())

	sweep := reminder.New(db, b, cfg.ReminderInterval(),
		logger.With().Str("component", "reminder").Logger())
	go sweep.Start(ctx)

	go sessionCleanupLoop(ctx, sessions, &logger)

	if cfg.Backup.Enabled {
		backup := database.NewBackup(cfg.Database.Path, cfg.Backup.StoragePath,
			cfg.Backup.RetentionDays, logger.With().Str("component", "backup").Logger())
		go backup.Start(ctx)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.AdminAPI.Enabled {
		if cfg.AdminAPI.Token == "" {
			logger.Fatal().Msg("admin_api.token is required when admin_api.enabled")
		}
		adminSrv := admin.NewServer(db, cfg.AdminAPI.Token,
			logger.With().Str("component", "admin").Logger())
		go startAdminServer(ctx, cfg.AdminAPI.ListenAddr, adminSrv.Handler(), &logger)
	}

	logger.Info().Msg("booking bot started")
	b.Start(ctx)
}

func sessionCleanupLoop(ctx context.Context, sessions *booking.SessionStore, logger *zerolog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := sessions.Cleanup(); removed > 0 {
				logger.Debug().Int("removed", removed).Msg("expired sessions dropped")
			}
		}
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	serve(ctx, &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}, "health", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serve(ctx, &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}, "metrics", logger)
}

func startAdminServer(ctx context.Context, addr string, handler http.Handler, logger *zerolog.Logger) {
	if addr == "" {
		addr = ":8091"
	}
	serve(ctx, &http.Server{Addr: addr, Handler: handler}, "admin", logger)
}

func serve(ctx context.Context, srv *http.Server, name string, logger *zerolog.Logger) {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Str("server", name).Msg("http server error")
	}
}
