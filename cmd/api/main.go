package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"corkboard/api/internal/app"
	"corkboard/api/internal/authpw"
	"corkboard/api/internal/config"
	"corkboard/api/internal/email"
	"corkboard/api/internal/events"
	"corkboard/api/internal/export"
	"corkboard/api/internal/search"
	"corkboard/api/internal/session"
	"corkboard/api/internal/store"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.WithError(err).Fatal("migrations failed")
	}

	dataStore := store.NewPostgresStore(db)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, log)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts, log)
	if meiliClient != nil {
		// Rebuild the Meilisearch index from Postgres so search survives
		// an empty or recreated Meilisearch volume.
		go searchService.ReindexAllFromPG(ctx)
	}

	var sessions app.SessionStore = dataStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("redis connection failed")
		}
		defer redisStore.Close()
		sessions = redisStore
		log.Info("using redis for refresh sessions")
	} else {
		log.Info("using postgres for refresh sessions")
	}

	mail := email.NewService(email.Config{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		From:      cfg.SMTPFrom,
		FromName:  cfg.SMTPFromName,
		EnableTLS: true,
	})
	if !mail.IsConfigured() {
		log.Warn("SMTP not configured, verification and reset tokens are returned in API responses")
	}

	service := app.New(
		cfg,
		dataStore,
		sessions,
		events.NewHub(),
		authpw.NewService(dataStore),
		mail,
		searchService,
		export.NewService(),
		log,
	)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, log)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: the board event stream is a long-lived response.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("corkboard api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}
