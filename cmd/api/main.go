package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trove.dev/internal/auth"
	"trove.dev/internal/config"
	"trove.dev/internal/database"
	"trove.dev/internal/httpapi"
	"trove.dev/internal/items"
	"trove.dev/internal/obs"
	"trove.dev/internal/token"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancelPing()
		log.Fatalf("ping db: %v", err)
	}
	cancelPing()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	codec, err := token.NewCodec(cfg.AuthSecret, token.WithIssuer(cfg.TokenIssuer))
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	authSvc := auth.NewService(
		auth.NewPGStore(db),
		codec,
		auth.WithAccessTTL(cfg.AccessTokenTTL),
		auth.WithRefreshTTL(cfg.RefreshTokenTTL),
	)
	itemSvc := items.NewService(items.NewPGStore(db))

	if cfg.BootstrapSuperuser() {
		bootCtx, cancelBoot := context.WithTimeout(context.Background(), 10*time.Second)
		err := authSvc.EnsureSuperuser(bootCtx, cfg.FirstSuperuserEmail, cfg.FirstSuperuserPassword, "")
		cancelBoot()
		if err != nil {
			log.Fatalf("bootstrap superuser: %v", err)
		}
	}

	api := httpapi.New(httpapi.Options{
		Auth:               authSvc,
		Items:              itemSvc,
		ReadyProbe:         httpapi.ReadyProbe{DB: db},
		Version:            version,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
		IdleTimeout:       cfg.AppIdleTimeout,
	}

	log.Printf("Starting trove-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
