package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/waisgo/authcore/internal/audit"
	"github.com/waisgo/authcore/internal/auth"
	"github.com/waisgo/authcore/internal/config"
	"github.com/waisgo/authcore/internal/httpapi"
	"github.com/waisgo/authcore/internal/obs"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)
	logger := obs.Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	codec, err := auth.NewTokenCodec([]byte(cfg.TokenKey), cfg.TokenIssuer, cfg.TokenAudience,
		auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		// A wrong-length key is fatal at startup, never a per-request error.
		log.Fatalf("token codec: %v", err)
	}

	var db *sql.DB
	if cfg.PGDSN != "" {
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var creds auth.CredentialStore
	var sink auth.AuditSink
	if db != nil {
		creds = auth.NewPGStore(db)
		sink = auth.NewPGAuditLog(db)
	} else {
		logger.Warn().Msg("no AUTHCORE_PG_DSN set, using in-memory credential store")
		creds = auth.NewMemoryStore()
		sink = audit.NewLogSink()
	}

	var oracle auth.RevocationOracle
	var revoker auth.Revoker
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		revocations := auth.NewRedisRevocations(rdb, cfg.TokenTTL)
		oracle, revoker = revocations, revocations
	} else {
		logger.Warn().Msg("no AUTHCORE_REDIS_ADDR set, using in-memory revocation store")
		revocations := auth.NewMemoryRevocations()
		oracle, revoker = revocations, revocations
	}

	svc, err := auth.NewService(creds, codec,
		auth.WithLockout(auth.LockoutPolicy{
			MaxAttempts:   cfg.LockoutMaxAttempts,
			BlockDuration: cfg.LockoutBlock,
		}),
		auth.WithRevoker(revoker),
		auth.WithAuditSink(sink),
		auth.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	guard, err := auth.NewGuard(codec, oracle)
	if err != nil {
		log.Fatalf("auth guard: %v", err)
	}

	verifiedRoles := make([]auth.Role, 0, len(cfg.VerifiedRoles))
	for _, r := range cfg.VerifiedRoles {
		verifiedRoles = append(verifiedRoles, auth.NormalizeRole(auth.Role(r)))
	}

	api := httpapi.New(svc, guard, httpapi.ReadyProbe{DB: db}, version,
		httpapi.WithVerifiedRoles(verifiedRoles))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("starting authcore-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	logger.Info().Msg("stopped")
}
