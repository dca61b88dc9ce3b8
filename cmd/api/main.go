package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"learnware.org/internal/auth"
	"learnware.org/internal/httpapi"
	"learnware.org/internal/obs"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("LEARNWARE_COMMIT"))

	secret := os.Getenv("LEARNWARE_AUTH_SECRET")
	if secret == "" {
		log.Fatal("LEARNWARE_AUTH_SECRET is required")
	}

	var (
		db       *sql.DB
		users    auth.UserStore
		sessions auth.SessionStore
	)
	if dsn := os.Getenv("LEARNWARE_PG_DSN"); dsn != "" {
		var err error
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		users = auth.NewPGUserStore(db)
		sessions = auth.NewPGSessionStore(db)
	} else {
		log.Println("LEARNWARE_PG_DSN not set, using in-memory stores")
		users = auth.NewMemoryUserStore()
		sessions = auth.NewMemorySessionStore()
	}

	opts := []auth.ServiceOption{
		auth.WithAccessTTL(envDuration("LEARNWARE_ACCESS_TTL")),
		auth.WithRefreshTTL(envDuration("LEARNWARE_REFRESH_TTL")),
		auth.WithLockoutThreshold(envInt("LEARNWARE_LOCKOUT_THRESHOLD")),
		auth.WithLockoutDuration(envDuration("LEARNWARE_LOCKOUT_DURATION")),
		auth.WithIssuer(os.Getenv("LEARNWARE_TOKEN_ISSUER")),
	}
	svc, err := auth.NewService(users, sessions, []byte(secret), opts...)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, svc)

	addr := os.Getenv("LEARNWARE_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting learnware-auth %s on %s", version, srv.Addr)

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
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

// envDuration returns the parsed duration or zero, which leaves the service
// default in place.
func envDuration(name string) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("%s: %v", name, err)
	}
	return d
}

func envInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("%s: %v", name, err)
	}
	return n
}
