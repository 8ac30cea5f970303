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

	"golang.org/x/time/rate"

	"cinease/api"
	"cinease/config"
	"cinease/db"
	"cinease/handlers"
	"cinease/session"
	"cinease/storage"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("[ERROR]: %v", err)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("[ERROR]: %v", err)
	}
	defer closeStore()

	ctx := context.Background()
	sess := session.New(store, nil)
	if err := sess.Load(ctx); err != nil {
		log.Printf("[ERROR]: restoring session: %v", err)
	}

	client := api.New(cfg.API,
		api.WithTokens(sess),
		api.WithLimiter(rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst)),
		api.WithTimeout(cfg.Timeout),
	)

	shell, err := handlers.NewShell(cfg, sess, client, nil)
	if err != nil {
		log.Fatalf("[ERROR]: %v", err)
	}
	loadCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	if err := shell.Catalog.Load(loadCtx); err != nil {
		log.Printf("[ERROR]: %v", err)
	}
	cancel()
	shell.Catalog.Rotation().Start()
	defer shell.Catalog.Rotation().Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handlers.NewRouter(shell),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      2 * cfg.Timeout,
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[ERROR]: shutdown: %v", err)
		}
	}()

	log.Printf("[SYSTEM]: CinEase running on http://localhost%s (API %s)", cfg.Addr, cfg.API)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("[ERROR]: %v", err)
	}
	log.Println("[SYSTEM]: stopped")
}

// openStore picks the local storage backend. SQL backends get their table
// created on first use.
func openStore(cfg config.Config) (storage.Store, func(), error) {
	switch cfg.Store {
	case "memory":
		return storage.NewMemoryStore(), func() {}, nil
	case "mysql", "postgres":
		conn, err := db.Open(cfg.Store, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewSQLStore(conn, cfg.Store)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		if err := store.Migrate(ctx); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return store, closer(conn), nil
	default:
		store, err := storage.OpenFileStore(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

func closer(conn *sql.DB) func() {
	return func() {
		if err := conn.Close(); err != nil {
			log.Printf("[ERROR]: closing storage: %v", err)
		}
	}
}
