package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"stat-attack/config"
	"stat-attack/savefile"
	"stat-attack/server"
	"stat-attack/session"
	"stat-attack/stats"
)

const redisPrefix = "stat-attack:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		log.Fatalf("failed to load rules: %v", err)
	}

	db, err := stats.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("failed to open box-score database: %v", err)
	}
	defer db.Close()
	log.Printf("Box scores from %s (%s)", cfg.Database.DSN, cfg.Database.Driver)

	var store stats.Store = db
	var saves savefile.Store
	if cfg.Redis.URL != "" {
		client, err := connectRedis(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer client.Close()
		store = stats.NewCachedStore(db, client, redisPrefix, cfg.Redis.CacheTTL)
		saves = savefile.NewRedisStore(client, redisPrefix, rules.Economy)
		log.Printf("Redis enabled: stats cache (ttl %s) and save slots", cfg.Redis.CacheTTL)
	} else {
		saves, err = savefile.NewFileStore(cfg.SaveDir, rules.Economy)
		if err != nil {
			log.Fatalf("failed to open save dir: %v", err)
		}
		log.Printf("Save slots in %s", cfg.SaveDir)
	}

	sessions := session.NewManager(store, session.Options{
		GameRules:    rules.Game,
		EconomyRules: rules.Economy,
		Saves:        saves,
		Seed:         cfg.Seed,
	})

	srv := server.New(sessions, server.Options{
		DB:          db,
		BotDelay:    cfg.BotDelay,
		CORSOrigins: cfg.CORSOrigins,
		AdminToken:  cfg.AdminToken,
		RulesFile:   cfg.RulesFile,
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, sessions, cfg.SessionTTL)

	go func() {
		log.Printf("Server running on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

func connectRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// sweepSessions drops idle sessions until ctx is done.
func sweepSessions(ctx context.Context, m *session.Manager, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ttl)
		}
	}
}
