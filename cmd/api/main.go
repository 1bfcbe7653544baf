package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scythe504/mission-backend/internal/broadcast"
	"github.com/scythe504/mission-backend/internal/config"
	"github.com/scythe504/mission-backend/internal/database"
	"github.com/scythe504/mission-backend/internal/game"
	"github.com/scythe504/mission-backend/internal/lobby"
	"github.com/scythe504/mission-backend/internal/relay"
	"github.com/scythe504/mission-backend/internal/server"
	"github.com/scythe504/mission-backend/internal/users"
	"github.com/scythe504/mission-backend/internal/websockets"
)

const archiveTimeout = 5 * time.Second

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ===== USERS =====
	dir, closeUsers, err := newDirectory(ctx, cfg)
	if err != nil {
		log.Fatalf("users: %v", err)
	}
	defer closeUsers()
	names := users.NewNames(dir, time.Second)

	// ===== LOBBY AND GAMES =====
	registry := lobby.NewRegistry(names, lobby.WithMaxDistance(cfg.Lobby.MaxDistanceMeters))
	engine := game.NewEngine(game.WithRetention(cfg.Game.Retention))

	hub := broadcast.NewHub()
	coord, err := broadcast.NewCoordinator(hub, registry, engine, names, cfg.Lobby.BroadcastInterval)
	if err != nil {
		log.Fatalf("broadcast: %v", err)
	}

	// ===== OPTIONAL ARCHIVE AND RELAY =====
	var db server.Database
	if cfg.Database.URL != "" {
		svc, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer svc.Close()
		if _, err := engine.AddEventListener(game.EventEnd, database.ArchiveListener(svc, archiveTimeout)); err != nil {
			log.Fatalf("database: %v", err)
		}
		db = svc
	}

	if cfg.NATS.URL != "" {
		conn, err := relay.Connect(cfg.NATS.URL)
		if err != nil {
			log.Fatalf("relay: %v", err)
		}
		defer conn.Drain()
		if err := relay.New(conn, cfg.NATS.SubjectPrefix, names).Attach(engine); err != nil {
			log.Fatalf("relay: %v", err)
		}
	}

	// ===== BACKGROUND LOOPS =====
	go coord.Run(ctx)
	go engine.Run(ctx, cfg.Game.JanitorInterval)

	// ===== HTTP =====
	ws := websockets.NewHandler(registry, engine, dir, hub, coord)
	apiServer := server.NewServer(cfg, server.New(registry, engine, db, ws.HandleWebSocket))

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(apiServer, done)

	log.Printf("listening on %s (users=%s)", apiServer.Addr, cfg.Users.Backend)
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")
}

func newDirectory(ctx context.Context, cfg config.Config) (users.Directory, func(), error) {
	if cfg.Users.Backend != config.UsersRedis {
		return users.NewMemoryDirectory(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Printf("closing redis: %v", err)
		}
	}
	return users.NewRedisDirectory(client, cfg.Redis.Key), closeFn, nil
}
