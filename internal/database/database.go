// Package database archives finished games in PostgreSQL. It is a history
// log only: live sessions are never restored from it.
package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scythe504/mission-backend/internal"
)

var ErrNotFinished = errors.New("game has not ended")

// Archive stores and lists finished games.
type Archive interface {
	SaveFinishedGame(ctx context.Context, sum internal.GameSummary) error
	RecentGames(ctx context.Context, limit int) ([]internal.GameSummary, error)
}

type Service interface {
	Archive
	// Health reports pool status. Status is "up" or "down".
	Health(ctx context.Context) map[string]string
	Close()
}

type service struct {
	pool *pgxpool.Pool
}

// New runs migrations against databaseURL and opens a pool to it.
func New(ctx context.Context, databaseURL string, maxConns int32) (Service, error) {
	if err := Migrate(databaseURL); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	log.Printf("[database] connected to %s", cfg.ConnConfig.Database)
	return &service{pool: pool}, nil
}

// SaveFinishedGame records sum. Saving the same game twice is a no-op.
func (s *service) SaveFinishedGame(ctx context.Context, sum internal.GameSummary) error {
	if sum.State != internal.StateEnd {
		return fmt.Errorf("save %s: %w", sum.Id, ErrNotFinished)
	}

	const q = `
		INSERT INTO finished_games
			(id, players, succession, bad_faction, mission_history, outcome, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, q,
		sum.Id,
		sum.Players,
		sum.Succession,
		sum.BadFaction,
		sum.MissionHistory,
		string(sum.Outcome),
		sum.StartedAt,
		sum.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", sum.Id, err)
	}
	return nil
}

// RecentGames returns up to limit finished games, newest first.
func (s *service) RecentGames(ctx context.Context, limit int) ([]internal.GameSummary, error) {
	const q = `
		SELECT id, players, succession, bad_faction, mission_history, outcome, started_at, ended_at
		FROM finished_games
		ORDER BY ended_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("recent games: %w", err)
	}

	games, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (internal.GameSummary, error) {
		var (
			sum     internal.GameSummary
			outcome string
		)
		err := row.Scan(
			&sum.Id,
			&sum.Players,
			&sum.Succession,
			&sum.BadFaction,
			&sum.MissionHistory,
			&outcome,
			&sum.StartedAt,
			&sum.EndedAt,
		)
		sum.State = internal.StateEnd
		sum.Outcome = internal.Outcome(outcome)
		return sum, err
	})
	if err != nil {
		return nil, fmt.Errorf("recent games: %w", err)
	}
	return games, nil
}

func (s *service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		log.Printf("[Health] database down: %v", err)
		return stats
	}

	st := s.pool.Stat()
	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["total_connections"] = strconv.Itoa(int(st.TotalConns()))
	stats["idle_connections"] = strconv.Itoa(int(st.IdleConns()))
	stats["acquired_connections"] = strconv.Itoa(int(st.AcquiredConns()))
	stats["max_connections"] = strconv.Itoa(int(st.MaxConns()))

	if st.AcquiredConns() > st.MaxConns()*4/5 {
		stats["message"] = "The database is under heavy load."
	}
	return stats
}

func (s *service) Close() {
	s.pool.Close()
	log.Printf("[database] pool closed")
}

// ArchiveListener returns a game listener that saves every summary it
// receives, each within timeout.
func ArchiveListener(store Archive, timeout time.Duration) func(internal.GameSummary) error {
	return func(sum internal.GameSummary) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := store.SaveFinishedGame(ctx, sum); err != nil {
			return err
		}
		log.Printf("[ArchiveListener] archived %s (%s)", sum.Id, sum.Outcome)
		return nil
	}
}
