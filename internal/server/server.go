package server

import (
	"context"
	"net/http"

	"github.com/scythe504/mission-backend/internal"
	"github.com/scythe504/mission-backend/internal/config"
	"github.com/scythe504/mission-backend/internal/database"
)

// Rooms lists the password-protected rooms for the HTTP surface.
type Rooms interface {
	GetPasswordProtectedGames() []internal.RoomListing
}

// Sessions reports how many games the engine currently holds.
type Sessions interface {
	SessionCount() int
}

// Database is the archive plus its health check. It is nil when no
// database is configured.
type Database interface {
	database.Archive
	Health(ctx context.Context) map[string]string
}

type Server struct {
	rooms    Rooms
	sessions Sessions
	db       Database
	ws       http.HandlerFunc
}

func New(rooms Rooms, sessions Sessions, db Database, ws http.HandlerFunc) *Server {
	return &Server{
		rooms:    rooms,
		sessions: sessions,
		db:       db,
		ws:       ws,
	}
}

// NewServer builds the http.Server for s using the timeouts in cfg.
func NewServer(cfg config.Config, s *Server) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  cfg.Server.IdleTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
