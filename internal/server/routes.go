package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/scythe504/mission-backend/internal"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply CORS middleware
	r.Use(s.corsMiddleware)

	r.HandleFunc("/", s.HelloWorldHandler).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/rooms/password", s.PasswordRoomsHandler).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/games/recent", s.RecentGamesHandler).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/ws", s.ws)

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS Headers
		w.Header().Set("Access-Control-Allow-Origin", "*") // Wildcard allows all origins
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false") // Credentials not allowed with wildcard origins

		// Websocket upgrades skip the preflight handling
		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) HelloWorldHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, time.Now().UnixMilli(), http.StatusOK, map[string]string{"message": "Hello World"})
}

// HealthHandler reports live counts and, when configured, database health.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now().UnixMilli()
	body := map[string]any{
		"status":   "up",
		"sessions": s.sessions.SessionCount(),
	}
	status := http.StatusOK

	if s.db != nil {
		dbHealth := s.db.Health(r.Context())
		body["database"] = dbHealth
		if dbHealth["status"] != "up" {
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, start, status, body)
}

func (s *Server) PasswordRoomsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, time.Now().UnixMilli(), http.StatusOK, s.rooms.GetPasswordProtectedGames())
}

// RecentGamesHandler lists archived games, newest first. ?limit= caps the
// count at maxRecentLimit.
func (s *Server) RecentGamesHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now().UnixMilli()
	if s.db == nil {
		writeJSON(w, start, http.StatusNotFound, "Game archive is not configured")
		return
	}

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, start, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentLimit)
	}

	games, err := s.db.RecentGames(r.Context(), limit)
	if err != nil {
		log.Printf("[RecentGamesHandler] %v", err)
		writeJSON(w, start, http.StatusInternalServerError, "Could not load recent games")
		return
	}
	if games == nil {
		games = []internal.GameSummary{}
	}
	writeJSON(w, start, http.StatusOK, games)
}

func writeJSON(w http.ResponseWriter, start int64, status int, data any) {
	end := time.Now().UnixMilli()
	resp := internal.Response{
		StatusCode:    status,
		RespStartTime: start,
		RespEndTime:   end,
		NetRespTime:   end - start,
		Data:          data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
