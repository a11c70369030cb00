package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Server owns the http.Server for the storefront and back-office API.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
}

// New builds a Server with every API route. WriteTimeout stays unset because
// the order feed holds websocket connections open.
func New(addr string, logger *log.Logger, db *pgxpool.Pool, deps Deps) (*Server, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	router, err := buildRouter(logger, db, deps)
	if err != nil {
		return nil, err
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ErrorLog:          logger,
		},
		logger: logger,
	}, nil
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Printf("http server: shutting down addr=%s", s.httpServer.Addr)
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readyHandler reports ready once the database answers and the settings row
// checkout depends on has been seeded.
func readyHandler(db *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		var currency string
		err := db.QueryRow(ctx, `SELECT currency FROM settings WHERE id = 1`).Scan(&currency)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "settings not seeded"})
		case err != nil:
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not reachable"})
		default:
			c.JSON(http.StatusOK, gin.H{"status": "ready", "currency": currency})
		}
	}
}
