package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errDBNotConfigured = errors.New("db not configured")

// Server wraps the HTTP server setup.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
}

// ReadinessCheck reports whether one backing dependency, such as the cart cache, can
// serve traffic. /readyz runs every check on each request.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// New builds a Server serving the storefront API on addr.
func New(addr string, logger *log.Logger, db *pgxpool.Pool, deps Deps) (*Server, error) {
	router, err := buildRouter(logger, db, deps)
	if err != nil {
		return nil, err
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		httpServer: httpSrv,
		logger:     logger,
	}, nil
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Printf("http server: shutting down")
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readinessChecks puts the database first; it is always required.
func readinessChecks(db *pgxpool.Pool, extra []ReadinessCheck) []ReadinessCheck {
	dbCheck := ReadinessCheck{Name: "db", Check: func(context.Context) error { return errDBNotConfigured }}
	if db != nil {
		dbCheck.Check = db.Ping
	}
	return append([]ReadinessCheck{dbCheck}, extra...)
}

func readyHandler(logger *log.Logger, checks []ReadinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		status, code := "ready", http.StatusOK
		results := make(gin.H, len(checks))
		for _, rc := range checks {
			if err := rc.Check(ctx); err != nil {
				logger.Printf("readiness: check=%s error=%v", rc.Name, err)
				results[rc.Name] = "unavailable"
				status, code = "unavailable", http.StatusServiceUnavailable
				continue
			}
			results[rc.Name] = "ok"
		}
		c.JSON(code, gin.H{"status": status, "checks": results})
	}
}
