// Package status exposes a small ops-only HTTP surface for the worker
// daemon: liveness and pipeline counters. It is disabled unless an address
// is configured.
package status

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/atcscribe/asr-worker/internal/queue"
)

// Server serves /health and /status.
type Server struct {
	app     *fiber.App
	addr    string
	queue   *queue.Queue
	stats   *queue.Stats
	model   string
	started time.Time
}

// NewServer builds the status server; it does not listen until Start.
func NewServer(addr string, q *queue.Queue, stats *queue.Stats, model string) *Server {
	s := &Server{
		addr:    addr,
		queue:   q,
		stats:   stats,
		model:   model,
		started: time.Now(),
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	app.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"model":      s.model,
			"uptime_sec": int64(time.Since(s.started).Seconds()),
			"queue": fiber.Map{
				"depth":    s.queue.Len(),
				"capacity": s.queue.Cap(),
			},
			"counters": s.stats.Snapshot(),
		})
	})

	s.app = app
	return s
}

// Start listens in the background. A status server failure is logged, not
// fatal: the pipeline does not depend on it.
func (s *Server) Start() {
	go func() {
		log.Printf("[worker] Status server listening on %s", s.addr)
		if err := s.app.Listen(s.addr); err != nil {
			log.Printf("[worker] Status server stopped: %v", err)
		}
	}()
}

// Shutdown stops the listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
