package api

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultChunkRunes = 8

	clientIDHeader = "X-Client-Id"
)

// Server is the mock chat backend.
type Server struct {
	config  Config
	store   *roomStore
	metrics *metrics
	logger  *zap.Logger
	app     *fiber.App

	requests atomic.Int64
}

// NewServer creates a new mock backend server.
func NewServer(config Config, logger *zap.Logger) *Server {
	if config.Reply == nil {
		config.Reply = defaultReply
	}
	if config.ChunkRunes <= 0 {
		config.ChunkRunes = defaultChunkRunes
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Immutable:             true,
	})

	registry := prometheus.NewRegistry()
	s := &Server{
		config:  config,
		store:   newRoomStore(),
		metrics: newMetrics(registry),
		logger:  logger,
		app:     app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := app.Group("/v1/chat/room", s.observe, s.unavailable, s.requireClientID)
	v1.Post("/create/stream", s.handleCreateRoom)
	v1.Delete("/", s.handleDeleteRoom)
	v1.Get("/list", s.handleListRooms)
	v1.Get("/history", s.handleHistory)

	app.Post("/v2/chat", s.observe, s.unavailable, s.requireClientID, s.handleSendMessage)

	return s
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting mock chat backend",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
