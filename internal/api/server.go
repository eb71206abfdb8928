package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/user/rank-tracker/internal/usecase"
	"github.com/user/rank-tracker/pkg/config"
	"go.uber.org/zap"
)

// Pinger reports reachability of a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	recorder   usecase.Recorder
	gate       *usecase.Gate
	trigger    *usecase.ManualTrigger
	traffic    *usecase.TrafficSimulator
	pgStore    Pinger
	redisStore Pinger
	logger     *zap.Logger
}

// NewServer wires the delivery layer around the usecases.
func NewServer(
	cfg *config.Config,
	rec usecase.Recorder,
	gate *usecase.Gate,
	trigger *usecase.ManualTrigger,
	traffic *usecase.TrafficSimulator,
	pg Pinger,
	rd Pinger,
	logger *zap.Logger,
) *Server {
	s := &Server{
		config:     cfg,
		recorder:   rec,
		gate:       gate,
		trigger:    trigger,
		traffic:    traffic,
		pgStore:    pg,
		redisStore: rd,
		logger:     logger,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the assembled router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
