// Package panel serves the display surface and the operator actions over
// HTTP, with a websocket stream of live display updates.
package panel

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"oracle-panel/internal/display"
	"oracle-panel/internal/session"
)

// Options configure the panel server.
type Options struct {
	Addr            string
	Manager         *session.Manager
	Board           *display.Board
	Metrics         http.Handler
	ShutdownTimeout time.Duration
	Logger          zerolog.Logger
}

// Server is the HTTP face of the run command.
type Server struct {
	web         *http.Server
	manager     *session.Manager
	board       *display.Board
	metrics     http.Handler
	keeper      *keeper
	unsubscribe func()
	shutdown    time.Duration
	logger      zerolog.Logger
}

// New builds a server and subscribes it to board updates.
func New(opts Options) *Server {
	logger := opts.Logger.With().Str("component", "panel").Logger()
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{
		manager:  opts.Manager,
		board:    opts.Board,
		metrics:  opts.Metrics,
		keeper:   newKeeper(0, logger),
		shutdown: opts.ShutdownTimeout,
		logger:   logger,
	}
	s.web = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.unsubscribe = opts.Board.Subscribe(s.keeper.push)
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router()
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = s.keeper.run(ctx)
	}()

	closed := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.web.Addr).Msg("panel listening")
		closed <- s.web.ListenAndServe()
	}()

	select {
	case err := <-closed:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), s.shutdown)
		defer done()
		if err := s.web.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("panel shutdown")
		}
		return ctx.Err()
	}
}
