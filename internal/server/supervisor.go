package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/joeblew999/plat-iftar/internal/eventsink"
	"github.com/joeblew999/plat-iftar/internal/logging"
	"github.com/joeblew999/plat-iftar/internal/session"
)

const shutdownTimeout = 10 * time.Second

// httpService runs an http.Server as a suture.Service.
type httpService struct {
	server *http.Server
}

// Serve implements suture.Service. http.ErrServerClosed is not a failure.
func (h *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *httpService) String() string { return "http-server" }

// Supervisor builds the service tree: the HTTP server, the session
// janitor and, with brokers configured, the Kafka event forwarder.
func (s *Server) Supervisor() *suture.Supervisor {
	log := logging.With("supervisor")
	root := suture.New("plat-iftar", suture.Spec{
		EventHook: func(e suture.Event) {
			log.Warn().Fields(e.Map()).Msg(e.String())
		},
		Timeout: shutdownTimeout,
	})

	root.Add(&httpService{server: &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port)),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		// no WriteTimeout: the map stream is long-lived
		IdleTimeout: 2 * time.Minute,
	}})
	root.Add(session.NewJanitor(s.sessions, 0))

	if brokers := s.cfg.Events.KafkaBrokers; len(brokers) > 0 {
		root.Add(eventsink.NewForwarder(s.locations.Bus(), eventsink.NewKafkaWriter(brokers, s.cfg.Events.KafkaTopic)))
		log.Info().Strs("brokers", brokers).Str("topic", s.cfg.Events.KafkaTopic).Msg("event export enabled")
	}
	return root
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	logging.Info().Str("url", s.baseURL).Msg("plat-iftar starting")
	err := s.Supervisor().Serve(ctx)
	if ctx.Err() != nil {
		logging.Info().Msg("plat-iftar stopped")
		return nil
	}
	return err
}
