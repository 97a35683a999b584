// Package service runs the sidecar HTTP servers: healthz and prometheus
// metrics.
package service

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/perfwatch/fsload/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = "8080"

	MetricsHost = "0.0.0.0"
	MetricsPort = "7300"
)

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer
}

func New() *Service {
	s := &Service{
		Healthz: &HealthzServer{},
		Metrics: &MetricsServer{},
	}
	return s
}

func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("service starting")

	go func() {
		addr := net.JoinHostPort(HealthzHost, HealthzPort)
		log.Info().Str("addr", addr).Msg("starting healthz server")
		if err := s.Healthz.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("error starting healthz server")
			metrics.RecordErrorDetails("error starting healthz server", err)
		}
	}()

	go func() {
		addr := net.JoinHostPort(MetricsHost, MetricsPort)
		log.Info().Str("addr", addr).Msg("starting metrics server")
		if err := s.Metrics.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("error starting metrics server")
			metrics.RecordErrorDetails("error starting metrics server", err)
		}
	}()

	log.Info().Msg("service started")
}

func (s *Service) Shutdown() {
	log.Info().Msg("service shutting down")

	_ = s.Healthz.Shutdown()
	log.Info().Msg("healthz stopped")

	_ = s.Metrics.Shutdown()
	log.Info().Msg("metrics stopped")

	log.Info().Msg("service stopped")
}
