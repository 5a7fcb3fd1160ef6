package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/observability/metrics"
	"github.com/aayushkdev/vellorun-backend/internal/app/observability/tracer"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/config"
)

// ObservabilityShutdownFunc is the function type returned by InitObservability
type ObservabilityShutdownFunc func(context.Context) error

// InitObservability installs the OpenTelemetry providers and creates the
// application instruments against them.
func InitObservability(cfg config.ObservabilityConfig, logger *zap.Logger) (ObservabilityShutdownFunc, error) {
	otelShutdown, err := tracer.InitOtelProviders(cfg.ServiceName, cfg.OTELEndpoint, cfg.MetricsAddr, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics.InitAppMetrics()
	logger.Info("Observability initialized", zap.String("metrics_endpoint", cfg.MetricsAddr+"/metrics"))

	return otelShutdown, nil
}
