package metrics

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "vellorun-backend"

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal        metric.Int64Counter
	HTTPRequestDuration      metric.Float64Histogram
	VisitsRecordedTotal      metric.Int64Counter
	XPAwardedTotal           metric.Int64Counter
	LevelUpsTotal            metric.Int64Counter
	SuggestionsShownTotal    metric.Int64Counter
	SuggestionActionsTotal   metric.Int64Counter
	RecommendationDuration   metric.Float64Histogram
	RecommendationErrorTotal metric.Int64Counter
	DBQueryErrorsTotal       metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments from the global MeterProvider once.
// Before a provider is installed the otel global delegates to a no-op meter,
// so calling Get from tests is safe.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter(meterName)
		m := &AppMetrics{}
		var errs []error

		counter := func(name, desc, unit string) metric.Int64Counter {
			c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
			if err != nil {
				errs = append(errs, err)
			}
			return c
		}
		histogram := func(name, desc string) metric.Float64Histogram {
			h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
			if err != nil {
				errs = append(errs, err)
			}
			return h
		}

		m.HTTPRequestsTotal = counter("http_requests_total", "Total number of HTTP requests completed", "{request}")
		m.HTTPRequestDuration = histogram("http_request_duration_seconds", "Duration of HTTP requests in seconds")
		m.VisitsRecordedTotal = counter("visits_recorded_total", "First time visits recorded", "{visit}")
		m.XPAwardedTotal = counter("xp_awarded_total", "Experience points awarded to users", "{xp}")
		m.LevelUpsTotal = counter("level_ups_total", "Level increases applied to users", "{level}")
		m.SuggestionsShownTotal = counter("suggestions_shown_total", "Suggestions returned by the single best read path", "{suggestion}")
		m.SuggestionActionsTotal = counter("suggestion_actions_total", "Dismiss and follow actions on suggestions", "{action}")
		m.RecommendationDuration = histogram("recommendation_duration_seconds", "Latency of external recommendation calls")
		m.RecommendationErrorTotal = counter("recommendation_errors_total", "Failed external recommendation calls", "{error}")
		m.DBQueryErrorsTotal = counter("db_query_errors_total", "Total number of database query errors", "{error}")

		for _, err := range errs {
			zap.L().Error("Metrics: failed to create instrument", zap.Error(err))
		}
		appMetrics = m
	})
}

// Get returns the instruments, creating them on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
