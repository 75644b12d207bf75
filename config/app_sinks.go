package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/akeren/waitlist-landing/internal/log"
	"github.com/akeren/waitlist-landing/pkg/circuitbreaker"
	"github.com/akeren/waitlist-landing/pkg/retry"
	"github.com/akeren/waitlist-landing/pkg/rowsink"
	"github.com/akeren/waitlist-landing/pkg/utils"
)

type SinkConfig struct {
	WebhookURL     string
	WebhookMethod  string
	WebhookTimeout time.Duration
	KafkaBrokers   []string
	KafkaTopic     string
	QueueSize      int
	Workers        int
}

func NewSinkConfig() *SinkConfig {
	return &SinkConfig{
		WebhookURL:     sanitizeEnv(utils.GetEnvTrimmed("SHEET_WEBHOOK_URL")),
		WebhookMethod:  strings.ToUpper(utils.GetEnvTrimmedOrDefault("SHEET_WEBHOOK_METHOD", http.MethodGet)),
		WebhookTimeout: utils.GetEnvDuration("SHEET_WEBHOOK_TIMEOUT", 10*time.Second),
		KafkaBrokers:   utils.GetEnvList("KAFKA_BROKERS"),
		KafkaTopic:     utils.GetEnvTrimmedOrDefault("KAFKA_TOPIC", "waitlist.signups"),
		QueueSize:      utils.GetEnvPositiveInt("SINK_QUEUE_SIZE", 256),
		Workers:        utils.GetEnvPositiveInt("SINK_WORKERS", 2),
	}
}

// NewSinks builds every configured sink. No configuration means no sinks.
func (sc *SinkConfig) NewSinks(logger *log.Logger, metrics *rowsink.Metrics) ([]rowsink.Sink, error) {
	var sinks []rowsink.Sink

	if sc.WebhookURL != "" {
		breaker := &circuitbreaker.Config{
			Name:             "webhook",
			FailureThreshold: 5,
			SuccessThreshold: 1,
			RecoveryTimeout:  30 * time.Second,
			OnStateChange: func(name string, from, to circuitbreaker.CircuitState) {
				logger.Warn("Sink circuit state changed", "sink", name, "from", from.String(), "to", to.String())
				metrics.ObserveBreaker(name, from, to)
			},
		}

		webhook, err := rowsink.NewWebhookSink(rowsink.WebhookConfig{
			URL:        sc.WebhookURL,
			Method:     sc.WebhookMethod,
			HTTPClient: &http.Client{Timeout: sc.WebhookTimeout},
			Retry:      retry.DefaultConfig(),
			Breaker:    breaker,
		})
		if err != nil {
			return nil, fmt.Errorf("configure webhook sink: %w", err)
		}
		sinks = append(sinks, webhook)
		logger.Info("Webhook sink enabled", "method", sc.WebhookMethod)
	}

	if len(sc.KafkaBrokers) > 0 {
		kafkaSink, err := rowsink.NewKafkaSink(sc.KafkaBrokers, sc.KafkaTopic)
		if err != nil {
			return nil, fmt.Errorf("configure kafka sink: %w", err)
		}
		sinks = append(sinks, kafkaSink)
		logger.Info("Kafka sink enabled", "brokers", strings.Join(sc.KafkaBrokers, ","), "topic", sc.KafkaTopic)
	}

	if len(sinks) == 0 {
		logger.Info("No row sinks configured; signups are stored in the database only")
	}

	return sinks, nil
}

func (sc *SinkConfig) NewDispatcher(logger *log.Logger, metrics *rowsink.Metrics, sinks []rowsink.Sink) *rowsink.Dispatcher {
	return rowsink.NewDispatcher(rowsink.DispatcherConfig{
		QueueSize: sc.QueueSize,
		Workers:   sc.Workers,
		Logger:    logger.WithComponent("rowsink"),
		Metrics:   metrics,
	}, sinks...)
}
