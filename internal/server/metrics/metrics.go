// Package metrics exposes prometheus collectors for PIN verification and
// the message lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PIN attempt results.
const (
	PinAccepted  = "accepted"
	PinRejected  = "rejected"
	PinThrottled = "throttled"
	PinMalformed = "malformed"
)

// Message lifecycle events.
const (
	MessageRead          = "read"
	MessageRemovedOnRead = "removed_on_read"
	MessageDeleted       = "deleted"
	MessagesDeletedAll   = "deleted_all"
	MessageSent          = "sent"
	MessageStoreFailure  = "store_failure"
)

// Recorder is what services report to.
type Recorder interface {
	PinAttempt(result string)
	MessageEvent(event string)
	SecretsCleared(reason string, n int)
}

// Metrics is a Recorder backed by its own prometheus registry.
type Metrics struct {
	registry       *prometheus.Registry
	pinAttempts    *prometheus.CounterVec
	messageEvents  *prometheus.CounterVec
	secretsCleared *prometheus.CounterVec
}

// New creates the collectors and registers them together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pinAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pinmail",
			Name:      "pin_attempts_total",
			Help:      "PIN verification attempts by result.",
		}, []string{"result"}),
		messageEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pinmail",
			Name:      "message_events_total",
			Help:      "Message lifecycle transitions.",
		}, []string{"event"}),
		secretsCleared: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pinmail",
			Name:      "unlock_passwords_cleared_total",
			Help:      "Cached unlock passwords dropped, by reason.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		m.pinAttempts,
		m.messageEvents,
		m.secretsCleared,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) PinAttempt(result string) {
	m.pinAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) MessageEvent(event string) {
	m.messageEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) SecretsCleared(reason string, n int) {
	if n > 0 {
		m.secretsCleared.WithLabelValues(reason).Add(float64(n))
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests and for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

type nop struct{}

func (nop) PinAttempt(string)          {}
func (nop) MessageEvent(string)        {}
func (nop) SecretsCleared(string, int) {}

// Nop returns a Recorder that discards everything.
func Nop() Recorder {
	return nop{}
}
