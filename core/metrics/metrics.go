// Package metrics exposes the bot's Prometheus collectors and the /metrics
// listener. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "contentbot"

// Metrics groups the collectors shared by the runtime and the engine.
type Metrics struct {
	updates        *prometheus.CounterVec
	updateDuration *prometheus.HistogramVec
	sends          *prometheus.CounterVec
	sendRetries    *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	deliveries     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telegram updates handled, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		updateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Time spent handling one update.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_calls_total",
			Help:      "Outbound Telegram API calls, by action and outcome.",
		}, []string{"action", "outcome"}),
		sendRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_retries_total",
			Help:      "Retried outbound Telegram API calls.",
		}, []string{"action"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Conversation state transitions, by target state.",
		}, []string{"state"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submissions forwarded to moderation, by content type.",
		}, []string{"content_type"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_decisions_total",
			Help:      "Moderation decisions, by status.",
		}, []string{"status"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_deliveries_total",
			Help:      "Fan-out deliveries, by purpose and outcome.",
		}, []string{"purpose", "outcome"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.updates, m.updateDuration, m.sends, m.sendRetries,
		m.transitions, m.submissions, m.decisions, m.deliveries,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveUpdate records one handled update.
func (m *Metrics) ObserveUpdate(kind, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind, outcome).Inc()
	m.updateDuration.WithLabelValues(kind).Observe(took.Seconds())
}

// ObserveSend records the final outcome of an outbound call.
func (m *Metrics) ObserveSend(action, outcome string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(action, outcome).Inc()
}

// ObserveRetry records one retry of an outbound call.
func (m *Metrics) ObserveRetry(action string) {
	if m == nil {
		return
	}
	m.sendRetries.WithLabelValues(action).Inc()
}

// ObserveTransition records a state change.
func (m *Metrics) ObserveTransition(state string) {
	if m == nil {
		return
	}
	if state == "" {
		state = "idle"
	}
	m.transitions.WithLabelValues(state).Inc()
}

// ObserveSubmission records a forwarded submission.
func (m *Metrics) ObserveSubmission(contentType string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(contentType).Inc()
}

// ObserveDecision records a moderation decision.
func (m *Metrics) ObserveDecision(status string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(status).Inc()
}

// ObserveDelivery records one fan-out delivery attempt.
func (m *Metrics) ObserveDelivery(purpose string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "fail"
	}
	m.deliveries.WithLabelValues(purpose, outcome).Inc()
}
