// Package telemetry wires Prometheus collectors and the OpenTelemetry tracer.
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/usecase"
)

const namespace = "medica"

// DomainMetrics counts one-time code and event bus activity.
type DomainMetrics struct {
	issued        *prometheus.CounterVec
	checked       *prometheus.CounterVec
	deliveryFails *prometheus.CounterVec
	eventDrops    *prometheus.CounterVec
}

// NewDomainMetrics registers the collectors with reg, reusing any that are already registered.
func NewDomainMetrics(reg prometheus.Registerer) (*DomainMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	var err error
	m := &DomainMetrics{}

	m.issued, err = registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "challenge",
		Name:      "issued_total",
		Help:      "One-time codes issued partitioned by purpose.",
	}, "purpose")
	if err != nil {
		return nil, err
	}

	m.checked, err = registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "challenge",
		Name:      "checked_total",
		Help:      "One-time code checks partitioned by purpose and outcome.",
	}, "purpose", "outcome")
	if err != nil {
		return nil, err
	}

	m.deliveryFails, err = registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mail",
		Name:      "delivery_failures_total",
		Help:      "Code emails the mail transport refused, partitioned by purpose.",
	}, "purpose")
	if err != nil {
		return nil, err
	}

	m.eventDrops, err = registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "dropped_total",
		Help:      "Domain events the broker rejected, partitioned by topic.",
	}, "topic")
	if err != nil {
		return nil, err
	}

	return m, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels ...string) (*prometheus.CounterVec, error) {
	vec := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(vec); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register %s collector: %w", opts.Name, err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("existing %s collector has unexpected type %T", opts.Name, already.ExistingCollector)
		}
		return existing, nil
	}
	return vec, nil
}

func (m *DomainMetrics) ChallengeIssued(purpose domain.ChallengePurpose) {
	m.issued.WithLabelValues(string(purpose)).Inc()
}

func (m *DomainMetrics) ChallengeChecked(purpose domain.ChallengePurpose, outcome string) {
	m.checked.WithLabelValues(string(purpose), outcome).Inc()
}

func (m *DomainMetrics) DeliveryFailed(purpose domain.ChallengePurpose) {
	m.deliveryFails.WithLabelValues(string(purpose)).Inc()
}

// EventDropped matches the kafka producer's drop callback.
func (m *DomainMetrics) EventDropped(topic string) {
	m.eventDrops.WithLabelValues(topic).Inc()
}

var _ usecase.ChallengeMetrics = (*DomainMetrics)(nil)
