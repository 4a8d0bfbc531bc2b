package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DeviceMetrics records latency and outcomes of device REST calls.
type DeviceMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewDeviceMetrics registers the device call metrics on the provided registerer.
func NewDeviceMetrics(reg prometheus.Registerer) *DeviceMetrics {
	if reg == nil {
		return &DeviceMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "device_call_duration_seconds",
		Help:    "Duration of RouterOS REST calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "device_call_success",
		Help: "Successful RouterOS REST calls.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "device_call_failure",
		Help: "Failed RouterOS REST calls.",
	}, []string{"operation"})
	reg.MustRegister(duration, success, failure)
	return &DeviceMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named operation.
func (d *DeviceMetrics) ObserveDuration(operation string, duration time.Duration) {
	if d == nil || d.duration == nil {
		return
	}
	d.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (d *DeviceMetrics) IncSuccess(operation string) {
	if d == nil || d.success == nil {
		return
	}
	d.success.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (d *DeviceMetrics) IncFailure(operation string) {
	if d == nil || d.failure == nil {
		return
	}
	d.failure.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(operation string) string {
	if operation == "" {
		return "unknown"
	}
	return operation
}
