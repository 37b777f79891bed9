package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "inventory_client"

// Metrics holds Prometheus metrics for outgoing requests.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
	Retries         *prometheus.CounterVec
}

// NewMetrics creates and registers client metrics on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of outgoing HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method", "status_code"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of outgoing HTTP requests.",
		}, []string{"service", "method", "status_code"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "replays_total",
			Help:      "Requests sent again by an interceptor (e.g. after a token refresh).",
		}, []string{"service", "method"}),
	}

	reg.MustRegister(m.RequestDuration, m.RequestsTotal, m.Retries)
	return m
}

type metricsStartKey struct{}

// Interceptors returns the pair that records metrics for one service. Register
// the response side after CommonResponse so failures carry a status code.
func (m *Metrics) Interceptors(service string) (RequestInterceptor, ResponseInterceptor) {
	req := RequestInterceptor{
		Name: "metrics",
		OnRequest: func(r *http.Request) (*http.Request, error) {
			ctx := context.WithValue(r.Context(), metricsStartKey{}, time.Now())
			return r.WithContext(ctx), nil
		},
	}

	observe := func(x *Exchange, status string) {
		method := x.Request().Method
		if start, ok := x.Context().Value(metricsStartKey{}).(time.Time); ok {
			m.RequestDuration.WithLabelValues(service, method, status).Observe(time.Since(start).Seconds())
		}
		m.RequestsTotal.WithLabelValues(service, method, status).Inc()
		if x.Attempt() > 0 {
			m.Retries.WithLabelValues(service, method).Inc()
		}
	}

	resp := ResponseInterceptor{
		Name: "metrics",
		OnResponse: func(x *Exchange, r *http.Response) (*http.Response, error) {
			observe(x, strconv.Itoa(r.StatusCode))
			return r, nil
		},
		OnError: func(x *Exchange, err error) (*http.Response, error) {
			status := "transport_error"
			var se *ServerError
			if errors.As(err, &se) {
				status = strconv.Itoa(se.StatusCode)
			}
			observe(x, status)
			return nil, err
		},
	}

	return req, resp
}
