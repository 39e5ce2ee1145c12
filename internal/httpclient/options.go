package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
)

type clientOptions struct {
	meterProvider       metric.MeterProvider
	providerName        string
	roundTripper        http.RoundTripper
	requestTimeout      time.Duration
	maxConnsPerHost     int
	maxIdleConnsPerHost int
	headers             map[string]string
}

// ClientOption configures New.
type ClientOption func(*clientOptions)

func newClientOptions(opts ...ClientOption) *clientOptions {
	o := &clientOptions{
		providerName:        "default",
		requestTimeout:      defaultRequestTimeout,
		maxConnsPerHost:     defaultMaxConnsPerHost,
		maxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithMeterProvider sets the OTEL meter provider.
func WithMeterProvider(mp metric.MeterProvider) ClientOption {
	return func(o *clientOptions) {
		o.meterProvider = mp
	}
}

// WithProviderName labels metrics and spans.
func WithProviderName(name string) ClientOption {
	return func(o *clientOptions) {
		if name != "" {
			o.providerName = name
		}
	}
}

// WithRoundTripper replaces the pooled transport, mostly for tests.
func WithRoundTripper(rt http.RoundTripper) ClientOption {
	return func(o *clientOptions) {
		o.roundTripper = rt
	}
}

// WithRequestTimeout bounds a whole request including the body read.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.requestTimeout = timeout
	}
}

// WithMaxConnsPerHost caps concurrent connections to the node.
func WithMaxConnsPerHost(n int) ClientOption {
	return func(o *clientOptions) {
		if n > 0 {
			o.maxConnsPerHost = n
			if o.maxIdleConnsPerHost > n {
				o.maxIdleConnsPerHost = n
			}
		}
	}
}

// WithHeaders sets headers added to every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *clientOptions) {
		o.headers = headers
	}
}
