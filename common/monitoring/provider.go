/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package monitoring

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/hyperledger/fabric-lib-go/common/metrics"
	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promgo "github.com/prometheus/client_model/go"
	"golang.org/x/sync/errgroup"
)

// Namespace prefixes every metric of the dagpool nodes.
const Namespace = "dagpool"

const metricsSubPath = "/metrics"

// Provider is a prometheus backed metrics.Provider with its own registry.
type Provider struct {
	logger   types.Logger
	registry *prometheus.Registry
}

var _ metrics.Provider = (*Provider)(nil)

func NewProvider(logger types.Logger) *Provider {
	return &Provider{logger: logger, registry: prometheus.NewRegistry()}
}

// StartPrometheusServer serves the registry on listener until ctx is cancelled.
func (p *Provider) StartPrometheusServer(ctx context.Context, listener net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle(metricsSubPath, promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry}))
	server := &http.Server{
		ReadTimeout: 30 * time.Second,
		Handler:     handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(mux),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.logger.Infof("Prometheus serving on %s%s", listener.Addr(), metricsSubPath)
		defer p.logger.Infof("Prometheus stopped serving")
		return server.Serve(listener)
	})
	g.Go(func() error {
		<-gCtx.Done()
		return server.Close()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "prometheus server stopped with an error")
	}
	return nil
}

func (p *Provider) NewCounter(o metrics.CounterOpts) metrics.Counter {
	c := &Counter{
		cv: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace(o.Namespace),
				Subsystem: o.Subsystem,
				Name:      o.Name,
				Help:      o.Help,
			},
			o.LabelNames,
		),
	}
	if len(o.LabelNames) == 0 {
		c.Counter = c.cv.WithLabelValues()
	}

	p.registry.MustRegister(c.cv)
	return c
}

func (p *Provider) NewGauge(o metrics.GaugeOpts) metrics.Gauge {
	g := &Gauge{
		gv: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace(o.Namespace),
				Subsystem: o.Subsystem,
				Name:      o.Name,
				Help:      o.Help,
			},
			o.LabelNames,
		),
	}
	if len(o.LabelNames) == 0 {
		g.Gauge = g.gv.WithLabelValues()
	}

	p.registry.MustRegister(g.gv)
	return g
}

func (p *Provider) NewHistogram(o metrics.HistogramOpts) metrics.Histogram {
	h := &Histogram{
		hv: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace(o.Namespace),
				Subsystem: o.Subsystem,
				Name:      o.Name,
				Help:      o.Help,
				Buckets:   o.Buckets,
			},
			o.LabelNames,
		),
	}
	if len(o.LabelNames) == 0 {
		h.Histogram = h.hv.WithLabelValues().(prometheus.Histogram)
	}

	p.registry.MustRegister(h.hv)
	return h
}

func namespace(ns string) string {
	if ns == "" {
		return Namespace
	}
	return ns
}

// labels turns name, value pairs into prometheus labels, as metrics.Counter.With expects.
func labels(pairs ...string) prometheus.Labels {
	l := prometheus.Labels{}
	for i := 0; i+1 < len(pairs); i += 2 {
		l[pairs[i]] = pairs[i+1]
	}
	return l
}

type Counter struct {
	prometheus.Counter
	cv *prometheus.CounterVec
}

func (c *Counter) With(labelValues ...string) metrics.Counter {
	return &Counter{Counter: c.cv.With(labels(labelValues...)), cv: c.cv}
}

type Gauge struct {
	prometheus.Gauge
	gv *prometheus.GaugeVec
}

func (g *Gauge) With(labelValues ...string) metrics.Gauge {
	return &Gauge{Gauge: g.gv.With(labels(labelValues...)), gv: g.gv}
}

type Histogram struct {
	prometheus.Histogram
	hv *prometheus.HistogramVec
}

func (h *Histogram) With(labelValues ...string) metrics.Histogram {
	return &Histogram{Histogram: h.hv.With(labels(labelValues...)).(prometheus.Histogram), hv: h.hv}
}

// GetMetricValue reads the current value of a counter, gauge or histogram (its sample sum).
func GetMetricValue(m prometheus.Metric, logger types.Logger) float64 {
	gm := promgo.Metric{}
	if err := m.Write(&gm); err != nil {
		logger.Warnf("Failed reading metric: %v", err)
		return 0
	}

	switch {
	case gm.Gauge != nil:
		return gm.Gauge.GetValue()
	case gm.Counter != nil:
		return gm.Counter.GetValue()
	case gm.Histogram != nil:
		return gm.Histogram.GetSampleSum()
	default:
		logger.Warnf("Unsupported metric")
		return 0
	}
}

// CounterValue reads a metrics.Counter created by a Provider.
func CounterValue(c metrics.Counter, logger types.Logger) float64 {
	pc, ok := c.(*Counter)
	if !ok || pc.Counter == nil {
		return 0
	}
	return GetMetricValue(pc.Counter, logger)
}
