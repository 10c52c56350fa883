// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zintix-labs/resamplab/errs"
)

const defaultNamespace = "resamplab"

// Prometheus 以 Prometheus 實作 Collector
type Prometheus struct {
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	resamples      *prometheus.CounterVec
	resampleDraws  *prometheus.CounterVec
	particles      prometheus.Histogram
	simGenerations *prometheus.CounterVec
	simLatency     prometheus.Histogram
}

var _ Collector = (*Prometheus)(nil)

// NewPrometheus 建立並註冊所有指標。
//   - reg 為 nil 時使用 prometheus.DefaultRegisterer
//   - namespace 為空時使用 "resamplab"
//
// 重複註冊（例如同一個 registry 建兩次）回傳 Fatal 錯誤。
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	p := &Prometheus{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds by route.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms .. ~4s
		}, []string{"route"}),
		resamples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resample",
			Name:      "generations_total",
			Help:      "Total single-generation resample requests served by algorithm.",
		}, []string{"algorithm"}),
		resampleDraws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resample",
			Name:      "draws_total",
			Help:      "Total uniform draws consumed by resample requests by algorithm.",
		}, []string{"algorithm"}),
		particles: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resample",
			Name:      "particles",
			Help:      "Particle count per resample request.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 9), // 1 .. 65536
		}),
		simGenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "generations_total",
			Help:      "Total generations simulated by algorithm.",
		}, []string{"algorithm"}),
		simLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "duration_seconds",
			Help:      "Simulation wall time in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 12), // 1ms .. ~60s
		}),
	}
	for _, c := range []prometheus.Collector{
		p.requests, p.requestLatency,
		p.resamples, p.resampleDraws, p.particles,
		p.simGenerations, p.simLatency,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errs.Wrap(err, "register prometheus collector failed")
		}
	}
	return p, nil
}

func (p *Prometheus) ObserveRequest(route string, method string, status int, d time.Duration) {
	p.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	p.requestLatency.WithLabelValues(route).Observe(d.Seconds())
}

func (p *Prometheus) ObserveResample(algorithm string, particles int, draws int) {
	p.resamples.WithLabelValues(algorithm).Inc()
	p.resampleDraws.WithLabelValues(algorithm).Add(float64(draws))
	p.particles.Observe(float64(particles))
}

func (p *Prometheus) ObserveSim(algorithm string, generations int, d time.Duration) {
	p.simGenerations.WithLabelValues(algorithm).Add(float64(generations))
	p.simLatency.Observe(d.Seconds())
}

// Handler 以 g 輸出 /metrics；g 為 nil 時使用 prometheus.DefaultGatherer
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
