// Copyright (c) 2022 The webserv Authors
// Copyright (c) 2022 The rcproxy Authors
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

package core

import "github.com/prometheus/client_golang/prometheus"

// GlobalStats holds every metric the engine and the httpserv handler built
// on top of it update. Unlike a multi-backend proxy there is only ever one
// engine instance per process here, so a single package-level ServerStats
// (rather than a namespaced-per-instance value) is all that's needed.
var GlobalStats ServerStats

// ServerStats groups the Prometheus collectors this webserv exposes on its
// admin sidecar's /metrics endpoint.
type ServerStats struct {
	TotalConnections    *prometheus.CounterVec
	CurrConnections     *prometheus.GaugeVec
	RejectedConnections *prometheus.CounterVec

	RequestsTotal *prometheus.CounterVec
	RequestBytes  *prometheus.CounterVec

	CGIInvocations *prometheus.CounterVec
	CGIErrors      *prometheus.CounterVec

	UploadBytes *prometheus.CounterVec
}

func init() {
	GlobalStats = NewServerStats("webserv")
}

// NewServerStats builds and registers a fresh ServerStats under namespace.
// Every call registers its collectors with the default Prometheus registry,
// so a second call with the same namespace (e.g. "webserv", which
// GlobalStats already uses) panics.
func NewServerStats(namespace string) ServerStats {
	stats := ServerStats{
		TotalConnections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "total_connections",
			Help:      "total accepted connections since start",
		}, nil),
		CurrConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "curr_connections",
			Help:      "currently open connections",
		}, nil),
		RejectedConnections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_connections",
			Help:      "connections refused because the configured connection cap was reached",
		}, nil),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "requests served, by response status code",
		}, []string{"status"}),
		RequestBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_bytes_total",
			Help:      "request body bytes accepted by upload-enabled POST handling, by method",
		}, []string{"method"}),
		CGIInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cgi_invocations_total",
			Help:      "CGI scripts executed, by extension",
		}, []string{"ext"}),
		CGIErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cgi_errors_total",
			Help:      "CGI invocations that failed to start or ended in a non-zero exit",
		}, []string{"ext"}),
		UploadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "request body bytes of successful multipart and raw-body uploads",
		}, nil),
	}
	prometheus.MustRegister(
		stats.TotalConnections, stats.CurrConnections, stats.RejectedConnections,
		stats.RequestsTotal, stats.RequestBytes, stats.CGIInvocations, stats.CGIErrors,
		stats.UploadBytes,
	)
	return stats
}
