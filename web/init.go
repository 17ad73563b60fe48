// Copyright (c) 2022 The webserv Authors
//
// Licensed under the Apache License, Version 2.0 (the "License"): you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

// Package web is the optional admin sidecar: a small gin server exposing
// metrics, pprof, and the resolved configuration, independent of the
// origin-server connection engine in package core.
package web

import (
	"net/http"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"webserv/config"
)

// Init wires the admin sidecar's routes onto ginSrv: pprof profiling,
// Prometheus metrics (including the connection gauges core.GlobalStats
// maintains), and an introspection endpoint for the resolved config. The
// engine itself exposes no admin API of its own; everything here is an
// external collaborator process reading the same GlobalStats registry.
func Init(ginSrv *gin.Engine, cfg *config.Config) {
	pprof.Register(ginSrv)
	ginSrv.GET("/metrics", gin.WrapH(promhttp.Handler()))
	ginSrv.GET("/config", handleConfig(cfg))
}

func handleConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := cfg.DumpYAML()
		if err != nil {
			c.String(http.StatusInternalServerError, "failed to render config: %v", err)
			return
		}
		c.String(http.StatusOK, out)
	}
}
