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

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"webserv/config"
	"webserv/core"
	"webserv/core/pkg/logging"
	"webserv/httpserv"
	"webserv/web"
)

var (
	configPath = flag.String("c", "", "Path to the configuration file")
	version    = flag.Bool("v", false, "Show version")
	help       = flag.Bool("h", false, "Show usage info")
)

var (
	CommitSHA string
	Tag       string
	BuildTime string
)

func init() {
	if len(Tag) < 1 {
		Tag = "unknown"
	}
	if len(CommitSHA) < 1 {
		CommitSHA = "unknown"
	}
	if len(BuildTime) < 1 {
		BuildTime = "unknown"
	}
}

const banner string = `
           _
 __      _____| |__  ___  ___ _ ____   __
 \ \ /\ / / _ \ '_ \/ __|/ _ \ '__\ \ / /
  \ V  V /  __/ |_) \__ \  __/ |   \ V /
   \_/\_/ \___|_.__/|___/\___|_|    \_/

`

func parseCli() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s -c <config file> [positional config file]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if *version {
		fmt.Printf("version: %s\ncommit: %s\ntime: %s\n", Tag, CommitSHA, BuildTime)
		os.Exit(0)
	}
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if *configPath == "" {
		if args := flag.Args(); len(args) > 0 {
			*configPath = args[0]
		}
	}
	if *configPath == "" {
		flag.Usage()
		os.Exit(2)
	}
}

func main() {
	parseCli()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err = logging.InitializeLogger(
		logging.WithPath(cfg.LogPath),
		logging.WithExpireDay(cfg.LogExpireDay),
		logging.WithLogLevel(cfg.LogLevel),
	); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(banner)
	fmt.Printf("webserv version: %s, pid: %d\n", Tag, os.Getpid())
	logging.Infof("webserv starting, version: %s, pid: %d, config: %s", Tag, os.Getpid(), *configPath)

	if cfg.AdminPort > 0 {
		gin.SetMode(gin.ReleaseMode)
		ginSrv := gin.New()
		web.Init(ginSrv, cfg)
		addr := fmt.Sprintf(":%d", cfg.AdminPort)
		adminSrv := &http.Server{Handler: ginSrv, Addr: addr}
		go func() {
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Errorf("admin sidecar failed: %s", err)
			}
		}()
		logging.Infof("admin sidecar listening on %s", addr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Infof("received signal %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := core.Stop(ctx); err != nil {
			logging.Errorf("graceful shutdown failed: %s", err)
		}
	}()

	handler := httpserv.NewHandler()
	if err = core.Run(handler, cfg.Servers); err != nil {
		logging.Errorf("webserv run failed: %s", err)
		os.Exit(1)
	}

	logging.Infof("webserv shutdown, pid: %d", os.Getpid())
}
