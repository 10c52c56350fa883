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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zintix-labs/resamplab"
	"github.com/zintix-labs/resamplab/server"
	"github.com/zintix-labs/resamplab/server/logger"
	"github.com/zintix-labs/resamplab/server/metrics"
	"github.com/zintix-labs/resamplab/server/netsvr/middleware"
	"github.com/zintix-labs/resamplab/server/svrcfg"
)

// lab server 入口：/v1 重抽樣 API，metrics=true 時另掛 /metrics。
func main() {
	sCfg, addr, err := loadConfigFromFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	server.Run(sCfg, addr)
}

type config struct {
	Addr     string
	LogMode  string
	PoolSize int
	Metrics  bool
	Compress bool
}

func loadConfigFromFlags() (*svrcfg.SvrCfg, string, error) {
	cfg := new(config)
	flag.StringVar(&cfg.Addr, "addr", "", "listen address (default :5808)")
	flag.StringVar(&cfg.LogMode, "log-mode", "dev", "log mode: dev|prod|silence")
	flag.IntVar(&cfg.PoolSize, "pool", svrcfg.DefaultPoolSize, "max concurrent resample/sim requests")
	flag.BoolVar(&cfg.Metrics, "metrics", true, "expose prometheus metrics on /metrics")
	flag.BoolVar(&cfg.Compress, "compress", true, "zstd/gzip compress responses by Accept-Encoding")

	flag.Parse()

	mode, err := logger.ParseLogMode(cfg.LogMode)
	if err != nil {
		return nil, "", err
	}
	log, ah := logger.NewAsync(mode, 4096)

	lab, err := resamplab.NewDefault()
	if err != nil {
		return nil, "", err
	}
	lab.SetLogger(log)

	sCfg := &svrcfg.SvrCfg{
		Log:        log,
		LogHandler: ah,
		PoolSize:   cfg.PoolSize,
		Resamplab:  lab,
		Compress:   middleware.DefaultCompressConfig(),
	}
	sCfg.Compress.Disabled = !cfg.Compress
	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		p, err := metrics.NewPrometheus(reg, "")
		if err != nil {
			return nil, "", err
		}
		sCfg.Metrics = p
		sCfg.Gatherer = reg
	}
	return sCfg, cfg.Addr, nil
}
