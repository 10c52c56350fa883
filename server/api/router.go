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

package api

import (
	"github.com/zintix-labs/resamplab/server/api/index"
	v1 "github.com/zintix-labs/resamplab/server/api/v1"
	"github.com/zintix-labs/resamplab/server/metrics"
	"github.com/zintix-labs/resamplab/server/netsvr"
	"github.com/zintix-labs/resamplab/server/netsvr/middleware"
	"github.com/zintix-labs/resamplab/server/svrcfg"
)

// RegisterRoutes 註冊；sCfg 必須已通過 Vaild()
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg)   // 1. 註冊 middleware
	registerIndex(svr)              // 2. 註冊主頁
	registerMetrics(svr, sCfg)      // 3. 指標
	return registerV1API(svr, sCfg) // 4. 註冊 v1 api
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(sCfg.Log))
	svr.Use(middleware.Metrics(sCfg.Metrics))
	svr.Use(middleware.Recover(sCfg.Log))
	svr.Use(middleware.Compression(sCfg.Compress))
}

// 註冊主頁
func registerIndex(svr netsvr.NetSvr) {
	svr.Get("/", index.IndexHandlerFn)
}

// promhttp 自己處理壓縮，MetricsPath 預設在 Compress.Skip 內
func registerMetrics(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) {
	if sCfg.Gatherer == nil {
		return
	}
	svr.Handle(svrcfg.MetricsPath, metrics.Handler(sCfg.Gatherer))
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	r, err := v1.NewResampleHandler(sCfg)
	if err != nil {
		return err
	}
	s, err := v1.NewSimHandler(sCfg)
	if err != nil {
		return err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/algorithms", r.Algorithms)
		vOne.Get("/health", r.Health)

		vOne.Get("/resample", r.Resample)
		vOne.Get("/sim", s.Sim)

		vOne.Post("/resample", r.Resample)
		vOne.Post("/sim", s.Sim)
		vOne.Post("/stat", v1.Stat)
	})
	return nil
}
