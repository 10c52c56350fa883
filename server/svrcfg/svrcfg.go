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

package svrcfg

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zintix-labs/resamplab"
	"github.com/zintix-labs/resamplab/errs"
	"github.com/zintix-labs/resamplab/server/logger"
	"github.com/zintix-labs/resamplab/server/metrics"
	"github.com/zintix-labs/resamplab/server/netsvr/middleware"
)

const (
	DefaultPoolSize = 8
	MaxPoolSize     = 256

	// MetricsPath Prometheus 端點；promhttp 自行協商壓縮，預設不經過 Compression
	MetricsPath = "/metrics"
)

// SvrCfg server 需要的所有依賴，由外層明確注入。
type SvrCfg struct {
	Log       *slog.Logger
	PoolSize  int // 同時執行的重抽樣/模擬請求上限
	Resamplab *resamplab.Resamplab

	// LogHandler Log 的非同步 handler：關閉時排空，丟棄數回報在 /v1/health。
	// Log 本身就是 AsyncHandler 時 Vaild 會自動帶入。
	LogHandler *logger.AsyncHandler

	// Compress 回應壓縮；Skip 為 nil 時排除 MetricsPath
	Compress middleware.CompressConfig

	// Metrics 為 nil 時使用 metrics.Nop；Gatherer 不為 nil 時掛載 /metrics
	Metrics  metrics.Collector
	Gatherer prometheus.Gatherer

	rtOnce sync.Once
	rt     *resamplab.Runtime
	rtErr  error
}

func (sc *SvrCfg) Vaild() error {
	if sc.Log == nil {
		sc.Log, sc.LogHandler = logger.NewAsync(logger.ModeDev, 1024)
	} else if sc.LogHandler == nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok {
			sc.LogHandler = ah
		}
	}

	if sc.Compress.Skip == nil {
		sc.Compress.Skip = []string{MetricsPath}
	}

	// 1 <= sc.PoolSize <= MaxPoolSize
	if sc.PoolSize == 0 {
		sc.PoolSize = DefaultPoolSize
	}
	sc.PoolSize = max(1, sc.PoolSize)
	sc.PoolSize = min(MaxPoolSize, sc.PoolSize)

	if sc.Metrics == nil {
		sc.Metrics = metrics.NewNop()
	}
	if sc.Resamplab == nil {
		return errs.NewFatal("resamplab is required")
	}
	return nil
}

// Runtime 回傳所有 handler 共用的 Runtime（第一次呼叫時建立）
func (sc *SvrCfg) Runtime() (*resamplab.Runtime, error) {
	sc.rtOnce.Do(func() {
		if sc.Resamplab == nil {
			sc.rtErr = errs.NewFatal("resamplab is required")
			return
		}
		sc.rt, sc.rtErr = sc.Resamplab.NewRuntime(sc.PoolSize)
		if sc.rtErr == nil && sc.LogHandler != nil {
			sc.rt.SetLogDrops(sc.LogHandler.Dropped)
		}
	})
	return sc.rt, sc.rtErr
}
