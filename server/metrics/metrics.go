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

// Package metrics 定義服務端的觀測介面。
//
// 預設使用 Nop（全部丟棄）；需要 Prometheus 時以 NewPrometheus 注入，並把 Handler 掛在 /metrics。
package metrics

import "time"

// Collector 服務端的觀測點
type Collector interface {
	// ObserveRequest 一個 HTTP 請求結束（route 為路由樣板，例如 /v1/resample）
	ObserveRequest(route string, method string, status int, d time.Duration)
	// ObserveResample 一次成功的單世代重抽樣
	ObserveResample(algorithm string, particles int, draws int)
	// ObserveSim 一次成功的模擬
	ObserveSim(algorithm string, generations int, d time.Duration)
}

// Nop 丟棄所有觀測值
type Nop struct{}

var _ Collector = (*Nop)(nil)

func NewNop() *Nop {
	return &Nop{}
}

func (n *Nop) ObserveRequest(_ string, _ string, _ int, _ time.Duration) {}

func (n *Nop) ObserveResample(_ string, _ int, _ int) {}

func (n *Nop) ObserveSim(_ string, _ int, _ time.Duration) {}
