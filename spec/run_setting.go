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

// Package spec 定義重抽樣模擬 (run) 的設定檔結構與基本檢查。
//
// 本套件只描述「要跑什麼」：演算法名稱、粒子數、權重來源、PRNG 與輸出；
// 演算法名稱是否存在由 resampler.Registry 在組裝時決定。
package spec

import (
	"math"

	"github.com/zintix-labs/resamplab/errs"
)

const (
	// MaxParticles 單一世代的粒子數上限（float32 累積和在此規模內仍可分辨 1/N）
	MaxParticles = 1 << 24
	// MaxWorkers 模擬器的併發上限
	MaxWorkers = 256

	DefaultAlgorithm = "multinomial"
	DefaultParticles = 1000
)

// RunSetting 一次重抽樣模擬的完整設定
//
// 權重來源二擇一：
//   - Weights：直接給定權重（Normalize=true 時會先正規化，否則必須已正規化）。
//   - Density + Range：在 Range 內均勻抽 Particles 個樣本點，以密度值作為權重後正規化。
type RunSetting struct {
	Name      string         `yaml:"name"      json:"name"`
	Algorithm string         `yaml:"algorithm" json:"algorithm"`
	Fraction  string         `yaml:"fraction"  json:"fraction"` // residual 餘數部分使用的演算法，空字串為 multinomial
	Particles int            `yaml:"particles" json:"particles"`
	Trials    int            `yaml:"trials"    json:"trials"`  // 重抽樣的世代數
	Workers   int            `yaml:"workers"   json:"workers"` // 併發數
	Seed      int64          `yaml:"seed"      json:"seed"`    // <= 0 代表由 crypto/rand 產生
	PRNG      string         `yaml:"prng"      json:"prng"`
	Density   DensitySetting `yaml:"density"   json:"density"`
	Range     [2]float32     `yaml:"range"     json:"range"`
	Weights   []float32      `yaml:"weights"   json:"weights"`
	Normalize bool           `yaml:"normalize" json:"normalize"`
	Trace     TraceSetting   `yaml:"trace"     json:"trace"`
}

// TraceSetting 世代輸出紀錄（zstd 壓縮）
type TraceSetting struct {
	Path string `yaml:"path" json:"path"`
}

// Init 補預設值並執行基本檢查；載入函數會自動呼叫，手動組裝的設定需自行呼叫。
func (rs *RunSetting) Init() error {
	if rs.Algorithm == "" {
		rs.Algorithm = DefaultAlgorithm
	}
	if rs.Trials == 0 {
		rs.Trials = 1
	}
	if rs.Workers == 0 {
		rs.Workers = 1
	}
	if len(rs.Weights) > 0 {
		if rs.Particles == 0 {
			rs.Particles = len(rs.Weights)
		}
	} else {
		if rs.Particles == 0 {
			rs.Particles = DefaultParticles
		}
		if err := rs.Density.init(); err != nil {
			return err
		}
		if rs.Range == [2]float32{} {
			rs.Range = rs.Density.defaultRange()
		}
	}
	return rs.valid()
}

// UseWeights 回傳是否以明確權重（而非密度）建構
func (rs *RunSetting) UseWeights() bool {
	return len(rs.Weights) > 0
}

func (rs *RunSetting) valid() error {
	if rs.Particles < 1 || rs.Particles > MaxParticles {
		return errs.Warnf("run setting: particles must be in [1,%d], got %d", MaxParticles, rs.Particles)
	}
	if rs.UseWeights() && len(rs.Weights) != rs.Particles {
		return errs.Warnf("run setting: particles=%d but %d weights given", rs.Particles, len(rs.Weights))
	}
	if rs.Trials < 1 {
		return errs.Warnf("run setting: trials must > 0, got %d", rs.Trials)
	}
	if rs.Workers < 1 || rs.Workers > MaxWorkers {
		return errs.Warnf("run setting: workers must be in [1,%d], got %d", MaxWorkers, rs.Workers)
	}
	if !rs.UseWeights() {
		lo, hi := float64(rs.Range[0]), float64(rs.Range[1])
		if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) || lo >= hi {
			return errs.Warnf("run setting: invalid range [%v,%v)", rs.Range[0], rs.Range[1])
		}
	}
	return nil
}
