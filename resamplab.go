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

// Package resamplab 提供重抽樣實驗室的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// Resamplab 把兩個必需的地基組裝在一起：
//  1. resampler.Registry：演算法註冊表，定義「名稱 -> 如何建出 Resampler」。
//  2. PRNGFactory：亂數核心工廠，保證可重現（reproducible）與可審計（auditable）。
//
// 之上提供三種用法：
//   - Resample：單一世代的重抽樣（HTTP 服務使用），回傳索引與 PRNG 前後快照。
//   - Simulator：依 spec.RunSetting 重複跑多個世代並產出統計報表（CLI / HTTP sim 使用）。
//   - Runtime：帶併發上限與關閉狀態的服務端入口。
//
// 演算法本身（Weights / Resampler）在 sdk 內，不依賴本套件，可直接單獨使用。
package resamplab

import (
	"crypto/rand"
	"log/slog"
	"math"
	"math/big"

	"github.com/zintix-labs/resamplab/errs"
	"github.com/zintix-labs/resamplab/sdk/core"
	"github.com/zintix-labs/resamplab/sdk/resampler"
	"github.com/zintix-labs/resamplab/spec"
)

// Registries 用來把一或多個演算法註冊表打包成 New() 需要的參數。
//
// New() 會把多個 registries 合併成單一 registry；若出現重複名稱，會以 error 直接失敗（避免行為不確定）。
func Registries(regs ...*resampler.Registry) []*resampler.Registry {
	return regs
}

// Resamplab 是組裝器：持有合併後的演算法註冊表與預設 PRNG 工廠。
//
// 組裝完成後不應再變更 registry；需要新演算法請建立新的 Resamplab。
//
//	lab, _ := resamplab.New(core.Default(), resamplab.Registries(resampler.DefaultRegistry()))
//	sim, _ := lab.NewSimulator(rs)
//	report, used, _ := sim.SimMP(true)
type Resamplab struct {
	reg *resampler.Registry
	cf  core.PRNGFactory
	log *slog.Logger
}

// New 建立一個 Resamplab instance。
//
// 參數要求：
//   - cf 不能為 nil：沒有 RNG 工廠就無法建立可重現的核心。
//   - regs 至少一個：沒有演算法就沒有東西可以跑。
func New(cf core.PRNGFactory, regs []*resampler.Registry) (*Resamplab, error) {
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	if len(regs) == 0 {
		return nil, errs.NewFatal("resampler registry required")
	}
	reg, err := resampler.MergeRegistry(regs...)
	if err != nil {
		return nil, err
	}
	if len(reg.Keys()) == 0 {
		return nil, errs.NewFatal("resampler registry is empty")
	}
	return &Resamplab{
		reg: reg,
		cf:  cf,
		log: slog.New(slog.DiscardHandler),
	}, nil
}

// NewDefault 以預設 PCG64 工廠與內建演算法建立 Resamplab。
func NewDefault() (*Resamplab, error) {
	return New(core.Default(), Registries(resampler.DefaultRegistry()))
}

// SetLogger 設定模擬器與 runtime 使用的 logger；nil 代表安靜。
func (l *Resamplab) SetLogger(log *slog.Logger) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	l.log = log
}

func (l *Resamplab) Logger() *slog.Logger {
	return l.log
}

// Algorithms 已註冊的演算法名稱（排序後）
func (l *Resamplab) Algorithms() []string {
	return l.reg.Keys()
}

// Build 依名稱建構演算法；fraction 只對 residual 有意義。
func (l *Resamplab) Build(algorithm string, fraction string) (resampler.Resampler, error) {
	if algorithm == "" {
		algorithm = spec.DefaultAlgorithm
	}
	return l.reg.Build(algorithm, resampler.Options{Fraction: fraction})
}

// Factory 依名稱取得 PRNG 工廠；空字串為組裝時給定的工廠。
func (l *Resamplab) Factory(name string) (core.PRNGFactory, error) {
	if name == "" {
		return l.cf, nil
	}
	return core.Factory(name)
}

// NewSimulator 依設定建立模擬器，seed <= 0 時由 crypto/rand 產生。
//
// 設定檔必須已呼叫過 Init()（spec 的載入函數會自動呼叫）。
func (l *Resamplab) NewSimulator(rs *spec.RunSetting) (*Simulator, error) {
	if rs == nil {
		return nil, errs.NewFatal("run setting required")
	}
	seed := rs.Seed
	if seed <= 0 {
		var err error
		if seed, err = cryptoSeed(); err != nil {
			return nil, err
		}
	}
	return l.NewSimulatorWithSeed(rs, seed)
}

// NewSimulatorWithSeed 與 NewSimulator 相同，但由呼叫端指定初始 seed（忽略設定檔的 seed）。
//
// 同一份 RunSetting + 同一個 seed + 同樣的 workers，模擬結果完全一致。
func (l *Resamplab) NewSimulatorWithSeed(rs *spec.RunSetting, seed int64) (*Simulator, error) {
	if rs == nil {
		return nil, errs.NewFatal("run setting required")
	}
	r, err := l.Build(rs.Algorithm, rs.Fraction)
	if err != nil {
		return nil, err
	}
	cf, err := l.Factory(rs.PRNG)
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(rs, r, cf, seed, l.log)
}

func cryptoSeed() (int64, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	return seed.Int64(), nil
}
