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

// Package core 提供重抽樣 (resampling) 測試、基準與模擬所需的亂數來源。
//
// 重抽樣演算法本身不持有任何亂數產生器，只消費一個 func() float32；
// 本套件負責產生這個函數：
//   - Core.Source()：由可重現 (seeded) 的 PRNG 驅動。
//   - Script(...)：依序回傳預先寫好的數值，用完即 panic（faked RNG）。
package core

import (
	"fmt"
	"sort"

	"github.com/zintix-labs/resamplab/errs"
)

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
//
// Float64 的精度由 PRNG 自己決定（PCG64/MT19937 為 53-bit，PCG32 為 32-bit）。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

// PRNGFactory 以 seed 建立 PRNG。
//
// 合約：同一個實作、同一個版本下，New(seed) 必須是決定性的，
// 相同 seed 產生相同的初始狀態與輸出序列（重現 faked/seeded 測試與模擬結果的前提）。
type PRNGFactory interface {
	New(int64) PRNG
}

// FactoryFunc 讓一般函數滿足 PRNGFactory。
type FactoryFunc func(int64) PRNG

func (f FactoryFunc) New(seed int64) PRNG { return f(seed) }

const (
	PCG64   = "pcg64"
	PCG32   = "pcg32"
	MT19937 = "mt19937"
)

var factories = map[string]PRNGFactory{
	PCG64:   FactoryFunc(func(seed int64) PRNG { return newPCG64WithSeed(seed) }),
	PCG32:   FactoryFunc(func(seed int64) PRNG { return newPCG32WithSeed(seed) }),
	MT19937: FactoryFunc(func(seed int64) PRNG { return newMT19937WithSeed(seed) }),
}

// Default 回傳預設的 PCG64 工廠。
func Default() PRNGFactory {
	return factories[PCG64]
}

// Factory 依名稱取得 PRNG 工廠；空字串視為預設 (pcg64)。
func Factory(name string) (PRNGFactory, error) {
	if name == "" {
		return Default(), nil
	}
	f, ok := factories[name]
	if !ok {
		return nil, errs.NewWarn(fmt.Sprintf("unknown prng: %q (want one of %v)", name, FactoryNames()))
	}
	return f, nil
}

// FactoryNames 回傳已知的 PRNG 名稱（已排序）。
func FactoryNames() []string {
	names := make([]string, 0, len(factories))
	for k := range factories {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Core 封裝 PRNG，並提供重抽樣需要的取樣工具。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// NewWithSeed 以預設工廠與 seed 建立 Core。
func NewWithSeed(seed int64) *Core {
	return New(Default().New(seed))
}

// Float32 回傳 [0,1) 的 float32 亂數（24-bit 精度，永遠不會捨入成 1）。
func (c *Core) Float32() float32 {
	return float32(c.Uint64()>>40) / (1 << 24)
}

// Source 回傳綁定此 Core 的均勻亂數函數，可直接交給重抽樣演算法。
//
// Core 不是併發安全的：併發重抽樣時，每個呼叫端需要各自的 Core。
func (c *Core) Source() func() float32 {
	return c.Float32
}

// ShuffleInts 使用 Fisher-Yates 對 []int 就地重排。
//
// 重抽樣後的粒子順序由演算法決定（systematic 一定遞增），
// 需要打散順序的呼叫端可以在取得一整代索引後呼叫本方法。
func (c *Core) ShuffleInts(src []int) {
	if len(src) <= 1 {
		return
	}

	for i := len(src) - 1; i > 0; i-- {
		j := c.IntN(i + 1)
		src[i], src[j] = src[j], src[i]
	}
}
