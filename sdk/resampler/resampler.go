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

// Package resampler 實作粒子濾波器的重抽樣步驟。
//
// 所有演算法都滿足 Resampler：輸入已正規化的 weights.Weights 與均勻亂數來源 Source，
// 回傳惰性的索引序列（iter.Seq[int]），每個索引都在 [0,N)。
//
// 演算法一覽：
//   - Multinomial：每個輸出抽一次亂數做反 CDF 查找，N 次亂數，變異最大。
//   - Systematic：整次只抽一個偏移量，等距步進，輸出保證非遞減，變異最小。
//   - Stratified：每個分層抽一次亂數，N 次亂數，變異介於兩者之間。
//   - Residual：整數部分直接複製，小數部分交給可替換的委派演算法（預設 Multinomial）。
//   - Alias：Vose alias table，分佈與 Multinomial 相同但每次抽樣 O(1)。
//
// 亂數呼叫的次數與順序只由演算法與 N 決定，因此以固定腳本（core.Script）即可完全重現輸出。
// 序列在開始走訪時才抽亂數；同一個序列走訪兩次會再消耗一輪亂數。
//
// 權重不會重新驗證：以 weights.NewTrusted 建立的不合法權重可能讓累積和查找 panic。
package resampler

import (
	"fmt"
	"iter"

	"github.com/zintix-labs/resamplab/sdk/weights"
)

// Source 均勻亂數來源，每次呼叫回傳 [0,1) 內的一個值。
// Source 有狀態且非執行緒安全，併發的重抽樣必須各自持有一個 Source。
type Source func() float32

// Resampler 重抽樣能力：回傳至少 N 個索引的惰性序列，呼叫端取前 N 個（見 Take）。
type Resampler interface {
	Resample(w weights.Weights, src Source) iter.Seq[int]
}

// CountResampler 可以直接產生指定數量（n 個）索引的 Resampler。
// Residual 以 WithCountedFraction 指定時，讓分層類的委派演算法把分層切在餘數的數量上。
type CountResampler interface {
	Resampler
	ResampleN(w weights.Weights, n int, src Source) iter.Seq[int]
}

// Take 取序列的前 n 個索引；序列不足 n 個時 panic（違反 Resampler 的合約）。
func Take(seq iter.Seq[int], n int) []int {
	out := make([]int, 0, n)
	if n <= 0 {
		return out
	}
	for idx := range seq {
		out = append(out, idx)
		if len(out) == n {
			return out
		}
	}
	panic(fmt.Sprintf("resampler: sequence yielded %d of %d indices", len(out), n))
}

// Generation 執行一次完整的重抽樣，回傳長度為 N 的新世代索引。
func Generation(r Resampler, w weights.Weights, src Source) []int {
	return Take(r.Resample(w, src), w.Len())
}

// Apply 依索引複製粒子，產生新的（等權重）族群。
func Apply[T any](particles []T, indices []int) []T {
	out := make([]T, len(indices))
	for i, idx := range indices {
		out[i] = particles[idx]
	}
	return out
}

// limit 呼叫 next 恰好 n 次（呼叫端提早停止時就不再呼叫）
func limit(n int, next func() int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for range n {
			if !yield(next()) {
				return
			}
		}
	}
}
