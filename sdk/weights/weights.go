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

// Package weights 定義已正規化的粒子權重向量。
//
// Weights 建構後不可變：長度固定、每個元素為 [0,1] 內的有限值、總和在 Epsilon 內等於 1。
// 所有重抽樣演算法只接受 Weights，並信任上述不變量，不會重複驗證。
//
// 建構方式：
//   - TryNew：輸入本身就應該是正規化的權重，驗證失敗回傳 ErrInvalidWeights。
//   - Normalize：任意非負權重，除以總和；總和為 0 時回傳 ErrDegenerateWeights（不會產生 NaN）。
//   - NewTrusted：跳過驗證，僅供已自行保證不變量的呼叫端（例如 residual 的餘數權重）。
package weights

import (
	"fmt"
	"iter"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/zintix-labs/resamplab/errs"
)

// Epsilon 總和與 1 的容許誤差（絕對值）
const Epsilon = 1e-5

var (
	// ErrInvalidWeights 元素不是有限值、不在 [0,1]，或總和偏離 1 超過 Epsilon
	ErrInvalidWeights = errs.NewWarn("invalid weights")
	// ErrDegenerateWeights 原始權重無法正規化（總和為 0、含負值或非有限值）
	ErrDegenerateWeights = errs.NewWarn("degenerate weights")
	// ErrShortSamples 樣本點數量少於粒子數
	ErrShortSamples = errs.NewWarn("not enough samples")
)

// Weights 不可變的正規化權重向量
type Weights struct {
	w []float32
}

// TryNew 驗證後建立 Weights；values 會被複製。
func TryNew(values []float32) (Weights, error) {
	if len(values) == 0 {
		return Weights{}, errs.WrapWithExtra(ErrInvalidWeights, "try new", "empty")
	}
	sum := 0.0
	for i, v := range values {
		if !finite(v) || v < 0 || v > 1 {
			return Weights{}, errs.WrapWithExtra(ErrInvalidWeights, "try new", fmt.Sprintf("w[%d]=%v", i, v))
		}
		sum += float64(v)
	}
	if math.Abs(sum-1) > Epsilon {
		return Weights{}, errs.WrapWithExtra(ErrInvalidWeights, "try new", fmt.Sprintf("sum=%v", sum))
	}
	return Weights{w: clone(values)}, nil
}

// Normalize 將非負的原始權重除以總和。
//
// 全部為 0 的權重是粒子濾波器實際會遇到的退化輸入（所有粒子似然度皆為 0），
// 這裡明確回傳 ErrDegenerateWeights，呼叫端可自行決定重新初始化族群。
func Normalize(raw []float32) (Weights, error) {
	if len(raw) == 0 {
		return Weights{}, errs.WrapWithExtra(ErrDegenerateWeights, "normalize", "empty")
	}
	sum := 0.0
	for i, v := range raw {
		if !finite(v) || v < 0 {
			return Weights{}, errs.WrapWithExtra(ErrDegenerateWeights, "normalize", fmt.Sprintf("w[%d]=%v", i, v))
		}
		sum += float64(v)
	}
	if sum == 0 || math.IsInf(sum, 0) {
		return Weights{}, errs.WrapWithExtra(ErrDegenerateWeights, "normalize", fmt.Sprintf("sum=%v", sum))
	}
	w := make([]float32, len(raw))
	for i, v := range raw {
		w[i] = float32(float64(v) / sum)
	}
	return Weights{w: w}, nil
}

// NewTrusted 不做任何驗證直接建立 Weights（不複製 values）。
//
// 前置條件：values 非空、元素有限且非負、總和在 Epsilon 內等於 1，且呼叫後不再修改 values。
// 違反前置條件時，下游演算法可能產生錯誤結果或在搜尋累積和時 panic。
func NewTrusted(values []float32) Weights {
	return Weights{w: values}
}

// Len 粒子數 N
func (w Weights) Len() int { return len(w.w) }

// At 第 i 個權重
func (w Weights) At(i int) float32 { return w.w[i] }

// Values 回傳權重副本
func (w Weights) Values() []float32 { return clone(w.w) }

// All 依序走訪 (index, weight)
func (w Weights) All() iter.Seq2[int, float32] {
	return func(yield func(int, float32) bool) {
		for i, v := range w.w {
			if !yield(i, v) {
				return
			}
		}
	}
}

// CumSum 回傳新的累積和陣列 cs[i] = Σ w[0..=i]，以 float64 累加後存成 float32。
func (w Weights) CumSum() []float32 {
	cs := make([]float32, len(w.w))
	acc := 0.0
	for i, v := range w.w {
		acc += float64(v)
		cs[i] = float32(acc)
	}
	return cs
}

// Vector 以 gonum 向量（float64 副本）呈現權重
func (w Weights) Vector() *mat.VecDense {
	data := make([]float64, len(w.w))
	for i, v := range w.w {
		data[i] = float64(v)
	}
	return mat.NewVecDense(len(data), data)
}

// ESS 有效樣本數 1/Σw²；均勻權重為 N，完全退化時為 1。
func (w Weights) ESS() float64 {
	if len(w.w) == 0 {
		return 0
	}
	v := w.Vector()
	sq := mat.Dot(v, v)
	if sq == 0 {
		return 0
	}
	return 1 / sq
}

func clone(src []float32) []float32 {
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}

func finite(x float32) bool {
	f := float64(x)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
