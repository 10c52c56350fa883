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

package weights

import (
	"fmt"
	"iter"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/zintix-labs/resamplab/errs"
	"github.com/zintix-labs/resamplab/sdk/density"
)

// FromSamplesAndDensity 以前 n 個樣本點的密度值作為權重並正規化。
// 樣本點不足 n 個時回傳 ErrShortSamples。
func FromSamplesAndDensity(n int, xs iter.Seq[float32], d density.Density) (Weights, error) {
	if n < 1 {
		return Weights{}, errs.WrapWithExtra(ErrShortSamples, "from samples", fmt.Sprintf("n=%d", n))
	}
	raw := make([]float32, 0, n)
	for x := range xs {
		raw = append(raw, d.Eval(x))
		if len(raw) == n {
			break
		}
	}
	if len(raw) < n {
		return Weights{}, errs.WrapWithExtra(ErrShortSamples, "from samples", fmt.Sprintf("want %d got %d", n, len(raw)))
	}
	return Normalize(raw)
}

// FromRangeAndDensity 在 [lo,hi) 內均勻抽 n 個樣本點，再交給 FromSamplesAndDensity。
//
// 多數密度在 [lo,hi) 之外不為 0，因此區間要涵蓋主要質量（例如常態取 μ±3σ）。
func FromRangeAndDensity(n int, lo, hi float32, d density.Density, src rand.Source) (Weights, error) {
	if !finite(lo) || !finite(hi) || lo >= hi {
		return Weights{}, errs.WrapWithExtra(ErrShortSamples, "from range", fmt.Sprintf("invalid range [%v,%v)", lo, hi))
	}
	u := distuv.Uniform{Min: float64(lo), Max: float64(hi), Src: src}
	xs := func(yield func(float32) bool) {
		for range n {
			if !yield(float32(u.Rand())) {
				return
			}
		}
	}
	return FromSamplesAndDensity(n, xs, d)
}
