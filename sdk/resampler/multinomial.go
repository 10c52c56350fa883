package resampler

import (
	"iter"

	"github.com/zintix-labs/resamplab/sdk/weights"
)

// Multinomial 獨立的反 CDF 抽樣：每個輸出抽一次亂數 u，取第一個累積和 >= u 的索引。
type Multinomial struct{}

func NewMultinomial() *Multinomial { return &Multinomial{} }

func (m *Multinomial) Resample(w weights.Weights, src Source) iter.Seq[int] {
	return m.ResampleN(w, w.Len(), src)
}

// ResampleN 產生 n 個索引，恰好消耗 n 次亂數。
func (m *Multinomial) ResampleN(w weights.Weights, n int, src Source) iter.Seq[int] {
	return func(yield func(int) bool) {
		cs := w.CumSum()
		for idx := range limit(n, func() int { return search(cs, src()) }) {
			if !yield(idx) {
				return
			}
		}
	}
}
