package resampler

import (
	"iter"

	"github.com/zintix-labs/resamplab/sdk/weights"
)

// Stratified 將 [0,1) 切成 n 個等寬分層，第 i 層抽一次亂數 u_i，
// 目標位置為 (i+u_i)/n，再以累積和查找索引。
//
// 亂數依分層順序消耗，恰好 n 次；輸出幾乎排序但不保證嚴格非遞減。
type Stratified struct{}

func NewStratified() *Stratified { return &Stratified{} }

func (s *Stratified) Resample(w weights.Weights, src Source) iter.Seq[int] {
	return s.ResampleN(w, w.Len(), src)
}

func (s *Stratified) ResampleN(w weights.Weights, n int, src Source) iter.Seq[int] {
	return func(yield func(int) bool) {
		cs := w.CumSum()
		for i := range n {
			target := (float64(i) + float64(src())) / float64(n)
			if !yield(search(cs, float32(target))) {
				return
			}
		}
	}
}
