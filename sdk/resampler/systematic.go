package resampler

import (
	"iter"
	"slices"

	"github.com/zintix-labs/resamplab/sdk/weights"
)

// Systematic 整次重抽樣只抽一個偏移量 u0，目標位置為 (u0+k)/n，k = 0..n-1。
//
// 累積和反轉成遞減的堆疊，目標位置單調遞增，游標只往前走，總成本 O(N)。
// 輸出索引保證非遞減，每個粒子的複製數與期望值相差小於 1。
type Systematic struct{}

func NewSystematic() *Systematic { return &Systematic{} }

func (s *Systematic) Resample(w weights.Weights, src Source) iter.Seq[int] {
	return s.ResampleN(w, w.Len(), src)
}

// ResampleN 產生 n 個索引，只消耗一次亂數（在開始走訪時）。
func (s *Systematic) ResampleN(w weights.Weights, n int, src Source) iter.Seq[int] {
	return func(yield func(int) bool) {
		if n <= 0 {
			return
		}
		cur := newSystematicCursor(w, n, src())
		for range n {
			if !yield(cur.next()) {
				return
			}
		}
	}
}

// systematicCursor 系統抽樣的狀態機。
//
// stack 的頂端（最後一個元素）是 index 對應的累積和；index 與 k 都只會遞增。
type systematicCursor struct {
	stack []float32
	index int
	k     int
	n     float64
	u0    float64
}

func newSystematicCursor(w weights.Weights, n int, u0 float32) *systematicCursor {
	stack := w.CumSum()
	slices.Reverse(stack)
	return &systematicCursor{
		stack: stack,
		n:     float64(n),
		u0:    float64(u0),
	}
}

func (c *systematicCursor) next() int {
	target := (c.u0 + float64(c.k)) / c.n
	// 最後一個粒子不出堆疊：尾端累積和因捨入略小於 1 時也不會越界
	for len(c.stack) > 1 && float64(c.stack[len(c.stack)-1]) < target {
		c.stack = c.stack[:len(c.stack)-1]
		c.index++
	}
	c.k++
	return c.index
}
