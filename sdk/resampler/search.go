package resampler

import (
	"fmt"
	"sort"

	"github.com/zintix-labs/resamplab/sdk/weights"
)

// search 回傳第一個 cs[i] >= u 的索引。
//
// u 大於最後一個累積和只可能來自尾端的浮點捨入，此時只要 cs[N-1] 在 Epsilon 內等於 1 就回傳 N-1；
// 否則代表權重根本沒有正規化，直接 panic。
func search(cs []float32, u float32) int {
	n := len(cs)
	i := sort.Search(n, func(i int) bool { return cs[i] >= u })
	if i < n {
		return i
	}
	if n > 0 && float64(cs[n-1]) >= 1-weights.Epsilon {
		return n - 1
	}
	panic(fmt.Sprintf("resampler: no cumulative sum >= %v (last=%v), weights are not normalized", u, last(cs)))
}

func last(cs []float32) float32 {
	if len(cs) == 0 {
		return 0
	}
	return cs[len(cs)-1]
}
