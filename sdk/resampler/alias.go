package resampler

import (
	"iter"

	"github.com/zintix-labs/resamplab/sdk/weights"
)

// Alias 以 Vose alias table 抽樣，分佈與 Multinomial 相同。
//
// 建表 O(N)，每個輸出 O(1) 且只消耗一次亂數：x = u·N，槽位 floor(x)，
// 小數部分 x-floor(x) 決定取槽位本身或其別名。
type Alias struct{}

func NewAlias() *Alias { return &Alias{} }

func (a *Alias) Resample(w weights.Weights, src Source) iter.Seq[int] {
	return a.ResampleN(w, w.Len(), src)
}

func (a *Alias) ResampleN(w weights.Weights, n int, src Source) iter.Seq[int] {
	return func(yield func(int) bool) {
		at := buildAliasTable(w)
		for idx := range limit(n, func() int { return at.pick(src()) }) {
			if !yield(idx) {
				return
			}
		}
	}
}

// aliasTable 浮點版本的 alias table。
//
//   - prob[i]：槽位 i 保留自己的機率（已乘上 N）。
//   - aliases[i]：補足槽位 i 的別名索引。
type aliasTable struct {
	prob    []float64
	aliases []int
}

func buildAliasTable(w weights.Weights) *aliasTable {
	n := w.Len()
	prob := make([]float64, n)
	aliases := make([]int, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)

	for i, v := range w.All() {
		prob[i] = float64(v) * float64(n)
		aliases[i] = i
		if prob[i] < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		aliases[s] = l
		prob[l] = prob[l] + prob[s] - 1 // 維持 Σprob = N

		if prob[l] < 1 {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}
	// 剩下的槽位只差捨入誤差，視為滿槽
	for _, i := range large {
		prob[i] = 1
	}
	for _, i := range small {
		prob[i] = 1
	}
	return &aliasTable{prob: prob, aliases: aliases}
}

func (at *aliasTable) pick(u float32) int {
	n := len(at.prob)
	x := float64(u) * float64(n)
	b := int(x)
	if b >= n {
		b = n - 1
	}
	if x-float64(b) < at.prob[b] {
		return b
	}
	return at.aliases[b]
}
