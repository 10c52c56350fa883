package resampler

import (
	"iter"
	"math"

	"github.com/zintix-labs/resamplab/sdk/weights"
)

// Residual 殘差重抽樣。
//
// 期望複製數 e_i = n·w_i 的整數部分 floor(e_i) 依索引遞增直接輸出（不消耗亂數），
// 小數部分重新正規化後，剩下的 R = n - Σfloor(e_i) 個索引交給委派演算法。
//
// 委派演算法照常產生 N 個索引的序列，只取前 R 個：stratified/systematic 的分層仍以 N 切分，
// 惰性抽樣的委派只消耗前 R 個索引需要的亂數。
// 以 WithCountedFraction 指定的委派改為以 ResampleN 直接要求 R 個索引（分層切在 R 上）。
// R = 0 時完全不消耗亂數。
type Residual struct {
	fraction Resampler
	counted  bool
}

// ResidualOption 調整 Residual
type ResidualOption func(*Residual)

// WithFraction 指定小數部分的委派演算法（預設 Multinomial），輸出截斷為 R 個
func WithFraction(r Resampler) ResidualOption {
	return func(rs *Residual) {
		if r != nil {
			rs.fraction = r
			rs.counted = false
		}
	}
}

// WithCountedFraction 指定小數部分的委派演算法，並以 ResampleN 直接要求 R 個索引
func WithCountedFraction(r CountResampler) ResidualOption {
	return func(rs *Residual) {
		if r != nil {
			rs.fraction = r
			rs.counted = true
		}
	}
}

func NewResidual(opts ...ResidualOption) *Residual {
	r := &Residual{fraction: NewMultinomial()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fraction 回傳目前的委派演算法
func (r *Residual) Fraction() Resampler { return r.fraction }

// Counted 回報委派演算法是否以 ResampleN 只產生 R 個索引
func (r *Residual) Counted() bool { return r.counted }

func (r *Residual) Resample(w weights.Weights, src Source) iter.Seq[int] {
	return r.ResampleN(w, w.Len(), src)
}

func (r *Residual) ResampleN(w weights.Weights, n int, src Source) iter.Seq[int] {
	return func(yield func(int) bool) {
		if n <= 0 {
			return
		}
		copies, fracs := split(w, n)
		emitted := 0
		for i, c := range copies {
			for range c {
				if !yield(i) {
					return
				}
				emitted++
			}
		}
		rest := n - emitted
		if rest == 0 {
			return
		}
		fw, err := weights.Normalize(fracs)
		if err != nil {
			// 小數部分全為 0 但 R > 0 只會來自捨入誤差，改用原始權重
			fw = w
		}
		for idx := range r.delegate(fw, rest, src) {
			if !yield(idx) {
				return
			}
		}
	}
}

func (r *Residual) delegate(w weights.Weights, rest int, src Source) iter.Seq[int] {
	if cr, ok := r.fraction.(CountResampler); ok && r.counted {
		return cr.ResampleN(w, rest, src)
	}
	return func(yield func(int) bool) {
		got := 0
		for idx := range r.fraction.Resample(w, src) {
			if !yield(idx) {
				return
			}
			got++
			if got == rest {
				return
			}
		}
	}
}

// Copies 回傳每個粒子的確定性複製數 floor(n·w_i)，總和不超過 n。
func Copies(w weights.Weights, n int) []int {
	copies, _ := split(w, n)
	return copies
}

func split(w weights.Weights, n int) ([]int, []float32) {
	copies := make([]int, w.Len())
	fracs := make([]float32, w.Len())
	total := 0
	for i, v := range w.All() {
		e := float64(n) * float64(v)
		fl := math.Floor(e)
		c := int(fl)
		if total+c > n {
			c = n - total
		}
		copies[i] = c
		total += c
		fracs[i] = float32(e - fl)
	}
	return copies, fracs
}
