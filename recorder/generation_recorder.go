package recorder

import (
	"fmt"
	"math"

	"github.com/zintix-labs/resamplab/errs"
	"github.com/zintix-labs/resamplab/sdk/weights"
	"github.com/zintix-labs/resamplab/stats"
)

// GenerationRecorder 世代紀錄員
//
// GenerationRecorder 累計每個世代的複製數，並透過 Done 輸出統計報表。
// 非執行緒安全：每個 worker 各自持有一個，最後以 MergeGenerationRecorder 合併。
type GenerationRecorder struct {
	Name      string
	Algorithm string
	Weights   []float32
	ESS       float64
	Basic     *BasicRecord
	Particle  *ParticleRecord
	Dist      *DistRecord
	counts    []int // 單一世代的暫存
}

// BasicRecord 基本世代資料紀錄
type BasicRecord struct {
	Generations    int
	Draws          int
	Sorted         int
	MaxDeviation   float64
	ZeroWeightHits int
}

// ParticleRecord 每個粒子的複製數累計
type ParticleRecord struct {
	Totals []int
	SqSums []int // 平方和
}

// DistRecord 複製數區間落點統計
type DistRecord struct {
	Bucket       *stats.CountBucket
	CountCollect []int
}

func NewGenerationRecorder(name string, algorithm string, w weights.Weights) (*GenerationRecorder, error) {
	r := new(GenerationRecorder)
	n := w.Len()
	if n == 0 {
		return r, errs.NewFatal("generation recorder: empty weights")
	}
	r.Name = name
	r.Algorithm = algorithm
	r.Weights = w.Values()
	r.ESS = w.ESS()
	r.Basic = new(BasicRecord)
	r.Particle = &ParticleRecord{
		Totals: make([]int, n),
		SqSums: make([]int, n),
	}
	r.Dist = &DistRecord{
		Bucket:       stats.CountBuckets,
		CountCollect: make([]int, stats.CountBuckets.Len()),
	}
	r.counts = make([]int, n)
	return r, nil
}

func MergeGenerationRecorder(rs []*GenerationRecorder) (*GenerationRecorder, error) {
	if len(rs) == 0 {
		return nil, errs.NewFatal("merge generation record err : no recorder")
	}
	r0 := rs[0]
	out, err := NewGenerationRecorder(r0.Name, r0.Algorithm, weights.NewTrusted(r0.Weights))
	if err != nil {
		return out, err
	}
	for _, v := range rs {
		if v.Algorithm != r0.Algorithm {
			return out, errs.NewFatal("merge generation record err : different algorithm")
		}
		if len(v.Weights) != len(r0.Weights) {
			return out, errs.NewFatal("merge generation record err : different particles")
		}
		for i, w := range v.Weights {
			if w != r0.Weights[i] {
				return out, errs.NewFatal(fmt.Sprintf("merge generation record err : weight %d differs", i))
			}
		}
		out.Basic.Generations += v.Basic.Generations
		out.Basic.Draws += v.Basic.Draws
		out.Basic.Sorted += v.Basic.Sorted
		out.Basic.ZeroWeightHits += v.Basic.ZeroWeightHits
		out.Basic.MaxDeviation = max(out.Basic.MaxDeviation, v.Basic.MaxDeviation)

		for i := range v.Particle.Totals {
			out.Particle.Totals[i] += v.Particle.Totals[i]
			out.Particle.SqSums[i] += v.Particle.SqSums[i]
		}
		for i := range v.Dist.CountCollect {
			out.Dist.CountCollect[i] += v.Dist.CountCollect[i]
		}
	}
	return out, nil
}

// Record 紀錄一個世代：indices 為重抽樣輸出，draws 為該世代消耗的亂數次數。
// indices 越界時 panic（重抽樣演算法的合約保證索引在 [0,N)）。
func (r *GenerationRecorder) Record(indices []int, draws int) {
	n := len(r.Weights)
	clear(r.counts)
	sorted := true
	for k, idx := range indices {
		r.counts[idx]++
		if k > 0 && idx < indices[k-1] {
			sorted = false
		}
	}
	if sorted {
		r.Basic.Sorted++
	}

	p := r.Particle
	for i, c := range r.counts {
		p.Totals[i] += c
		p.SqSums[i] += c * c
		r.Dist.CountCollect[r.Dist.Bucket.Index(c)]++

		w := r.Weights[i]
		if w == 0 {
			r.Basic.ZeroWeightHits += c
		}
		if d := math.Abs(float64(c) - float64(n)*float64(w)); d > r.Basic.MaxDeviation {
			r.Basic.MaxDeviation = d
		}
	}
	r.Basic.Generations++
	r.Basic.Draws += draws
}

func (r *GenerationRecorder) Done() *stats.Report {
	n := len(r.Weights)
	ps := make([]stats.ParticleReport, n)
	for i, w := range r.Weights {
		ps[i] = stats.ParticleReport{
			Index:    i,
			Weight:   w,
			Expected: float64(n) * float64(w),
			Total:    r.Particle.Totals[i],
			SqSum:    r.Particle.SqSums[i],
		}
	}
	collect := make([]int, len(r.Dist.CountCollect))
	copy(collect, r.Dist.CountCollect)

	report := &stats.Report{
		Summary: &stats.SummaryReport{
			Name:           r.Name,
			Algorithm:      r.Algorithm,
			Particles:      n,
			Generations:    r.Basic.Generations,
			Draws:          r.Basic.Draws,
			ESS:            r.ESS,
			Sorted:         r.Basic.Sorted,
			MaxDeviation:   r.Basic.MaxDeviation,
			ZeroWeightHits: r.Basic.ZeroWeightHits,
		},
		Particles: ps,
		Dist: &stats.DistReport{
			CountBucket:  r.Dist.Bucket.Labels(),
			CountCollect: collect,
		},
	}
	report.Done()
	return report
}
