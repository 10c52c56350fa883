package resampler

import (
	"fmt"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zintix-labs/resamplab/sdk/core"
	"github.com/zintix-labs/resamplab/sdk/weights"
)

// randomWeights 產生 n 個正規化權重；約四分之一的粒子權重為 0
func randomWeights(n int, seed int64) (weights.Weights, error) {
	c := core.NewWithSeed(seed)
	raw := make([]float32, n)
	for i := range raw {
		if c.IntN(4) > 0 {
			raw[i] = c.Float32()
		}
	}
	raw[c.IntN(n)] += 1
	return weights.Normalize(raw)
}

func TestResamplerProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	reg := DefaultRegistry()

	sizes := gen.IntRange(1, 400)
	seeds := gen.Int64()

	properties.Property("every algorithm yields exactly N indices in [0,N)", prop.ForAll(
		func(n int, seed int64) string {
			w, err := randomWeights(n, seed)
			if err != nil {
				return err.Error()
			}
			for _, key := range reg.Keys() {
				r, err := reg.Build(key, Options{})
				if err != nil {
					return err.Error()
				}
				out := Generation(r, w, core.NewWithSeed(seed).Source())
				if len(out) != n {
					return fmt.Sprintf("%s: got %d indices want %d", key, len(out), n)
				}
				for _, idx := range out {
					if idx < 0 || idx >= n {
						return fmt.Sprintf("%s: index %d out of range", key, idx)
					}
				}
			}
			return ""
		},
		sizes, seeds,
	))

	properties.Property("systematic output is non-decreasing", prop.ForAll(
		func(n int, seed int64) string {
			w, err := randomWeights(n, seed)
			if err != nil {
				return err.Error()
			}
			out := Generation(NewSystematic(), w, core.NewWithSeed(seed).Source())
			if !slices.IsSorted(out) {
				return fmt.Sprintf("unsorted: %v", out)
			}
			return ""
		},
		sizes, seeds,
	))

	properties.Property("systematic counts stay within 1 of N*w", prop.ForAll(
		func(n int, seed int64) string {
			w, err := randomWeights(n, seed)
			if err != nil {
				return err.Error()
			}
			counts := make([]int, n)
			for _, idx := range Generation(NewSystematic(), w, core.NewWithSeed(seed).Source()) {
				counts[idx]++
			}
			for i, k := range counts {
				expect := float64(n) * float64(w.At(i))
				if d := float64(k) - expect; d <= -1.001 || d >= 1.001 {
					return fmt.Sprintf("particle %d: count %d expected %.4f", i, k, expect)
				}
			}
			return ""
		},
		sizes, seeds,
	))

	properties.Property("residual copies floor(N*w) deterministically", prop.ForAll(
		func(n int, seed int64) string {
			w, err := randomWeights(n, seed)
			if err != nil {
				return err.Error()
			}
			copies := Copies(w, n)
			total := 0
			for i, k := range copies {
				if want := int(float64(n) * float64(w.At(i))); k != want && total+want <= n {
					return fmt.Sprintf("particle %d: %d copies want %d", i, k, want)
				}
				total += k
			}
			out := Generation(NewResidual(), w, core.NewWithSeed(seed).Source())
			counts := make([]int, n)
			for _, idx := range out {
				counts[idx]++
			}
			for i, k := range copies {
				if counts[i] < k {
					return fmt.Sprintf("particle %d: output %d below deterministic %d", i, counts[i], k)
				}
			}
			if total > n || len(out) != n {
				return fmt.Sprintf("copies %d output %d n %d", total, len(out), n)
			}
			return ""
		},
		sizes, seeds,
	))

	properties.Property("multinomial and stratified draw N values, systematic one", prop.ForAll(
		func(n int, seed int64) string {
			w, err := randomWeights(n, seed)
			if err != nil {
				return err.Error()
			}
			for r, want := range map[Resampler]int{NewMultinomial(): n, NewStratified(): n, NewSystematic(): 1} {
				cnt := core.NewCounter(core.NewWithSeed(seed).Source())
				Generation(r, w, cnt.Source())
				if cnt.Count() != want {
					return fmt.Sprintf("%T drew %d want %d", r, cnt.Count(), want)
				}
			}
			return ""
		},
		sizes, seeds,
	))

	properties.Property("fixed script reproduces output", prop.ForAll(
		func(n int, seed int64) string {
			w, err := randomWeights(n, seed)
			if err != nil {
				return err.Error()
			}
			script := make([]float32, n)
			c := core.NewWithSeed(seed ^ 0x5eed)
			for i := range script {
				script[i] = c.Float32()
			}
			for _, key := range reg.Keys() {
				r, _ := reg.Build(key, Options{})
				a := Generation(r, w, core.Script(script...))
				b := Generation(r, w, core.Script(script...))
				if !slices.Equal(a, b) {
					return fmt.Sprintf("%s differs under identical script", key)
				}
			}
			return ""
		},
		sizes, seeds,
	))

	properties.TestingRun(t)
}
