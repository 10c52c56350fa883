package recorder

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zintix-labs/resamplab/sdk/core"
	"github.com/zintix-labs/resamplab/sdk/resampler"
	"github.com/zintix-labs/resamplab/sdk/weights"
)

func newRecorder(t *testing.T, algo string, vals ...float32) *GenerationRecorder {
	t.Helper()
	w, err := weights.Normalize(vals)
	require.NoError(t, err)
	r, err := NewGenerationRecorder("test", algo, w)
	require.NoError(t, err)
	return r
}

func TestRecord(t *testing.T) {
	r := newRecorder(t, "systematic", 3, 1, 1, 3)

	r.Record([]int{0, 0, 2, 3}, 1)
	r.Record([]int{3, 0, 1, 3}, 1)

	require.Equal(t, 2, r.Basic.Generations)
	require.Equal(t, 2, r.Basic.Draws)
	require.Equal(t, 1, r.Basic.Sorted)
	require.Equal(t, []int{3, 1, 1, 3}, r.Particle.Totals)
	require.Equal(t, []int{5, 1, 1, 5}, r.Particle.SqSums)
	// 第一代 particle 3 只有 1 份，期望 1.5
	require.InDelta(t, 0.5, r.Basic.MaxDeviation, 1e-9)

	rep := r.Done()
	require.Equal(t, 4, rep.Summary.Particles)
	require.Equal(t, 0.5, rep.Summary.SortedRatio)
	require.InDelta(t, 1.5, rep.Particles[0].Mean, 1e-12)
	require.InDelta(t, 0.0, rep.Summary.ChiSquare, 1e-12)
}

func TestZeroWeightHits(t *testing.T) {
	r := newRecorder(t, "multinomial", 0, 1)
	r.Record([]int{0, 1}, 2)
	require.Equal(t, 1, r.Basic.ZeroWeightHits)
}

func TestMerge(t *testing.T) {
	a := newRecorder(t, "stratified", 1, 1)
	b := newRecorder(t, "stratified", 1, 1)
	a.Record([]int{0, 1}, 2)
	b.Record([]int{0, 0}, 2)
	b.Record([]int{1, 1}, 2)

	m, err := MergeGenerationRecorder([]*GenerationRecorder{a, b})
	require.NoError(t, err)
	require.Equal(t, 3, m.Basic.Generations)
	require.Equal(t, 6, m.Basic.Draws)
	require.Equal(t, []int{3, 3}, m.Particle.Totals)
	require.InDelta(t, 1.0, m.Basic.MaxDeviation, 1e-12)

	c := newRecorder(t, "systematic", 1, 1)
	_, err = MergeGenerationRecorder([]*GenerationRecorder{a, c})
	require.Error(t, err)

	d := newRecorder(t, "stratified", 1, 3)
	_, err = MergeGenerationRecorder([]*GenerationRecorder{a, d})
	require.Error(t, err)

	_, err = MergeGenerationRecorder(nil)
	require.Error(t, err)
}

func TestRecorderWithResampler(t *testing.T) {
	w, err := weights.Normalize([]float32{5, 1, 2, 7, 3, 0, 4})
	require.NoError(t, err)
	r, err := NewGenerationRecorder("sys", resampler.KeySystematic, w)
	require.NoError(t, err)

	c := core.NewWithSeed(3)
	for range 500 {
		cnt := core.NewCounter(c.Source())
		r.Record(resampler.Generation(resampler.NewSystematic(), w, cnt.Source()), cnt.Count())
	}
	rep := r.Done()
	require.Equal(t, 1.0, rep.Summary.SortedRatio)
	require.Equal(t, 1.0, rep.Summary.DrawsPerGen)
	require.Less(t, rep.Summary.MaxDeviation, 1.0)
	require.Equal(t, 0, rep.Summary.ZeroWeightHits)
}

func TestTraceRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	tw, err := NewTraceWriter(&buf)
	require.NoError(t, err)

	gens := []*TraceGeneration{
		{Worker: 0, Trial: 0, Draws: 1, Indices: []int{0, 0, 2, 3}},
		{Worker: 1, Trial: 1, Draws: 4, Indices: []int{3, 1, 1, 0}},
	}
	for _, g := range gens {
		require.NoError(t, tw.WriteGeneration(g))
	}
	require.NoError(t, tw.Close())

	tr, err := NewTraceReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer tr.Close()
	for _, want := range gens {
		got, err := tr.Next()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err = tr.Next()
	require.True(t, errors.Is(err, io.EOF))
}
