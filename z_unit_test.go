package resamplab

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zintix-labs/resamplab/dto"
	"github.com/zintix-labs/resamplab/errs"
	"github.com/zintix-labs/resamplab/recorder"
	"github.com/zintix-labs/resamplab/sdk/core"
	"github.com/zintix-labs/resamplab/sdk/resampler"
	"github.com/zintix-labs/resamplab/sdk/weights"
	"github.com/zintix-labs/resamplab/spec"
)

func newLab(t *testing.T) *Resamplab {
	t.Helper()
	lab, err := NewDefault()
	require.NoError(t, err)
	return lab
}

func mustWeights(t *testing.T, v []float32) weights.Weights {
	t.Helper()
	w, err := weights.TryNew(v)
	require.NoError(t, err)
	return w
}

func newRunSetting(t *testing.T, rs spec.RunSetting) *spec.RunSetting {
	t.Helper()
	require.NoError(t, rs.Init())
	return &rs
}

func TestNew(t *testing.T) {
	_, err := New(nil, Registries(resampler.DefaultRegistry()))
	require.Equal(t, errs.Fatal, errs.Level(err))

	_, err = New(core.Default(), nil)
	require.Error(t, err)

	_, err = New(core.Default(), Registries(resampler.NewRegistry()))
	require.Error(t, err)

	_, err = New(core.Default(), Registries(resampler.DefaultRegistry(), resampler.DefaultRegistry()))
	require.Error(t, err)

	lab := newLab(t)
	require.Equal(t, resampler.DefaultRegistry().Keys(), lab.Algorithms())

	r, err := lab.Build("", "")
	require.NoError(t, err)
	require.IsType(t, &resampler.Multinomial{}, r)

	_, err = lab.Factory("bogus")
	require.Equal(t, errs.Warn, errs.Level(err))
}

func TestSimulatorReproducible(t *testing.T) {
	lab := newLab(t)
	rs := newRunSetting(t, spec.RunSetting{
		Name:      "repro",
		Algorithm: resampler.KeySystematic,
		Weights:   []float32{3, 1, 1, 3},
		Normalize: true,
		Trials:    201,
		Workers:   4,
	})

	sim, err := lab.NewSimulatorWithSeed(rs, 7)
	require.NoError(t, err)
	a, _, err := sim.SimMP(false)
	require.NoError(t, err)
	b, _, err := sim.SimMP(false)
	require.NoError(t, err)

	require.Equal(t, 201, a.Summary.Generations)
	require.Equal(t, 201, a.Summary.Draws)
	require.Equal(t, a.Particles, b.Particles)
	require.Equal(t, 1.0, a.Summary.SortedRatio)
	require.Less(t, a.Summary.MaxDeviation, 1.0)

	single, _, err := sim.Sim(false)
	require.NoError(t, err)
	require.Equal(t, 201, single.Summary.Generations)
	total := 0
	for _, p := range single.Particles {
		total += p.Total
	}
	require.Equal(t, 201*4, total)
}

func TestSimulatorDensityWeights(t *testing.T) {
	lab := newLab(t)
	rs := newRunSetting(t, spec.RunSetting{
		Name:      "gauss",
		Algorithm: resampler.KeyResidual,
		Fraction:  resampler.KeyStratified,
		Particles: 64,
		Trials:    20,
		Workers:   2,
		Seed:      11,
	})

	sim, err := lab.NewSimulator(rs)
	require.NoError(t, err)
	require.Equal(t, int64(11), sim.Seed())
	require.Equal(t, 64, sim.Weights().Len())

	rep, _, err := sim.SimMP(false)
	require.NoError(t, err)
	require.Equal(t, 64, rep.Summary.Particles)
	require.Equal(t, 0, rep.Summary.ZeroWeightHits)

	again, err := lab.NewSimulator(rs)
	require.NoError(t, err)
	require.Equal(t, sim.Weights().Values(), again.Weights().Values())
}

func TestSimulatorRejects(t *testing.T) {
	lab := newLab(t)
	rs := newRunSetting(t, spec.RunSetting{Algorithm: "bogus", Weights: []float32{1}})
	_, err := lab.NewSimulatorWithSeed(rs, 1)
	require.Equal(t, errs.Warn, errs.Level(err))

	rs = newRunSetting(t, spec.RunSetting{Weights: []float32{0.5, 0.4}})
	_, err = lab.NewSimulatorWithSeed(rs, 1)
	require.Error(t, err)

	_, err = lab.NewSimulator(nil)
	require.Error(t, err)
}

func TestSimulatorTrace(t *testing.T) {
	lab := newLab(t)
	rs := newRunSetting(t, spec.RunSetting{
		Algorithm: resampler.KeyMultinomial,
		Weights:   []float32{0.5, 0.5},
		Trials:    10,
		Workers:   3,
	})
	sim, err := lab.NewSimulatorWithSeed(rs, 3)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, sim.SetTrace(&buf))
	rep, _, err := sim.SimMP(false)
	require.NoError(t, err)

	tr, err := recorder.NewTraceReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer tr.Close()
	gens, draws := 0, 0
	for {
		g, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		require.Len(t, g.Indices, 2)
		gens++
		draws += g.Draws
	}
	require.Equal(t, 10, gens)
	require.Equal(t, rep.Summary.Draws, draws)
}

func TestResampleSeeded(t *testing.T) {
	lab := newLab(t)
	req := &dto.ResampleRequest{
		Algorithm: resampler.KeyStratified,
		Weights:   []float32{0.1, 0.2, 0.3, 0.4},
		Seed:      42,
	}
	a, err := lab.Resample(req)
	require.NoError(t, err)
	b, err := lab.Resample(req)
	require.NoError(t, err)

	require.Equal(t, a.Indices, b.Indices)
	require.Equal(t, 4, a.Particles)
	require.Equal(t, 4, a.Draws)
	require.Equal(t, int64(42), a.State.Seed)
	require.NotEqual(t, a.State.StartB64U, a.State.AfterB64U)
}

func TestResampleShuffle(t *testing.T) {
	lab := newLab(t)
	w := []float32{0.1, 0.2, 0.3, 0.4}
	plain, err := lab.Resample(&dto.ResampleRequest{Algorithm: resampler.KeySystematic, Weights: w, Seed: 8})
	require.NoError(t, err)
	mixed, err := lab.Resample(&dto.ResampleRequest{Algorithm: resampler.KeySystematic, Weights: w, Seed: 8, Shuffle: true})
	require.NoError(t, err)

	require.Equal(t, plain.Draws, mixed.Draws)
	require.ElementsMatch(t, plain.Indices, mixed.Indices)
	require.Equal(t, plain.State.StartB64U, mixed.State.StartB64U)
}

func TestResampleContinuesFromSnapshot(t *testing.T) {
	lab := newLab(t)
	w := []float32{0.25, 0.25, 0.25, 0.25}

	first, err := lab.Resample(&dto.ResampleRequest{Algorithm: resampler.KeyMultinomial, Weights: w, Seed: 9})
	require.NoError(t, err)

	next, err := lab.Resample(&dto.ResampleRequest{Algorithm: resampler.KeyMultinomial, Weights: w, StartB64U: first.State.AfterB64U})
	require.NoError(t, err)
	require.Equal(t, first.State.AfterB64U, next.State.StartB64U)
	require.Equal(t, int64(0), next.State.Seed)

	// 同一條亂數序列：一次抽 8 個 == 兩次各抽 4 個
	c := core.New(core.Default().New(9))
	seq := resampler.Take(resampler.NewMultinomial().ResampleN(mustWeights(t, w), 8, c.Source()), 8)
	require.Equal(t, seq[:4], first.Indices)
	require.Equal(t, seq[4:], next.Indices)
}

func TestResampleRejects(t *testing.T) {
	lab := newLab(t)
	cases := []*dto.ResampleRequest{
		{Weights: []float32{0.5, 0.4}},
		{Weights: nil},
		{Algorithm: "bogus", Weights: []float32{1}},
		{Weights: []float32{1}, PRNG: "bogus"},
		{Weights: []float32{1}, StartB64U: "!!"},
		{Weights: []float32{1}, StartB64U: "AAAA"},
	}
	for i, req := range cases {
		_, err := lab.Resample(req)
		require.Errorf(t, err, "case %d", i)
		require.Equalf(t, errs.Warn, errs.Level(err), "case %d: %v", i, err)
	}
	_, err := lab.Resample(nil)
	require.Error(t, err)
}

func TestRuntime(t *testing.T) {
	lab := newLab(t)
	rt := lab.NewRuntimeWithSeed(1, 5)

	res, err := rt.Resample(context.Background(), &dto.ResampleRequest{Weights: []float32{0.5, 0.5}})
	require.NoError(t, err)
	require.Positive(t, res.State.Seed)

	// slot 全部借出時，取消的 ctx 直接回 Warn
	release, err := rt.acquire(context.Background())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rt.Resample(ctx, &dto.ResampleRequest{Weights: []float32{1}})
	require.Equal(t, errs.Warn, errs.Level(err))
	require.Equal(t, int32(1), rt.Stats().Inflight)
	release()

	rs := newRunSetting(t, spec.RunSetting{Weights: []float32{1}, Trials: 5})
	rep, seed, _, err := rt.Sim(context.Background(), rs)
	require.NoError(t, err)
	require.Positive(t, seed)
	require.Equal(t, 5, rep.Summary.Generations)

	big := newRunSetting(t, spec.RunSetting{Particles: 1 << 16, Trials: 1 << 12})
	_, _, _, err = rt.Sim(context.Background(), big)
	require.Equal(t, errs.Warn, errs.Level(err))

	require.Zero(t, rt.Stats().LogDropped)
	rt.SetLogDrops(func() uint64 { return 7 })
	require.Equal(t, uint64(7), rt.Stats().LogDropped)
	rt.SetLogDrops(nil)
	require.Zero(t, rt.Stats().LogDropped)

	rt.Close()
	require.True(t, rt.Closed())
	_, err = rt.Resample(context.Background(), &dto.ResampleRequest{Weights: []float32{1}})
	require.Equal(t, errs.Fatal, errs.Level(err))
	require.Equal(t, "closed", rt.Stats().Reason)
	require.Equal(t, int32(0), rt.Stats().Fatals)
}

func TestSeedMaker(t *testing.T) {
	sm := newSeedMaker(1)
	seen := make(map[int64]bool)
	for range 1000 {
		s := sm.next()
		require.GreaterOrEqual(t, s, int64(0))
		require.False(t, seen[s])
		seen[s] = true
	}
	require.Equal(t, newSeedMaker(1).next(), newSeedMaker(1).next())
}

// funcResampler 以函數實作 Resampler，讓測試注入異常行為
type funcResampler func(w weights.Weights, src resampler.Source) iter.Seq[int]

func (f funcResampler) Resample(w weights.Weights, src resampler.Source) iter.Seq[int] {
	return f(w, src)
}

func labWith(t *testing.T, key string, r resampler.Resampler) *Resamplab {
	t.Helper()
	reg := resampler.NewRegistry()
	require.NoError(t, reg.Register(key, func(*resampler.Registry, resampler.Options) (resampler.Resampler, error) {
		return r, nil
	}))
	lab, err := New(core.Default(), Registries(resampler.DefaultRegistry(), reg))
	require.NoError(t, err)
	return lab
}

func TestSimulatorWorkerPanic(t *testing.T) {
	var calls atomic.Int32
	broken := funcResampler(func(w weights.Weights, src resampler.Source) iter.Seq[int] {
		if calls.Add(1) >= 3 {
			panic("broken resampler")
		}
		return resampler.NewMultinomial().Resample(w, src)
	})
	lab := labWith(t, "broken", broken)
	rs := newRunSetting(t, spec.RunSetting{
		Algorithm: "broken",
		Weights:   []float32{0.5, 0.5},
		Trials:    50,
		Workers:   4,
	})

	sim, err := lab.NewSimulatorWithSeed(rs, 1)
	require.NoError(t, err)
	rep, _, err := sim.SimMP(false)
	require.Nil(t, rep)
	require.ErrorIs(t, err, ErrPanic)
	require.Equal(t, errs.Fatal, errs.Level(err))

	rt := lab.NewRuntimeWithSeed(2, 9)
	_, _, _, err = rt.Sim(context.Background(), rs)
	require.ErrorIs(t, err, ErrPanic)
	require.Equal(t, int32(1), rt.Stats().Panics)
	require.Equal(t, int32(1), rt.Stats().Fatals)
	require.Equal(t, int32(0), rt.Stats().Inflight)
}

func TestSimulatorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	canceling := funcResampler(func(w weights.Weights, src resampler.Source) iter.Seq[int] {
		if calls.Add(1) == 5 {
			cancel()
		}
		return resampler.NewSystematic().Resample(w, src)
	})
	lab := labWith(t, "canceling", canceling)
	rs := newRunSetting(t, spec.RunSetting{
		Algorithm: "canceling",
		Weights:   []float32{0.25, 0.75},
		Trials:    1000,
		Workers:   1,
	})

	rt := lab.NewRuntimeWithSeed(1, 3)
	rep, _, _, err := rt.Sim(ctx, rs)
	require.Nil(t, rep)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, errs.Warn, errs.Level(err))
	require.Equal(t, int32(5), calls.Load())
	require.Equal(t, int32(0), rt.Stats().Fatals)
	require.Equal(t, int32(0), rt.Stats().Inflight)

	// 已結束的 ctx 不會開始任何世代
	sim, err := lab.NewSimulatorWithSeed(rs, 3)
	require.NoError(t, err)
	_, _, err = sim.SimMPContext(ctx, false)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, int32(5), calls.Load())
}
