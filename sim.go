// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resamplab

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/resamplab/errs"
	"github.com/zintix-labs/resamplab/recorder"
	"github.com/zintix-labs/resamplab/sdk/core"
	"github.com/zintix-labs/resamplab/sdk/density"
	"github.com/zintix-labs/resamplab/sdk/resampler"
	"github.com/zintix-labs/resamplab/sdk/weights"
	"github.com/zintix-labs/resamplab/spec"
	"github.com/zintix-labs/resamplab/stats"
)

// Simulator 以固定權重重複執行重抽樣世代，平行紀錄並合併統計。
//
// 每個 worker 持有自己的 Core（seed 由 seedMaker 從初始 seed 推導）與自己的 GenerationRecorder，
// 因此同一個 seed + 同樣的 workers 數，結果完全一致。
type Simulator struct {
	Name      string
	Algorithm string
	rs        *spec.RunSetting
	r         resampler.Resampler
	cf        core.PRNGFactory
	w         weights.Weights
	initSeed  int64
	log       *slog.Logger
	trace     *traceSink
	rBuf      []*recorder.GenerationRecorder
}

func newSimulatorWithSeed(rs *spec.RunSetting, r resampler.Resampler, cf core.PRNGFactory, seed int64, log *slog.Logger) (*Simulator, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Simulator{
		Name:      rs.Name,
		Algorithm: rs.Algorithm,
		rs:        rs,
		r:         r,
		cf:        cf,
		initSeed:  seed,
		log:       log,
		rBuf:      make([]*recorder.GenerationRecorder, 0, rs.Workers),
	}
	w, err := s.buildWeights()
	if err != nil {
		return nil, err
	}
	s.w = w
	return s, nil
}

// buildWeights 明確權重直接使用；否則在 Range 內以初始 seed 均勻取樣，並以密度值作為權重。
func (s *Simulator) buildWeights() (weights.Weights, error) {
	rs := s.rs
	if rs.UseWeights() {
		if rs.Normalize {
			return weights.Normalize(rs.Weights)
		}
		return weights.TryNew(rs.Weights)
	}
	d, err := density.FromSetting(rs.Density)
	if err != nil {
		return weights.Weights{}, err
	}
	src := core.New(s.cf.New(s.initSeed))
	return weights.FromRangeAndDensity(rs.Particles, rs.Range[0], rs.Range[1], d, src)
}

// Weights 本次模擬使用的權重
func (s *Simulator) Weights() weights.Weights {
	return s.w
}

// Seed 初始 seed，用於重現
func (s *Simulator) Seed() int64 {
	return s.initSeed
}

// SetTrace 啟用世代輸出紀錄；Sim/SimMP 結束時會寫出 zstd 結尾，但不會關閉 w。
func (s *Simulator) SetTrace(w io.Writer) error {
	if w == nil {
		s.trace = nil
		return nil
	}
	tw, err := recorder.NewTraceWriter(w)
	if err != nil {
		return err
	}
	s.trace = &traceSink{tw: tw}
	return nil
}

// Sim 單線模擬器：以一個 worker 連續跑 Trials 個世代並回傳統計結果與用時
func (s *Simulator) Sim(showpb bool) (*stats.Report, time.Duration, error) {
	return s.run(context.Background(), 1, showpb)
}

// SimMP 以 Workers 個 worker 平行執行，總計 Trials 個世代，合併統計結果後回傳統計結果與用時
func (s *Simulator) SimMP(showpb bool) (*stats.Report, time.Duration, error) {
	return s.run(context.Background(), s.rs.Workers, showpb)
}

// SimMPContext 與 SimMP 相同，但每個世代之間檢查 ctx；ctx 結束時回傳 Warn（Cause 為 ctx.Err()）。
func (s *Simulator) SimMPContext(ctx context.Context, showpb bool) (*stats.Report, time.Duration, error) {
	return s.run(ctx, s.rs.Workers, showpb)
}

func (s *Simulator) run(parent context.Context, mp int, showpb bool) (*stats.Report, time.Duration, error) {
	defer s.reset()
	trials := s.rs.Trials
	if mp <= 0 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if trials < 1 {
		return nil, 0, errs.NewWarn("trials must > 0")
	}
	if err := parent.Err(); err != nil {
		return nil, 0, canceled(err)
	}
	mp = min(mp, trials)

	for len(s.rBuf) < mp {
		r, err := recorder.NewGenerationRecorder(s.Name, s.Algorithm, s.w)
		if err != nil {
			return nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}
	// 每次執行都從初始 seed 重新推導，重複呼叫得到相同結果
	sm := newSeedMaker(s.initSeed)
	seeds := make([]int64, mp)
	for i := range seeds {
		seeds[i] = sm.next()
	}

	s.log.Debug("sim start",
		slog.String("name", s.Name),
		slog.String("algorithm", s.Algorithm),
		slog.Int("particles", s.w.Len()),
		slog.Int("trials", trials),
		slog.Int("workers", mp),
		slog.Int64("seed", s.initSeed),
	)

	// 任一 worker panic 時取消其他 worker
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	var (
		failOnce sync.Once
		failErr  error
	)
	wg := new(sync.WaitGroup)
	wg.Add(mp)
	bar := pb.StartNew(trials)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < mp; i++ {
		// 前 trials%mp 個 worker 多跑一個世代
		n := trials / mp
		if i < trials%mp {
			n++
		}
		go func(i int, n int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					failOnce.Do(func() {
						failErr = errs.Wrap(ErrPanic, fmt.Sprintf("sim %s worker %d panic : %v", s.Algorithm, i, r))
					})
					cancel()
				}
			}()
			c := core.New(s.cf.New(seeds[i]))
			rec := s.rBuf[i]
			for t := 0; t < n; t++ {
				if ctx.Err() != nil {
					return
				}
				cnt := core.NewCounter(c.Source())
				idx := resampler.Generation(s.r, s.w, cnt.Source())
				rec.Record(idx, cnt.Count())
				if s.trace != nil {
					s.trace.write(i, t, cnt.Count(), idx)
				}
				bar.Increment()
			}
		}(i, n)
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()

	var runErr error
	switch {
	case failErr != nil:
		runErr = failErr
	case parent.Err() != nil:
		runErr = canceled(parent.Err())
	}
	if runErr != nil {
		if s.trace != nil {
			_ = s.trace.close()
			s.trace = nil
		}
		s.log.Debug("sim aborted",
			slog.String("name", s.Name),
			slog.Duration("used", used),
			slog.Any("err", runErr),
		)
		return nil, used, runErr
	}

	if s.trace != nil {
		if err := s.trace.close(); err != nil {
			return nil, used, err
		}
		s.trace = nil
	}

	st, err := recorder.MergeGenerationRecorder(s.rBuf[:mp])
	if err != nil {
		return nil, used, err
	}
	result := st.Done()
	s.log.Debug("sim done",
		slog.String("name", s.Name),
		slog.Duration("used", used),
		slog.Float64("chi_square", result.Summary.ChiSquare),
		slog.Float64("p_value", result.Summary.PValue),
	)
	return result, used, nil
}

// canceled 把 ctx 結束轉成 Warn，保留 ctx.Err() 讓 HTTP 邊界以 errors.Is 映射成 408/504
func canceled(cause error) *errs.E {
	e := errs.NewWarn("request canceled/timeout: " + cause.Error())
	e.Cause = cause
	return e
}

func (s *Simulator) reset() {
	s.rBuf = s.rBuf[:0]
}

// traceSink 讓多個 worker 共用一個 TraceWriter；只保留第一個錯誤，之後不再寫入。
type traceSink struct {
	mu  sync.Mutex
	tw  *recorder.TraceWriter
	err error
}

func (ts *traceSink) write(worker int, trial int, draws int, indices []int) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.err != nil {
		return
	}
	ts.err = ts.tw.WriteGeneration(&recorder.TraceGeneration{
		Worker:  worker,
		Trial:   trial,
		Draws:   draws,
		Indices: indices,
	})
}

func (ts *traceSink) close() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if err := ts.tw.Close(); err != nil && ts.err == nil {
		ts.err = err
	}
	return ts.err
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// state 走全週期（不重複），再用可逆 mix63 打散
//
// 此方法可能被多個 goroutines 同時呼叫（例如 Runtime 為併發請求產生 seed），
// 因此以 CAS 迴圈推進 state，確保每次呼叫取得唯一的下一個 state。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()                                            // always masked
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63 // 乘奇數 ⇒ mod 2^63 可逆
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
