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
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zintix-labs/resamplab/dto"
	"github.com/zintix-labs/resamplab/errs"
	"github.com/zintix-labs/resamplab/spec"
	"github.com/zintix-labs/resamplab/stats"
)

// MaxSimWork 服務端單次模擬的工作量上限（particles * trials）
const MaxSimWork = 1 << 26

// Runtime 是服務端的執行入口。
//
// 它透過一個有緩衝的 slots 通道限制同時執行的請求數：
//   - 取得 slot 才能執行，執行完歸還。
//   - ctx 取消或 Runtime 關閉時不再阻塞，直接回錯誤。
//
// 請求未帶 seed 時，由 Runtime 的 seedMaker 推導（初始 seed 來自 crypto/rand），
// 因此每個請求都有可回報、可重現的 seed。
type Runtime struct {
	lab   *Resamplab
	slots chan struct{}
	seeds *seedMaker

	done        chan struct{} // 關閉訊號：關閉後不再允許借 slot
	closeOnce   sync.Once
	closeReason atomic.Value // string

	poolsize int
	inflight atomic.Int32 // 使用中
	panics   atomic.Int32 // panic 次數
	fatals   atomic.Int32 // fatal 次數

	logDrops atomic.Pointer[func() uint64] // 非同步 logger 的丟棄計數
}

// RuntimeStats Runtime 的觀測快照
type RuntimeStats struct {
	PoolSize int    `json:"pool_size"`
	Inflight int32  `json:"inflight"`
	Panics   int32  `json:"panics"`
	Fatals   int32  `json:"fatals"`
	Closed   bool   `json:"closed"`
	Reason   string `json:"reason,omitempty"`

	// LogDropped 非同步 logger 因佇列滿而丟棄的紀錄數（未設定來源時為 0）
	LogDropped uint64 `json:"log_dropped"`
}

// NewRuntime 建立最多 n 個請求同時執行的 Runtime（n 至少為 1）。
func (l *Resamplab) NewRuntime(n int) (*Runtime, error) {
	seed, err := cryptoSeed()
	if err != nil {
		return nil, err
	}
	return l.NewRuntimeWithSeed(n, seed), nil
}

// NewRuntimeWithSeed 與 NewRuntime 相同，但由呼叫端指定推導請求 seed 的初始 seed。
func (l *Resamplab) NewRuntimeWithSeed(n int, seed int64) *Runtime {
	n = max(1, n)
	rt := &Runtime{
		lab:      l,
		slots:    make(chan struct{}, n),
		seeds:    newSeedMaker(seed),
		done:     make(chan struct{}),
		poolsize: n,
	}
	for i := 0; i < n; i++ {
		rt.slots <- struct{}{}
	}
	rt.closeReason.Store("")
	return rt
}

// Lab 回傳組裝器（唯讀使用）
func (rt *Runtime) Lab() *Resamplab {
	return rt.lab
}

// Resample 取得 slot 後執行單一世代重抽樣
func (rt *Runtime) Resample(ctx context.Context, req *dto.ResampleRequest) (dto.ResampleResult, error) {
	if req == nil {
		return dto.ResampleResult{}, errs.NewWarn("nil resample request")
	}
	release, err := rt.acquire(ctx)
	if err != nil {
		return dto.ResampleResult{}, err
	}
	defer release()

	seed := req.Seed
	if seed <= 0 {
		seed = rt.seeds.next()
	}
	res, err := rt.lab.ResampleWithSeed(req, seed)
	rt.observe(err)
	return res, err
}

// Sim 取得 slot 後依設定執行模擬；rs 必須已 Init()。
//
// 模擬以 rs.Workers 平行執行，seed <= 0 時由 Runtime 推導；回傳的 seed 可用於重現。
// 取得 slot 後 ctx 仍在每個世代之間檢查，取消時提早歸還 slot。
func (rt *Runtime) Sim(ctx context.Context, rs *spec.RunSetting) (*stats.Report, int64, time.Duration, error) {
	if rs == nil {
		return nil, 0, 0, errs.NewWarn("nil run setting")
	}
	if work := int64(rs.Particles) * int64(rs.Trials); work > MaxSimWork {
		return nil, 0, 0, errs.Warnf("sim too large: particles*trials = %d > %d", work, MaxSimWork)
	}
	release, err := rt.acquire(ctx)
	if err != nil {
		return nil, 0, 0, err
	}
	defer release()

	seed := rs.Seed
	if seed <= 0 {
		seed = rt.seeds.next()
	}
	sim, err := rt.lab.NewSimulatorWithSeed(rs, seed)
	if err != nil {
		rt.observe(err)
		return nil, seed, 0, err
	}
	rep, used, err := sim.SimMPContext(ctx, false)
	rt.observe(err)
	return rep, seed, used, err
}

// acquire 借出一個 slot；回傳的 release 必須呼叫一次。
func (rt *Runtime) acquire(ctx context.Context) (func(), error) {
	select {
	case <-rt.done:
		return nil, errs.NewFatal("resample runtime closed: " + rt.ClosedReason())
	default:
	}
	select {
	case <-rt.done:
		return nil, errs.NewFatal("resample runtime closed: " + rt.ClosedReason())
	case <-ctx.Done():
		return nil, canceled(ctx.Err())
	case <-rt.slots:
		rt.inflight.Add(1)
	}
	return func() {
		rt.inflight.Add(-1)
		rt.slots <- struct{}{}
	}, nil
}

func (rt *Runtime) observe(err error) {
	if err == nil || errs.Level(err) != errs.Fatal {
		return
	}
	rt.fatals.Add(1)
	if errors.Is(err, ErrPanic) {
		rt.panics.Add(1)
	}
	rt.lab.log.Error("runtime fatal", slog.Any("err", err))
}

// Close 進入關閉狀態：之後所有請求直接回 error，執行中的請求不受影響。
func (rt *Runtime) Close() {
	rt.closeWithReason("closed")
}

func (rt *Runtime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.closeReason.Store(reason)
		close(rt.done)
	})
}

// Closed 回報是否已進入關閉狀態
func (rt *Runtime) Closed() bool {
	select {
	case <-rt.done:
		return true
	default:
		return false
	}
}

func (rt *Runtime) ClosedReason() string {
	v, _ := rt.closeReason.Load().(string)
	return v
}

// SetLogDrops 設定 Stats 回報 LogDropped 的來源（例如 AsyncHandler.Dropped）；nil 代表不回報。
func (rt *Runtime) SetLogDrops(fn func() uint64) {
	if fn == nil {
		rt.logDrops.Store(nil)
		return
	}
	rt.logDrops.Store(&fn)
}

// Stats 回傳觀測快照
func (rt *Runtime) Stats() RuntimeStats {
	st := RuntimeStats{
		PoolSize: rt.poolsize,
		Inflight: rt.inflight.Load(),
		Panics:   rt.panics.Load(),
		Fatals:   rt.fatals.Load(),
		Closed:   rt.Closed(),
		Reason:   rt.ClosedReason(),
	}
	if fn := rt.logDrops.Load(); fn != nil {
		st.LogDropped = (*fn)()
	}
	return st
}
