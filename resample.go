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
	"fmt"

	"github.com/zintix-labs/resamplab/dto"
	"github.com/zintix-labs/resamplab/errs"
	"github.com/zintix-labs/resamplab/sdk/core"
	"github.com/zintix-labs/resamplab/sdk/resampler"
)

// ErrPanic 重抽樣過程 panic（演算法前置條件被破壞）時回傳的錯誤，以 errors.Is 比對。
var ErrPanic = errs.NewFatal("resample panic")

// Resample 為單一世代的公開入口：驗證請求、執行重抽樣並回傳索引與 PRNG 狀態。
//
// PRNG 來源（優先順序）：
//  1. StartB64U：還原該快照後續抽（回放/審計）。
//  2. Seed > 0：以該 seed 建立新的核心。
//  3. 其他：seed 由 crypto/rand 產生。
//
// 回傳的 State 帶有抽樣前後的快照；把 AfterB64U 當作下一次請求的 StartB64U 即可接續同一條亂數序列。
func (l *Resamplab) Resample(req *dto.ResampleRequest) (dto.ResampleResult, error) {
	if req == nil {
		return dto.ResampleResult{}, errs.NewWarn("nil resample request")
	}
	seed := req.Seed
	if seed <= 0 {
		var err error
		if seed, err = cryptoSeed(); err != nil {
			return dto.ResampleResult{}, err
		}
	}
	return l.ResampleWithSeed(req, seed)
}

// ResampleWithSeed 與 Resample 相同，但請求未帶快照時以 seed 建立核心（忽略 req.Seed）。
func (l *Resamplab) ResampleWithSeed(req *dto.ResampleRequest, seed int64) (res dto.ResampleResult, err error) {
	if req == nil {
		return dto.ResampleResult{}, errs.NewWarn("nil resample request")
	}
	defer func() {
		if r := recover(); r != nil {
			res = dto.ResampleResult{}
			err = errs.Wrap(ErrPanic, fmt.Sprintf("resample %s panic : %v", req.Algorithm, r))
		}
	}()

	// 1. 校驗請求合法性
	w, err := req.ParseWeights()
	if err != nil {
		return res, err
	}
	r, err := l.Build(req.Algorithm, req.Fraction)
	if err != nil {
		return res, err
	}
	cf, err := l.Factory(req.PRNG)
	if err != nil {
		return res, err
	}
	snap, err := req.StartSnap()
	if err != nil {
		return res, err
	}

	// 2. 建立核心，有快照則還原
	c := core.New(cf.New(seed))
	if len(snap) != 0 {
		if err := c.Restore(snap); err != nil {
			return res, errs.NewWarn("restore core err " + err.Error())
		}
		seed = 0
	}
	startsnap, err := c.Snapshot()
	if err != nil {
		return res, errs.NewFatal("before snapshot error " + err.Error())
	}

	// 3. 重抽樣（Draws 只計演算法本身的抽數）
	cnt := core.NewCounter(c.Source())
	idx := resampler.Generation(r, w, cnt.Source())
	if req.Shuffle {
		c.ShuffleInts(idx)
	}

	// 4. 抽樣後快照
	aftersnap, err := c.Snapshot()
	if err != nil {
		return res, errs.NewFatal("after snapshot error " + err.Error())
	}

	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = resampler.KeyMultinomial
	}
	return dto.ResampleResult{
		Algorithm: algorithm,
		Fraction:  req.Fraction,
		Particles: w.Len(),
		Indices:   idx,
		Draws:     cnt.Count(),
		ESS:       w.ESS(),
		State:     dto.NewResampleState(req.PRNG, seed, startsnap, aftersnap),
	}, nil
}
