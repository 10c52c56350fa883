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

package core

import (
	"gonum.org/v1/gonum/mathext/prng"

	"github.com/zintix-labs/resamplab/errs"
)

// mt19937 包裝 gonum 的 Mersenne Twister，用於和其他實作的 MT 結果做交叉比對。
type mt19937 struct {
	src *prng.MT19937
}

func newMT19937WithSeed(seed int64) *mt19937 {
	src := prng.NewMT19937()
	src.Seed(uint64(seed))
	return &mt19937{src: src}
}

func (r *mt19937) Uint64() uint64 {
	return r.src.Uint64()
}

func (r *mt19937) UintN(n uint) uint {
	if n == 0 {
		return 0
	}
	return uint(bounded64(r.src.Uint64, uint64(n)))
}

func (r *mt19937) IntN(n int) int {
	if n <= 0 {
		return -1
	}
	return int(bounded64(r.src.Uint64, uint64(n)))
}

func (r *mt19937) Float64() float64 {
	return float64(r.Uint64()<<11>>11) / (1 << 53)
}

func (r *mt19937) Restore(data []byte) error {
	if err := r.src.UnmarshalBinary(data); err != nil {
		return errs.Wrap(err, "mt19937: restore state failed")
	}
	return nil
}

func (r *mt19937) Snapshot() ([]byte, error) {
	return r.src.MarshalBinary()
}
