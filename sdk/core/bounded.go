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

import "math/bits"

// bounded64 回傳 [0,n) 的無偏亂數（乘法取高位 + 拒絕採樣），n 必須 > 0。
//
// next 為任一 64-bit 輸出的來源，讓 pcg64 與 mt19937 共用同一套 bounded 邏輯。
func bounded64(next func() uint64, n uint64) uint64 {
	if n&(n-1) == 0 { // n 為 2 的冪次，直接 mask
		return next() & (n - 1)
	}
	hi, lo := bits.Mul64(next(), n)
	if lo < n {
		thresh := -n % n
		for lo < thresh {
			hi, lo = bits.Mul64(next(), n)
		}
	}
	return hi
}
