// Package core implements the harness random number generators.
//
// The PCG algorithm is designed by Melissa O'Neill.
// Portions of the bounded random generation logic (UintN/IntN) are
// adapted from the Go standard library (math/rand), which is
// licensed under the BSD 3-Clause License.

package core

import (
	r2 "math/rand/v2"
)

// pcg64 是預設的 harness PRNG，包裝標準庫的 PCG（128-bit 狀態）。
type pcg64 struct {
	rng *r2.PCG
}

// newPCG64WithSeed 以指定 seed 建立新的 pcg64 實例。
// 128-bit 初始狀態由 seed 經 splitmix64 展開，相同 seed 必得相同序列。
func newPCG64WithSeed(seed int64) *pcg64 {
	x := uint64(seed) ^ 0x9e3779b97f4a7c15
	hi := splitmix64(x)
	lo := splitmix64(x ^ 0xDA942042E4DD58B5)
	return &pcg64{rng: r2.NewPCG(hi, lo)}
}

func (r *pcg64) Uint64() uint64 {
	return r.rng.Uint64()
}

// UintN 產出 [0,n) 的 uint，若 n == 0 回傳 0
func (r *pcg64) UintN(n uint) uint {
	if n == 0 {
		return 0
	}
	return uint(bounded64(r.rng.Uint64, uint64(n)))
}

// IntN 產出 [0,n) 的 int，若 n <= 0 回傳 -1
func (r *pcg64) IntN(n int) int {
	if n <= 0 {
		return -1
	}
	return int(bounded64(r.rng.Uint64, uint64(n)))
}

// Float64 產出 float64 (53 bits 精度)
func (r *pcg64) Float64() float64 {
	return float64(r.Uint64()<<11>>11) / (1 << 53)
}

func (r *pcg64) Restore(data []byte) error {
	return r.rng.UnmarshalBinary(data)
}

func (r *pcg64) Snapshot() ([]byte, error) {
	return r.rng.MarshalBinary()
}

// splitmix64 將輸入值混洗成新的 64-bit 狀態，用於種子展開。
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
