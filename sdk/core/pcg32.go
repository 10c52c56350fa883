package core

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"

	"github.com/zintix-labs/resamplab/errs"
)

const (
	pcg32Multiplier = 6364136223846793005
	pcg32FloatUnit  = 1.0 / (1 << 32)
	pcg32StateLen   = 16
)

// pcg32 為 64-bit 狀態、32-bit 輸出的 PCG (XSH RR) 產生器。
// 在 32-bit 平台上比 pcg64 便宜，但 Float64 只有 32-bit 精度。
type pcg32 struct {
	state uint64
	inc   uint64
}

func newPCG32WithSeed(seed int64) *pcg32 {
	r := &pcg32{}
	r.initWithSeed(seed, 1)
	return r
}

// Uint64 由兩次 32-bit 輸出拼接
func (r *pcg32) Uint64() uint64 {
	return (uint64(r.next()) << 32) | uint64(r.next())
}

// UintN 產出 [0,n) 的 uint，若 n == 0 回傳 0
func (r *pcg32) UintN(n uint) uint {
	if n == 0 {
		return 0
	}
	if uint64(n) <= math.MaxUint32 {
		return uint(r.below32(uint32(n)))
	}
	return uint(bounded64(r.Uint64, uint64(n)))
}

// IntN 產出 [0,n) 的 int，若 n <= 0 回傳 -1
func (r *pcg32) IntN(n int) int {
	if n <= 0 {
		return -1
	}
	if uint64(n) <= math.MaxUint32 {
		return int(r.below32(uint32(n)))
	}
	return int(bounded64(r.Uint64, uint64(n)))
}

// Float64 回傳 [0,1) 的浮點亂數（32-bit 精度）。
func (r *pcg32) Float64() float64 {
	return float64(r.next()) * pcg32FloatUnit
}

// Restore 還原 Snapshot 產出的 16 bytes 狀態 (state || inc)
func (r *pcg32) Restore(data []byte) error {
	if len(data) != pcg32StateLen {
		return errs.NewWarn(fmt.Sprintf("pcg32: invalid state length %d", len(data)))
	}
	inc := binary.BigEndian.Uint64(data[8:])
	if inc&1 == 0 {
		return errs.NewWarn("pcg32: invalid state: increment must be odd")
	}
	r.state = binary.BigEndian.Uint64(data[:8])
	r.inc = inc
	return nil
}

// Snapshot 取得當下內部狀態
func (r *pcg32) Snapshot() ([]byte, error) {
	b := make([]byte, 0, pcg32StateLen)
	b = binary.BigEndian.AppendUint64(b, r.state)
	b = binary.BigEndian.AppendUint64(b, r.inc)
	return b, nil
}

// initWithSeed 走 PCG 建議的初始化流程：先用 stream 推進一次，再加 seed，最後再推進。
func (r *pcg32) initWithSeed(seed int64, seq uint64) {
	r.state = 0
	r.inc = (seq << 1) | 1
	r.next()
	r.state += uint64(seed)
	r.next()
}

func (r *pcg32) next() uint32 {
	old := r.state
	r.state = old*pcg32Multiplier + r.inc
	xorshifted := uint32(((old >> 18) ^ old) >> 27)
	rot := uint32(old >> 59)
	return bits.RotateLeft32(xorshifted, -int(rot))
}

// below32 回傳 [0,bound) 的無偏亂數，bound 必須 > 0
func (r *pcg32) below32(bound uint32) uint32 {
	threshold := -bound % bound
	for {
		v := r.next()
		if v >= threshold {
			return v % bound
		}
	}
}
