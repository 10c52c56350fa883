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

import "fmt"

// Script 回傳一個依序吐出 vals 的均勻亂數函數（faked RNG）。
//
// 重抽樣演算法的抽數與順序是決定性的，因此可以用事先寫好的數列精準重現輸出。
// 數列用完代表演算法抽的次數超出預期，這一定是 harness 的 bug，直接 panic。
func Script(vals ...float32) func() float32 {
	i := 0
	return func() float32 {
		if i >= len(vals) {
			panic(fmt.Sprintf("core.Script: exhausted after %d values", len(vals)))
		}
		v := vals[i]
		i++
		return v
	}
}

// Counter 包裝一個亂數函數並計算被呼叫的次數，用於驗證演算法的抽數。
type Counter struct {
	src   func() float32
	count int
}

func NewCounter(src func() float32) *Counter {
	return &Counter{src: src}
}

// Source 回傳會計數的亂數函數
func (c *Counter) Source() func() float32 {
	return func() float32 {
		c.count++
		return c.src()
	}
}

// Count 回傳目前為止的抽數
func (c *Counter) Count() int {
	return c.count
}
