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

package dto

import (
	"github.com/zintix-labs/resamplab/corefmt"
)

// ResampleResult 單次重抽樣的輸出
type ResampleResult struct {
	Algorithm string        `json:"algorithm"`
	Fraction  string        `json:"fraction,omitempty"`
	Particles int           `json:"particles"`
	Indices   []int         `json:"indices"` // 新世代的索引，長度等於 particles
	Draws     int           `json:"draws"`   // 消耗的亂數次數
	ESS       float64       `json:"ess"`     // 重抽樣前的有效樣本數
	State     ResampleState `json:"state"`
}

// ResampleState PRNG 狀態；把 after_b64u 當作下一次的 start_b64u 即可延續亂數流水。
type ResampleState struct {
	PRNG      string `json:"prng"`
	Seed      int64  `json:"seed,omitempty"`
	StartB64U string `json:"start_b64u"`
	AfterB64U string `json:"after_b64u"`
}

func NewResampleState(prng string, seed int64, start, after []byte) ResampleState {
	return ResampleState{
		PRNG:      prng,
		Seed:      seed,
		StartB64U: corefmt.EncodeBase64URL(start),
		AfterB64U: corefmt.EncodeBase64URL(after),
	}
}

// AlgorithmsResult 可用的演算法與 PRNG
type AlgorithmsResult struct {
	Algorithms []string `json:"algorithms"`
	PRNGs      []string `json:"prngs"`
}
