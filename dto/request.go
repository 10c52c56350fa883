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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/zintix-labs/resamplab/corefmt"
	"github.com/zintix-labs/resamplab/errs"
	"github.com/zintix-labs/resamplab/sdk/weights"
	"github.com/zintix-labs/resamplab/spec"
)

// maxBody POST body 上限（1MiB）
const maxBody = 1 << 20

// MaxRequestParticles 單次 HTTP 重抽樣的粒子上限
const MaxRequestParticles = 1 << 16

type ResampleRequest struct {
	Algorithm string    `json:"algorithm"`            // 演算法名稱，空字串為 multinomial
	Fraction  string    `json:"fraction,omitempty"`   // residual 小數部分的委派演算法
	Weights   []float32 `json:"weights"`              // 粒子權重
	Normalize bool      `json:"normalize,omitempty"`  // true：先正規化；false：必須已正規化
	Seed      int64     `json:"seed,omitempty"`       // <= 0 由伺服器產生
	PRNG      string    `json:"prng,omitempty"`       // PRNG 名稱，空字串為預設
	StartB64U string    `json:"start_b64u,omitempty"` // PRNG 快照；有值時忽略 seed（回放/續抽）
	Shuffle   bool      `json:"shuffle,omitempty"`    // true：輸出前以同一個 PRNG 打散索引順序
}

// DecodeResampleRequest 會把 HTTP 請求解碼成 ResampleRequest。
//
// 支援：
//   - GET：從 query string 讀取參數（algorithm/fraction/weights/normalize/shuffle/seed/prng/start_b64u），
//     weights 以逗號分隔，例如 weights=3,1,1,3&normalize=true。
//   - POST：從 JSON body 反序列化。
//
// 注意：
//   - 這裡只負責「解碼（decode）」與基本型別轉換；演算法名稱是否存在由上層決定。
//   - POST 會對 body 做大小限制（1MiB），並開啟 DisallowUnknownFields()。
func DecodeResampleRequest(r *http.Request) (*ResampleRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}

	req := new(ResampleRequest)

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Algorithm = q.Get("algorithm")
		req.Fraction = q.Get("fraction")
		req.PRNG = q.Get("prng")
		req.StartB64U = q.Get("start_b64u")

		if s := q.Get("weights"); s != "" {
			w, err := ParseWeightList(s)
			if err != nil {
				return nil, err
			}
			req.Weights = w
		}

		if s := q.Get("normalize"); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return nil, errs.NewWarn("invalid normalize value " + err.Error())
			}
			req.Normalize = v
		}

		if s := q.Get("shuffle"); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return nil, errs.NewWarn("invalid shuffle value " + err.Error())
			}
			req.Shuffle = v
		}

		if s := q.Get("seed"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid seed: %v", err))
			}
			req.Seed = v
		}

		return req, nil

	case http.MethodPost:
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(req); err != nil {
			return nil, errs.NewWarn("invalid json: " + err.Error())
		}
		return req, nil

	default:
		return nil, errs.NewWarn("method not allowed")
	}
}

// ParseWeightList 解析以逗號分隔的權重，例如 "3,1,1,3"
func ParseWeightList(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, errs.NewWarn(fmt.Sprintf("invalid weights[%d]: %v", i, err))
		}
		out[i] = float32(v)
	}
	return out, nil
}

// ParseWeights 依 Normalize 旗標建立 Weights
func (rr *ResampleRequest) ParseWeights() (weights.Weights, error) {
	if len(rr.Weights) > MaxRequestParticles {
		return weights.Weights{}, errs.NewWarn(fmt.Sprintf("too many particles: %d > %d", len(rr.Weights), MaxRequestParticles))
	}
	if rr.Normalize {
		return weights.Normalize(rr.Weights)
	}
	return weights.TryNew(rr.Weights)
}

// StartSnap 解碼 PRNG 快照；未提供時回傳 nil。
func (rr *ResampleRequest) StartSnap() ([]byte, error) {
	if rr.StartB64U == "" {
		return nil, nil
	}
	return corefmt.DecodeBase64URL(rr.StartB64U)
}

// DecodeRunSetting 把 POST JSON body 解碼成 RunSetting（會補預設值並檢查）。
func DecodeRunSetting(r *http.Request) (*spec.RunSetting, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	if r.Method != http.MethodPost {
		return nil, errs.NewWarn("method not allowed")
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return nil, errs.Wrap(err, "read body failed")
	}
	return spec.GetRunSettingByJSON(data)
}
