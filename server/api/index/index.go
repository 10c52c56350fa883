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

// Package index 主頁：列出可用的 API。
package index

import (
	"encoding/json"
	"net/http"
)

// Endpoint 主頁上的一筆 API 說明
type Endpoint struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Desc   string `json:"desc"`
}

var endpoints = []Endpoint{
	{Method: "GET", Path: "/v1/algorithms", Desc: "list resamplers and prng factories"},
	{Method: "GET", Path: "/v1/health", Desc: "runtime stats"},
	{Method: "GET|POST", Path: "/v1/resample", Desc: "resample one generation"},
	{Method: "GET|POST", Path: "/v1/sim", Desc: "run many generations and report"},
	{Method: "POST", Path: "/v1/stat", Desc: "report on generations resampled elsewhere"},
}

// Endpoints 回傳主頁列出的 API（複本）
func Endpoints() []Endpoint {
	return append([]Endpoint(nil), endpoints...)
}

func IndexHandlerFn(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Name      string     `json:"name"`
		Endpoints []Endpoint `json:"endpoints"`
	}{
		Name:      "resamplab",
		Endpoints: endpoints,
	})
}
