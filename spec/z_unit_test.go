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

package spec

import (
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/resamplab/errs"
)

const gaussianYAML = `
name: gauss-1k
algorithm: systematic
particles: 1000
trials: 20
workers: 2
seed: 42
density:
  kind: gaussian
  mean: 0
  std_dev: 1
`

func TestRunSettingYAMLDefaults(t *testing.T) {
	rs, err := GetRunSettingByYAML([]byte(gaussianYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs.Algorithm != "systematic" || rs.Particles != 1000 || rs.Trials != 20 {
		t.Fatalf("unexpected setting: %+v", rs)
	}
	if rs.Range != [2]float32{-3, 3} {
		t.Fatalf("default range should be mean±3σ, got %v", rs.Range)
	}
	if rs.UseWeights() {
		t.Fatalf("density setting should not use explicit weights")
	}
}

func TestRunSettingExplicitWeights(t *testing.T) {
	rs, err := GetRunSettingByJSON([]byte(`{"weights":[3,1,1,3],"normalize":true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs.Particles != 4 || rs.Algorithm != DefaultAlgorithm || rs.Trials != 1 || rs.Workers != 1 {
		t.Fatalf("defaults not applied: %+v", rs)
	}
}

func TestRunSettingRejects(t *testing.T) {
	cases := map[string]string{
		"particle mismatch": `{"weights":[0.5,0.5],"particles":3}`,
		"bad workers":       `{"particles":10,"workers":1000}`,
		"bad density":       `{"particles":10,"density":{"kind":"cauchy"}}`,
		"bad uniform":       `{"particles":10,"density":{"kind":"uniform","min":1,"max":1}}`,
		"unknown field":     `{"particles":10,"bogus":true}`,
		"bad range":         `{"particles":10,"range":[2,1]}`,
	}
	for name, data := range cases {
		_, err := GetRunSettingByJSON([]byte(data))
		if err == nil {
			t.Fatalf("[%s] expected error", name)
		}
		if errs.Level(err) != errs.Warn {
			t.Fatalf("[%s] expected warn level, got %s", name, errs.Level(err))
		}
	}
}

func TestLoadRunSetting(t *testing.T) {
	fsys := fstest.MapFS{
		"gauss.YAML": {Data: []byte(gaussianYAML)},
		"w.json":     {Data: []byte(`{"weights":[0.25,0.25,0.25,0.25]}`)},
		"w.txt":      {Data: []byte(`x`)},
	}
	if _, err := LoadRunSetting(fsys, "gauss.YAML"); err != nil {
		t.Fatalf("yaml load failed: %v", err)
	}
	if _, err := LoadRunSetting(fsys, "w.json"); err != nil {
		t.Fatalf("json load failed: %v", err)
	}
	if _, err := LoadRunSetting(fsys, "w.txt"); err == nil {
		t.Fatalf("expected error for unknown extension")
	}
	if _, err := LoadRunSetting(fsys, "missing.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
