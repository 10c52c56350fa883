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

import "github.com/zintix-labs/resamplab/errs"

// DensityKind 密度函數種類
type DensityKind string

const (
	DensityGaussian DensityKind = "gaussian"
	DensityUniform  DensityKind = "uniform"
)

// DensitySetting 用於製造權重的密度函數設定
//
//	density:
//	  kind: gaussian
//	  mean: 0
//	  std_dev: 1
type DensitySetting struct {
	Kind   DensityKind `yaml:"kind"    json:"kind"`
	Mean   float32     `yaml:"mean"    json:"mean"`
	StdDev float32     `yaml:"std_dev" json:"std_dev"`
	Min    float32     `yaml:"min"     json:"min"`
	Max    float32     `yaml:"max"     json:"max"`
}

func (ds *DensitySetting) init() error {
	switch ds.Kind {
	case "":
		ds.Kind = DensityGaussian
		if ds.StdDev == 0 {
			ds.StdDev = 1
		}
	case DensityGaussian:
		if ds.StdDev == 0 {
			ds.StdDev = 1
		}
	case DensityUniform:
		if ds.Min >= ds.Max {
			return errs.Warnf("density: uniform needs min < max, got [%v,%v)", ds.Min, ds.Max)
		}
	default:
		return errs.Warnf("density: unknown kind %q", ds.Kind)
	}
	if ds.StdDev < 0 {
		return errs.Warnf("density: std_dev must > 0, got %v", ds.StdDev)
	}
	return nil
}

// defaultRange 樣本點的預設抽樣區間：常態取 μ±3σ，均勻取 [min,max)
func (ds *DensitySetting) defaultRange() [2]float32 {
	if ds.Kind == DensityUniform {
		return [2]float32{ds.Min, ds.Max}
	}
	return [2]float32{ds.Mean - 3*ds.StdDev, ds.Mean + 3*ds.StdDev}
}
