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

// Package density 提供機率密度函數，僅用於製造測試/基準用的權重向量。
//
// 正式的重抽樣路徑不會用到本套件：權重由上游（粒子加權）決定。
package density

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/zintix-labs/resamplab/errs"
	"github.com/zintix-labs/resamplab/spec"
)

// Density 將樣本點映射到非負的密度值。
type Density interface {
	Eval(x float32) float32
}

// Func 讓一般函數滿足 Density
type Func func(x float32) float32

func (f Func) Eval(x float32) float32 { return f(x) }

// Gaussian 常態分佈密度，計算委派給 gonum distuv.Normal。
type Gaussian struct {
	dist distuv.Normal
}

// NewGaussian 建立 N(mean, stdDev²)；stdDev 必須 > 0 且為有限值。
func NewGaussian(mean, stdDev float32) (*Gaussian, error) {
	if !finite(mean) || !finite(stdDev) || stdDev <= 0 {
		return nil, errs.NewWarn(fmt.Sprintf("gaussian: invalid parameters mean=%v std_dev=%v", mean, stdDev))
	}
	return &Gaussian{dist: distuv.Normal{Mu: float64(mean), Sigma: float64(stdDev)}}, nil
}

// Eval f(x) = (1 / sqrt(2πσ²)) * exp(-((x - μ)² / (2σ²)))
func (g *Gaussian) Eval(x float32) float32 {
	return float32(g.dist.Prob(float64(x)))
}

// Uniform [min,max) 上的均勻密度
type Uniform struct {
	dist distuv.Uniform
}

func NewUniform(min, max float32) (*Uniform, error) {
	if !finite(min) || !finite(max) || min >= max {
		return nil, errs.NewWarn(fmt.Sprintf("uniform: invalid range [%v,%v)", min, max))
	}
	return &Uniform{dist: distuv.Uniform{Min: float64(min), Max: float64(max)}}, nil
}

func (u *Uniform) Eval(x float32) float32 {
	return float32(u.dist.Prob(float64(x)))
}

// FromSetting 依設定檔建立密度函數
func FromSetting(ds spec.DensitySetting) (Density, error) {
	switch ds.Kind {
	case spec.DensityGaussian:
		return NewGaussian(ds.Mean, ds.StdDev)
	case spec.DensityUniform:
		return NewUniform(ds.Min, ds.Max)
	default:
		return nil, errs.NewWarn(fmt.Sprintf("unknown density kind: %q", ds.Kind))
	}
}

func finite(x float32) bool {
	f := float64(x)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
