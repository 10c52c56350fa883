package resampler

import (
	"fmt"
	"slices"

	"github.com/zintix-labs/resamplab/errs"
)

const (
	KeyMultinomial = "multinomial"
	KeySystematic  = "systematic"
	KeyStratified  = "stratified"
	KeyResidual    = "residual"
	KeyAlias       = "alias"
)

// Options 建構演算法時的參數
type Options struct {
	// Fraction residual 小數部分的委派演算法名稱，空字串為 multinomial
	Fraction string
}

// Builder 依參數建構 Resampler；reg 為呼叫 Build 的 Registry，可用來解析巢狀演算法。
type Builder func(reg *Registry, opts Options) (Resampler, error)

// Registry 演算法名稱到 Builder 的對照表
type Registry struct {
	builders map[string]Builder
}

func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]Builder, 8),
	}
}

// DefaultRegistry 內建演算法的 Registry，每次呼叫回傳新的實例。
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.mustRegister(KeyMultinomial, func(*Registry, Options) (Resampler, error) { return NewMultinomial(), nil })
	reg.mustRegister(KeySystematic, func(*Registry, Options) (Resampler, error) { return NewSystematic(), nil })
	reg.mustRegister(KeyStratified, func(*Registry, Options) (Resampler, error) { return NewStratified(), nil })
	reg.mustRegister(KeyAlias, func(*Registry, Options) (Resampler, error) { return NewAlias(), nil })
	reg.mustRegister(KeyResidual, buildResidual)
	return reg
}

func buildResidual(reg *Registry, opts Options) (Resampler, error) {
	if opts.Fraction == "" || opts.Fraction == KeyMultinomial {
		return NewResidual(), nil
	}
	if opts.Fraction == KeyResidual {
		return nil, errs.NewWarn("residual cannot delegate its fraction to residual")
	}
	frac, err := reg.Build(opts.Fraction, Options{})
	if err != nil {
		return nil, errs.Wrap(err, "build residual fraction failed")
	}
	return NewResidual(WithFraction(frac)), nil
}

func (r *Registry) Register(key string, b Builder) error {
	if key == "" || b == nil {
		return errs.NewFatal("empty resampler key or builder")
	}
	if _, ok := r.builders[key]; ok {
		return errs.NewFatal(fmt.Sprintf("duplicate resampler builder: %s", key))
	}
	r.builders[key] = b
	return nil
}

func (r *Registry) mustRegister(key string, b Builder) {
	if err := r.Register(key, b); err != nil {
		panic(err)
	}
}

// Build 建構名稱為 key 的演算法；未知名稱回傳 Warn 等級錯誤（通常是使用者輸入）。
func (r *Registry) Build(key string, opts Options) (Resampler, error) {
	b, ok := r.builders[key]
	if !ok {
		return nil, errs.NewWarn(fmt.Sprintf("resampler is not exist: %s", key))
	}
	return b(r, opts)
}

func (r *Registry) IsExist(key string) bool {
	_, ok := r.builders[key]
	return ok
}

// Keys 已註冊的名稱（排序後）
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.builders))
	for k := range r.builders {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// MergeRegistry 合併多個 Registry 為新的一個，重複的名稱一律視為錯誤。
func MergeRegistry(regs ...*Registry) (*Registry, error) {
	out := NewRegistry()
	origin := make(map[string]int, 8)

	for i, r := range regs {
		if r == nil {
			continue
		}
		for key, builder := range r.builders {
			if _, ok := out.builders[key]; ok {
				return nil, errs.NewFatal(fmt.Sprintf("duplicate resampler key %s (registry #%d and #%d)", key, origin[key], i))
			}
			out.builders[key] = builder
			origin[key] = i
		}
	}
	return out, nil
}
