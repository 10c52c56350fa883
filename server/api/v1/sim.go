package v1

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/zintix-labs/resamplab"
	"github.com/zintix-labs/resamplab/dto"
	"github.com/zintix-labs/resamplab/errs"
	"github.com/zintix-labs/resamplab/server/httperr"
	"github.com/zintix-labs/resamplab/server/netsvr/middleware"
	"github.com/zintix-labs/resamplab/server/svrcfg"
	"github.com/zintix-labs/resamplab/spec"
	"github.com/zintix-labs/resamplab/stats"
)

// MaxSimTrials 單一請求的世代數上限
const MaxSimTrials = 1_000_000

type SimHandler struct {
	rt  *resamplab.Runtime
	cfg *svrcfg.SvrCfg
}

func NewSimHandler(sCfg *svrcfg.SvrCfg) (*SimHandler, error) {
	rt, err := sCfg.Runtime()
	if err != nil {
		return nil, errs.Wrap(err, "build sim handler error")
	}
	return &SimHandler{rt: rt, cfg: sCfg}, nil
}

// Sim 執行模擬
//
// GET  ?algorithm=&fraction=&particles=&trials=&workers=&seed=&prng=&density=&mean=&std_dev=
// POST spec.RunSetting JSON
func (sh *SimHandler) Sim(w http.ResponseWriter, q *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type SimResponse struct {
		Report   *stats.Report `json:"report"`
		Seed     int64         `json:"seed"`
		UsedTime int64         `json:"used_ms"`
	}
	// ---
	var (
		rs  *spec.RunSetting
		err error
	)
	switch q.Method {
	case http.MethodGet:
		rs, err = runSettingFromQuery(q.URL.Query())
	case http.MethodPost:
		rs, err = dto.DecodeRunSetting(q)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err != nil {
		httperr.ErrsWithReqID(w, err, middleware.GetReqId(q))
		return
	}
	// 業務檢驗
	if rs.Trials > MaxSimTrials {
		httperr.ErrsWithReqID(w, errs.Warnf("trials must be between 1 to %d", MaxSimTrials), middleware.GetReqId(q))
		return
	}

	st, seed, used, err := sh.rt.Sim(q.Context(), rs)
	if err != nil {
		// 這裡的錯誤來自 runtime 尊重錯誤分級
		err = errs.Wrap(err, "simulate err")
		httperr.Log(sh.cfg.Log, "sim failed", err)
		httperr.ErrsWithReqID(w, err, middleware.GetReqId(q))
		return
	}
	sh.cfg.Metrics.ObserveSim(st.Summary.Algorithm, st.Summary.Generations, used)

	resp := SimResponse{
		Report:   st,
		Seed:     seed,
		UsedTime: used.Milliseconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		httperr.Log(sh.cfg.Log, "encode sim result failed", errs.Wrap(err, "encode"))
	}
}

func runSettingFromQuery(v url.Values) (*spec.RunSetting, error) {
	rs := &spec.RunSetting{
		Name:      v.Get("name"),
		Algorithm: v.Get("algorithm"),
		Fraction:  v.Get("fraction"),
		PRNG:      v.Get("prng"),
		Density: spec.DensitySetting{
			Kind: spec.DensityKind(v.Get("density")),
		},
	}
	if s := v.Get("weights"); s != "" {
		w, err := dto.ParseWeightList(s)
		if err != nil {
			return nil, err
		}
		rs.Weights = w
	}
	if s := v.Get("normalize"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, errs.NewWarn("normalize must be bool")
		}
		rs.Normalize = b
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"particles", &rs.Particles},
		{"trials", &rs.Trials},
		{"workers", &rs.Workers},
	}
	for _, it := range ints {
		s := v.Get(it.key)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errs.Warnf("%s must be integer", it.key)
		}
		*it.dst = n
	}
	if s := v.Get("seed"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errs.NewWarn("seed must be int64")
		}
		rs.Seed = n
	}
	floats := []struct {
		key string
		dst *float32
	}{
		{"mean", &rs.Density.Mean},
		{"std_dev", &rs.Density.StdDev},
		{"min", &rs.Density.Min},
		{"max", &rs.Density.Max},
	}
	for _, it := range floats {
		s := v.Get(it.key)
		if s == "" {
			continue
		}
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, errs.Warnf("%s must be number", it.key)
		}
		*it.dst = float32(f)
	}
	if err := rs.Init(); err != nil {
		return nil, err
	}
	return rs, nil
}
