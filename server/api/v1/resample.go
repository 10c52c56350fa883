package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zintix-labs/resamplab"
	"github.com/zintix-labs/resamplab/dto"
	"github.com/zintix-labs/resamplab/errs"
	"github.com/zintix-labs/resamplab/sdk/core"
	"github.com/zintix-labs/resamplab/server/httperr"
	"github.com/zintix-labs/resamplab/server/netsvr/middleware"
	"github.com/zintix-labs/resamplab/server/svrcfg"
)

const resampleTimeout = 5 * time.Second

func (c *ResampleHandler) Resample(w http.ResponseWriter, q *http.Request) {
	// 請求方法、結構體校驗
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := dto.DecodeResampleRequest(q)
	if err != nil {
		httperr.ErrsWithReqID(w, err, middleware.GetReqId(q))
		return
	}
	// 請求解析完成，設置超時 context
	ctx, cancel := context.WithTimeout(q.Context(), resampleTimeout)
	defer cancel()

	result, err := c.rt.Resample(ctx, req)
	if err != nil {
		httperr.Log(c.cfg.Log, "resample failed", err)
		httperr.ErrsWithReqID(w, err, middleware.GetReqId(q))
		return
	}
	c.cfg.Metrics.ObserveResample(result.Algorithm, result.Particles, result.Draws)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		httperr.Log(c.cfg.Log, "encode resample result failed", errs.Wrap(err, "encode"))
		return
	}
}

// Algorithms 列出可用的演算法與 PRNG
func (c *ResampleHandler) Algorithms(w http.ResponseWriter, q *http.Request) {
	res := dto.AlgorithmsResult{
		Algorithms: c.rt.Lab().Algorithms(),
		PRNGs:      core.FactoryNames(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		httperr.Log(c.cfg.Log, "encode algorithms failed", errs.Wrap(err, "encode"))
	}
}

// Health 回報 runtime 觀測快照（含非同步 log 丟棄數）；關閉後回 503
func (c *ResampleHandler) Health(w http.ResponseWriter, q *http.Request) {
	st := c.rt.Stats()
	w.Header().Set("Content-Type", "application/json")
	if st.Closed {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(st)
}

// ============================================================
// ** ResampleHandler **
// ============================================================

type ResampleHandler struct {
	rt  *resamplab.Runtime
	cfg *svrcfg.SvrCfg
}

func NewResampleHandler(sCfg *svrcfg.SvrCfg) (*ResampleHandler, error) {
	rt, err := sCfg.Runtime()
	if err != nil {
		return nil, errs.Wrap(err, "build resample handler error")
	}
	return &ResampleHandler{rt: rt, cfg: sCfg}, nil
}
