package v1

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/zintix-labs/resamplab/errs"
	"github.com/zintix-labs/resamplab/recorder"
	"github.com/zintix-labs/resamplab/sdk/weights"
	"github.com/zintix-labs/resamplab/server/httperr"
	"github.com/zintix-labs/resamplab/server/netsvr/middleware"
	"github.com/zintix-labs/resamplab/stats"
)

// MaxStatCells 單次統計請求的索引總數上限
const MaxStatCells = 1 << 22

// GenerationStat 外部已完成的重抽樣世代，交由伺服器統計
type GenerationStat struct {
	Name        string    `json:"name"`
	Algorithm   string    `json:"algorithm"`
	Weights     []float32 `json:"weights"`
	Normalize   bool      `json:"normalize"`
	Generations [][]int   `json:"generations"` // 每個世代的輸出索引
	Draws       []int     `json:"draws"`       // 每個世代消耗的亂數次數，可省略
}

// Stat 對外部世代做與模擬相同的統計
func Stat(w http.ResponseWriter, r *http.Request) {
	// Post方法限定
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	reqID := middleware.GetReqId(r)
	// 嘗試解析
	dst := new(GenerationStat)
	dec := json.NewDecoder(io.LimitReader(r.Body, 16<<20))
	if err := dec.Decode(dst); err != nil {
		httperr.ErrsWithReqID(w, errs.NewWarn("invalid json: "+err.Error()), reqID)
		return
	}
	st, err := dst.report()
	if err != nil {
		httperr.ErrsWithReqID(w, err, reqID)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (gs *GenerationStat) report() (*stats.Report, error) {
	if len(gs.Generations) < 1 {
		return nil, errs.NewWarn("generations must > 0")
	}
	if len(gs.Draws) != 0 && len(gs.Draws) != len(gs.Generations) {
		return nil, errs.Warnf("draws length %d != generations %d", len(gs.Draws), len(gs.Generations))
	}
	var (
		wt  weights.Weights
		err error
	)
	if gs.Normalize {
		wt, err = weights.Normalize(gs.Weights)
	} else {
		wt, err = weights.TryNew(gs.Weights)
	}
	if err != nil {
		return nil, err
	}
	n := wt.Len()
	if len(gs.Generations)*n > MaxStatCells {
		return nil, errs.Warnf("too many cells: %d > %d", len(gs.Generations)*n, MaxStatCells)
	}
	// Record 對越界索引 panic，先檢查
	for g, idx := range gs.Generations {
		if len(idx) != n {
			return nil, errs.Warnf("generation %d: %d indices, want %d", g, len(idx), n)
		}
		for _, i := range idx {
			if i < 0 || i >= n {
				return nil, errs.NewWarn(fmt.Sprintf("generation %d: index %d out of range [0,%d)", g, i, n))
			}
		}
	}

	rec, err := recorder.NewGenerationRecorder(gs.Name, gs.Algorithm, wt)
	if err != nil {
		return nil, err
	}
	for g, idx := range gs.Generations {
		draws := 0
		if len(gs.Draws) != 0 {
			draws = gs.Draws[g]
		}
		rec.Record(idx, draws)
	}
	return rec.Done(), nil
}
