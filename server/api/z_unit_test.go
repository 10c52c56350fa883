package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/zintix-labs/resamplab"
	"github.com/zintix-labs/resamplab/dto"
	"github.com/zintix-labs/resamplab/server/logger"
	"github.com/zintix-labs/resamplab/server/metrics"
	"github.com/zintix-labs/resamplab/server/netsvr"
	"github.com/zintix-labs/resamplab/server/svrcfg"
	"github.com/zintix-labs/resamplab/stats"
)

func newTestServer(t *testing.T) *netsvr.ChiAdapter {
	t.Helper()
	lab, err := resamplab.NewDefault()
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	p, err := metrics.NewPrometheus(reg, "")
	require.NoError(t, err)

	sCfg := &svrcfg.SvrCfg{
		Log:       logger.New(logger.ModeSilence),
		PoolSize:  2,
		Resamplab: lab,
		Metrics:   p,
		Gatherer:  reg,
	}
	require.NoError(t, sCfg.Vaild())

	svr := netsvr.NewChiServer(":0")
	require.NoError(t, RegisterRoutes(svr, sCfg))
	return svr
}

func do(svr http.Handler, method string, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	svr.ServeHTTP(rec, req)
	return rec
}

func TestIndexAndAlgorithms(t *testing.T) {
	svr := newTestServer(t)

	rec := do(svr, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/v1/resample")
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = do(svr, http.MethodGet, "/v1/algorithms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res dto.AlgorithmsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Contains(t, res.Algorithms, "multinomial")
	require.Contains(t, res.Algorithms, "residual")
	require.NotEmpty(t, res.PRNGs)
}

func TestResampleEndpoint(t *testing.T) {
	svr := newTestServer(t)

	rec := do(svr, http.MethodGet, "/v1/resample?algorithm=systematic&weights=1,1,2&normalize=true&seed=5", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var a dto.ResampleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	require.Len(t, a.Indices, 3)
	require.Equal(t, int64(5), a.State.Seed)

	// 同一個 seed 以 POST 送出，結果一致
	rec = do(svr, http.MethodPost, "/v1/resample", `{"algorithm":"systematic","weights":[1,1,2],"normalize":true,"seed":5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var b dto.ResampleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	require.Equal(t, a.Indices, b.Indices)

	// 未正規化的權重
	rec = do(svr, http.MethodPost, "/v1/resample", `{"weights":[0.5,0.4]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"level":"warn"`)

	rec = do(svr, http.MethodPost, "/v1/resample", `{"weights":[1],"bogus":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(svr, http.MethodDelete, "/v1/resample", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSimEndpoint(t *testing.T) {
	svr := newTestServer(t)

	rec := do(svr, http.MethodGet, "/v1/sim?algorithm=stratified&weights=1,1,2,4&normalize=true&trials=50&workers=2&seed=3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Report *stats.Report `json:"report"`
		Seed   int64         `json:"seed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(3), resp.Seed)
	require.Equal(t, 50, resp.Report.Summary.Generations)
	require.Equal(t, "stratified", resp.Report.Summary.Algorithm)

	rec = do(svr, http.MethodPost, "/v1/sim", `{"algorithm":"residual","weights":[0.25,0.75],"trials":10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Positive(t, resp.Seed)
	require.Equal(t, 10, resp.Report.Summary.Generations)

	rec = do(svr, http.MethodGet, "/v1/sim?trials=abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(svr, http.MethodGet, "/v1/sim?particles=65536&trials=4096", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatEndpoint(t *testing.T) {
	svr := newTestServer(t)

	body := `{"name":"ext","algorithm":"systematic","weights":[0.5,0.5],"generations":[[0,1],[0,1],[1,1]],"draws":[1,1,1]}`
	rec := do(svr, http.MethodPost, "/v1/stat", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep stats.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	require.Equal(t, 3, rep.Summary.Generations)
	require.Equal(t, 3, rep.Summary.Draws)
	require.Equal(t, 3, rep.Summary.Sorted)

	rec = do(svr, http.MethodPost, "/v1/stat", `{"weights":[0.5,0.5],"generations":[[0,2]]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(svr, http.MethodPost, "/v1/stat", `{"weights":[0.5,0.5],"generations":[[0]]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(svr, http.MethodPost, "/v1/stat", `{"weights":[0.5,0.5],"generations":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	svr := newTestServer(t)

	rec := do(svr, http.MethodGet, "/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st resamplab.RuntimeStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, 2, st.PoolSize)
	require.False(t, st.Closed)

	rec = do(svr, http.MethodGet, "/v1/resample?weights=1&seed=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(svr, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	require.Contains(t, out, `resamplab_resample_generations_total{algorithm="multinomial"} 1`)
	require.Contains(t, out, `route="/v1/resample"`)
	require.Contains(t, out, `route="/v1/health"`)
}

func TestHealthReportsLogDrops(t *testing.T) {
	lab, err := resamplab.NewDefault()
	require.NoError(t, err)

	// 已關閉的 AsyncHandler 丟棄所有紀錄
	ah := logger.NewAsyncHandler(logger.NewHandler(logger.ModeProd, io.Discard), 4)
	ah.Close()
	log := slog.New(ah)
	log.Info("dropped")

	sCfg := &svrcfg.SvrCfg{Log: log, Resamplab: lab}
	require.NoError(t, sCfg.Vaild())
	require.Same(t, ah, sCfg.LogHandler)
	require.Equal(t, []string{svrcfg.MetricsPath}, sCfg.Compress.Skip)

	svr := netsvr.NewChiServer(":0")
	require.NoError(t, RegisterRoutes(svr, sCfg))

	rec := do(svr, http.MethodGet, "/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st resamplab.RuntimeStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.GreaterOrEqual(t, st.LogDropped, uint64(1))
	require.LessOrEqual(t, st.LogDropped, ah.Dropped())
}
