package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/zintix-labs/resamplab/errs"
	"github.com/zintix-labs/resamplab/server/httperr"
)

// Recover 攔截 handler 的 panic：記錄堆疊並回 500 JSON。
// http.ErrAbortHandler 照原樣往上拋，讓 net/http 中止連線。
func Recover(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				log.Error("handler panic",
					slog.String("req_id", GetReqId(r)),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())),
				)
				httperr.ErrsWithReqID(w, errs.NewFatal(fmt.Sprintf("internal panic: %v", rvr)), GetReqId(r))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
