package netsvr

import (
	"net/http"

	"github.com/zintix-labs/resamplab/server/app"
)

// NetSvr 可啟停的 HTTP 服務：server.Run 交給 app 管理生命週期，api 只看得到 NetRouter。
// 換掉 chi 只需要另一個實作，handler 與 middleware 都是 net/http 形態。
type NetSvr interface {
	NetRouter
	app.Component
}

// NetRouter resamplab API 用到的路由操作。
//
// /v1 的查詢端點同時接受 GET（query string）與 POST（JSON），/metrics 不限 method。
type NetRouter interface {
	Use(middleware func(http.Handler) http.Handler)
	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)
	Handle(path string, h http.Handler)
	Group(path string, fn func(NetRouter))
}
