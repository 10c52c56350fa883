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

package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/resamplab/errs"
	"github.com/zintix-labs/resamplab/server/api"
	"github.com/zintix-labs/resamplab/server/app"
	"github.com/zintix-labs/resamplab/server/netsvr"
	"github.com/zintix-labs/resamplab/server/svrcfg"
)

// Run 是 server 套件的「組裝器（assembler）」與「啟動入口（runtime entry）」。
//
// 它負責：
//  1. 驗證輸入的 SvrCfg（包含必要依賴，例如 logger 與 Resamplab）。
//  2. 建立 HTTP server（netsvr），addr 為空字串時使用預設位址。
//  3. 註冊路由與 middleware（api.RegisterRoutes）。
//  4. 啟動 app.Run() 直到收到中斷訊號；server 排空後再關閉共用的 Runtime。
//
// Run 不綁定任何檔案路徑或環境變數；所有依賴都透過 SvrCfg 明確注入。
func Run(sCfg *svrcfg.SvrCfg, addr string) {
	var svr *netsvr.ChiAdapter
	if addr == "" {
		svr = netsvr.NewChiServerDefault()
	} else {
		svr = netsvr.NewChiServer(addr)
	}
	RunWithSvr(sCfg, svr)
}

// RunWithSvr 與 Run() 相同，但允許呼叫端注入自訂的 NetSvr
// （例如自己包裝的 adapter、自訂 listener 或 TLS 設定）。
//
// 驗證失敗時會額外把錯誤輸出到 stderr，避免「組裝失敗但無 log 可看」。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) {
	if err := sCfg.Vaild(); err != nil {
		// 防止外層傳入的logger不可用
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if svr == nil {
		sCfg.Log.Error(errs.NewFatal("svr is required").Error())
		return
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		sCfg.Log.Error(errs.NewFatal("default server is not ready").Error())
		return
	}

	// 註冊 Api
	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		sCfg.Log.Error("register routes failed", slog.Any("err", err))
		return
	}

	rt, err := sCfg.Runtime()
	if err != nil {
		sCfg.Log.Error("build runtime failed", slog.Any("err", err))
		return
	}

	// 運行：先關 server（排空請求），再關 runtime，最後寫完非同步 log
	comps := []app.Component{svr, app.Closer(rt.Close)}
	if sCfg.LogHandler != nil {
		comps = append(comps, app.Closer(sCfg.LogHandler.Close))
	}
	app := app.NewWith(comps...)
	if s, ok := svr.(*netsvr.ChiAdapter); ok {
		sCfg.Log.Info("[resamplab] listening on http://localhost" + s.Address())
	} else {
		sCfg.Log.Info("[resamplab] listening")
	}
	if err := app.Run(); err != nil {
		sCfg.Log.Error("app stopped:", slog.Any("err", err))
	}
}
