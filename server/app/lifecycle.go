// Package app 定義應用程式根目錄用以管理長期運行元件的最小生命週期抽象。
package app

import (
	"context"
	"sync"
)

// Component 抽象任何「可啟動 / 可關閉」的長生命週期元件。
// - Run() 應該是阻塞呼叫，直到元件停止為止（正常或錯誤）。
// - Shutdown(ctx) 用於要求優雅關閉；實作方應該尊重 ctx deadline/cancel。
// 典型實例：HTTP Server、重抽樣 Runtime。
type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}

// Closer 把只需要「關閉」的資源包成 Component：Run 阻塞到 Shutdown 被呼叫，Shutdown 呼叫 close 一次。
//
// App 依註冊順序關閉元件，因此註冊在 HTTP server 之後的 Closer 會在請求排空後才關閉。
func Closer(close func()) Component {
	return &closer{close: close, done: make(chan struct{})}
}

type closer struct {
	close func()
	once  sync.Once
	done  chan struct{}
}

func (c *closer) Run() error {
	<-c.done
	return nil
}

func (c *closer) Shutdown(context.Context) error {
	c.once.Do(func() {
		if c.close != nil {
			c.close()
		}
		close(c.done)
	})
	return nil
}
