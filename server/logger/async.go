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

package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

const defaultQueueSize = 1024

// AsyncHandler 把 Handle 改成入列，由一個背景 goroutine 依序寫給下游 handler。
//
// server 的請求路徑（access log、runtime fatal）因此不會被 I/O 卡住。
// 佇列滿或 Close 之後的紀錄直接丟棄並計數，/v1/health 會回報這個數字。
// WithAttrs / WithGroup 衍生的 handler 共用同一個佇列與計數。
type AsyncHandler struct {
	next slog.Handler
	q    *queue
}

type queue struct {
	items   chan queued
	stop    chan struct{}
	stopped sync.Once
	done    chan struct{}
	dropped atomic.Uint64
}

type queued struct {
	ctx  context.Context
	next slog.Handler
	rec  slog.Record
}

// NewAsyncHandler 以容量 size 的佇列包裝 next；size <= 0 時使用 1024。
func NewAsyncHandler(next slog.Handler, size int) *AsyncHandler {
	if next == nil {
		next = NewHandler(ModeDev, nil)
	}
	if size <= 0 {
		size = defaultQueueSize
	}
	q := &queue{
		items: make(chan queued, size),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go q.loop()
	return &AsyncHandler{next: next, q: q}
}

// NewAsync 依模式建立非同步 logger，回傳的 handler 用於 Close 與觀測。
func NewAsync(mode LogMode, size int) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(NewHandler(mode, nil), size)
	return slog.New(ah), ah
}

func (q *queue) loop() {
	defer close(q.done)
	for {
		select {
		case it := <-q.items:
			_ = it.next.Handle(it.ctx, it.rec)
		case <-q.stop:
			// 寫完已入列的紀錄再結束
			for {
				select {
				case it := <-q.items:
					_ = it.next.Handle(it.ctx, it.rec)
				default:
					return
				}
			}
		}
	}
}

// Dropped 因佇列滿或已關閉而丟棄的紀錄數
func (h *AsyncHandler) Dropped() uint64 {
	if h == nil {
		return 0
	}
	return h.q.dropped.Load()
}

// Pending 尚未寫出的紀錄數
func (h *AsyncHandler) Pending() int {
	if h == nil {
		return 0
	}
	return len(h.q.items)
}

// Close 停止接收並寫完佇列；可重複呼叫。
func (h *AsyncHandler) Close() {
	if h == nil {
		return
	}
	h.q.stopped.Do(func() { close(h.q.stop) })
	<-h.q.done
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle 只入列，不回傳下游的錯誤（slog.Logger 本來就會忽略）。
func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	select {
	case <-h.q.stop:
		h.q.dropped.Add(1)
		return nil
	default:
	}
	// Record 的 attrs 可能與呼叫端共用底層陣列，跨 goroutine 前先 Clone
	select {
	case h.q.items <- queued{ctx: context.WithoutCancel(ctx), next: h.next, rec: r.Clone()}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), q: h.q}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), q: h.q}
}
