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
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/zintix-labs/resamplab/errs"
)

// LogMode 輸出格式與等級的組合
type LogMode uint8

const (
	ModeDev     LogMode = iota // text + debug，寫到 stderr
	ModeProd                   // JSON + info，寫到 stdout
	ModeSilence                // 全部丟棄
)

var modeNames = [...]string{
	ModeDev:     "dev",
	ModeProd:    "prod",
	ModeSilence: "silence",
}

func (m LogMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// ParseLogMode 解析 CLI / 設定檔的 log 模式（dev / prod / silence，不分大小寫）
func ParseLogMode(s string) (LogMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return LogMode(m), nil
		}
	}
	return ModeDev, errs.Warnf("unknown log mode %q (want dev, prod or silence)", s)
}

// New 同步 logger；CLI 一次跑完的模擬用這個，不需要 Close。
func New(mode LogMode) *slog.Logger {
	return slog.New(NewHandler(mode, nil))
}

// NewHandler 依模式建立 handler；w 為 nil 時 dev 寫 stderr、prod 寫 stdout。
func NewHandler(mode LogMode, w io.Writer) slog.Handler {
	switch mode {
	case ModeSilence:
		return slog.DiscardHandler
	case ModeProd:
		if w == nil {
			w = os.Stdout
		}
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		if w == nil {
			w = os.Stderr
		}
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}
