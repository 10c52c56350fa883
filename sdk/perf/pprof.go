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

// Package perf 以 runtime/pprof 包住一次模擬，輸出可供 `go tool pprof` 或 PGO 使用的 profile。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/zintix-labs/resamplab/errs"
)

// DefaultDir 預設的 profile 輸出目錄
const DefaultDir = "build/profiling"

// Mode profile 種類
type Mode string

const (
	ModeOff    Mode = ""
	ModeCPU    Mode = "cpu"
	ModeHeap   Mode = "heap"
	ModeAllocs Mode = "allocs"
	ModeMutex  Mode = "mutex" // 多 worker 模擬時共用 trace writer 的鎖競爭
)

// ParseMode 解析 CLI 的 -p 參數（不分大小寫，空字串代表不開啟）
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeOff, ModeCPU, ModeHeap, ModeAllocs, ModeMutex:
		return m, nil
	default:
		return ModeOff, errs.Warnf("unknown pprof mode %q (want cpu, heap, allocs or mutex)", s)
	}
}

// Path 回傳 mode 在 dir 下的輸出檔路徑，例如 build/profiling/cpu.pprof
func Path(dir string, mode Mode) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, string(mode)+".pprof")
}

// Run 依 mode 執行 exe 並寫出 profile；ModeOff 只執行 exe。
//
// CPU profile 涵蓋整個 exe；heap/allocs/mutex 在 exe 結束後拍一次快照。
func Run(mode Mode, dir string, exe func()) error {
	if mode == ModeOff {
		exe()
		return nil
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	path := Path(dir, mode)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(err, "create pprof dir failed")
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(err, "create pprof file failed")
	}
	defer f.Close()

	switch mode {
	case ModeCPU:
		if err := pprof.StartCPUProfile(f); err != nil {
			return errs.Wrap(err, "start cpu profile failed")
		}
		exe()
		pprof.StopCPUProfile()
		return nil
	case ModeMutex:
		prev := runtime.SetMutexProfileFraction(1)
		defer runtime.SetMutexProfileFraction(prev)
		exe()
		return writeLookup(f, "mutex")
	case ModeHeap:
		exe()
		// 盡量讓快照貼近最新的 live objects
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return errs.Wrap(err, "write heap profile failed")
		}
		return nil
	default: // ModeAllocs
		exe()
		return writeLookup(f, "allocs")
	}
}

func writeLookup(f *os.File, name string) error {
	prof := pprof.Lookup(name)
	if prof == nil {
		return errs.Fatalf("pprof profile %s not found", name)
	}
	if err := prof.WriteTo(f, 0); err != nil {
		return errs.Wrap(err, "write "+name+" profile failed")
	}
	return nil
}
