package perf

import (
	"os"
	"testing"

	"github.com/zintix-labs/resamplab/errs"
)

func TestParseMode(t *testing.T) {
	for _, s := range []string{"", "cpu", "HEAP", " allocs ", "mutex"} {
		if _, err := ParseMode(s); err != nil {
			t.Fatalf("ParseMode(%q) unexpected err: %v", s, err)
		}
	}
	if _, err := ParseMode("block"); errs.Level(err) != errs.Warn {
		t.Fatalf("expected warn for unknown mode, got %v", err)
	}
}

func TestRunWritesProfile(t *testing.T) {
	dir := t.TempDir()
	for _, m := range []Mode{ModeCPU, ModeHeap, ModeAllocs, ModeMutex} {
		ran := false
		if err := Run(m, dir, func() { ran = true }); err != nil {
			t.Fatalf("Run(%s) err: %v", m, err)
		}
		if !ran {
			t.Fatalf("Run(%s) did not execute", m)
		}
		st, err := os.Stat(Path(dir, m))
		if err != nil {
			t.Fatalf("Run(%s) wrote no profile: %v", m, err)
		}
		if st.Size() == 0 {
			t.Fatalf("Run(%s) wrote empty profile", m)
		}
	}
}

func TestRunOff(t *testing.T) {
	dir := t.TempDir()
	ran := false
	if err := Run(ModeOff, dir, func() { ran = true }); err != nil || !ran {
		t.Fatalf("ModeOff should only run exe, ran=%v err=%v", ran, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("ModeOff wrote files: %v", entries)
	}
}
