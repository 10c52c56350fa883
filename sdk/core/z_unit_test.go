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

package core

import (
	"slices"
	"testing"
)

func assertPanic(t *testing.T, f func(), msg string) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic for %s, but got none", msg)
		}
	}()
	f()
}

func TestCoreDeterminism(t *testing.T) {
	for _, name := range FactoryNames() {
		f, err := Factory(name)
		if err != nil {
			t.Fatalf("factory %s: %v", name, err)
		}
		c1 := New(f.New(7))
		c2 := New(f.New(7))
		for i := 0; i < 5; i++ {
			if c1.Uint64() != c2.Uint64() {
				t.Fatalf("[%s] Uint64 mismatch at %d", name, i)
			}
		}
		if c1.IntN(10) != c2.IntN(10) {
			t.Fatalf("[%s] IntN mismatch", name)
		}
		if c1.UintN(10) != c2.UintN(10) {
			t.Fatalf("[%s] UintN mismatch", name)
		}
		if c1.Float32() != c2.Float32() {
			t.Fatalf("[%s] Float32 mismatch", name)
		}
	}
}

func TestUnknownFactory(t *testing.T) {
	if _, err := Factory("xorshift"); err == nil {
		t.Fatalf("expected error for unknown prng")
	}
	f, err := Factory("")
	if err != nil || f == nil {
		t.Fatalf("empty name should give default factory, got %v", err)
	}
}

func TestFloatRanges(t *testing.T) {
	for _, name := range FactoryNames() {
		f, _ := Factory(name)
		c := New(f.New(11))
		for i := 0; i < 10000; i++ {
			if v := c.Float32(); v < 0 || v >= 1 {
				t.Fatalf("[%s] Float32 out of [0,1): %v", name, v)
			}
			if v := c.Float64(); v < 0 || v >= 1 {
				t.Fatalf("[%s] Float64 out of [0,1): %v", name, v)
			}
			if v := c.IntN(7); v < 0 || v >= 7 {
				t.Fatalf("[%s] IntN out of range: %d", name, v)
			}
		}
		if c.IntN(0) != -1 || c.UintN(0) != 0 {
			t.Fatalf("[%s] zero bound sentinel mismatch", name)
		}
	}
}

func TestSnapshotRestore(t *testing.T) {
	for _, name := range FactoryNames() {
		f, _ := Factory(name)
		c := New(f.New(99))
		c.Uint64()
		state, err := c.Snapshot()
		if err != nil {
			t.Fatalf("[%s] snapshot: %v", name, err)
		}
		want := []uint64{c.Uint64(), c.Uint64(), c.Uint64()}

		r := New(f.New(1))
		if err := r.Restore(state); err != nil {
			t.Fatalf("[%s] restore: %v", name, err)
		}
		got := []uint64{r.Uint64(), r.Uint64(), r.Uint64()}
		if !slices.Equal(want, got) {
			t.Fatalf("[%s] restored stream mismatch: want %v got %v", name, want, got)
		}
	}
}

func TestPCG32RestoreRejectsBadState(t *testing.T) {
	r := newPCG32WithSeed(1)
	if err := r.Restore([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for short state")
	}
	even := make([]byte, pcg32StateLen)
	if err := r.Restore(even); err == nil {
		t.Fatalf("expected error for even increment")
	}
}

func TestCoreShuffle(t *testing.T) {
	c := NewWithSeed(9)
	c.ShuffleInts(nil)

	src := []int{1, 2, 3, 4}
	c.ShuffleInts(src)
	got := slices.Clone(src)
	slices.Sort(got)
	if !slices.Equal([]int{1, 2, 3, 4}, got) {
		t.Fatalf("shuffle changed elements: %v", src)
	}
}

func TestScript(t *testing.T) {
	src := Script(0.25, 0.5)
	if src() != 0.25 || src() != 0.5 {
		t.Fatalf("script returned values out of order")
	}
	assertPanic(t, func() { src() }, "exhausted script")
}

func TestCounter(t *testing.T) {
	cnt := NewCounter(NewWithSeed(3).Source())
	src := cnt.Source()
	for i := 0; i < 4; i++ {
		src()
	}
	if cnt.Count() != 4 {
		t.Fatalf("count mismatch: got %d want 4", cnt.Count())
	}
}
