package cache

import (
	"fmt"
	"testing"
)

func TestSymbolSet_Add(t *testing.T) {
	s := NewSymbolSet()

	if n := s.Add("AAPL", "MSFT"); n != 2 {
		t.Errorf("Add() = %d, want 2", n)
	}
	if n := s.Add("AAPL", "TSLA", ""); n != 1 {
		t.Errorf("Add() = %d, want 1", n)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}

	got := s.Snapshot()
	want := []string{"AAPL", "MSFT", "TSLA"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSymbolSet_Contains(t *testing.T) {
	s := NewSymbolSet()
	s.Add("AAPL")

	if !s.Contains("AAPL") {
		t.Error("Contains(AAPL) = false, want true")
	}
	if s.Contains("TSLA") {
		t.Error("Contains(TSLA) = true, want false")
	}
}

func TestSymbolSet_SnapshotIsCopy(t *testing.T) {
	s := NewSymbolSet()
	s.Add("AAPL")

	snap := s.Snapshot()
	snap[0] = "ZZZ"

	if got := s.Snapshot()[0]; got != "AAPL" {
		t.Errorf("set mutated through snapshot: got %q", got)
	}
}

func TestSymbolSet_NoEviction(t *testing.T) {
	s := NewSymbolSet()

	const n = 5000
	for i := 0; i < n; i++ {
		s.Add(fmt.Sprintf("UNKNOWN%d", i))
	}

	if s.Len() != n {
		t.Errorf("Len() = %d, want %d", s.Len(), n)
	}
	if !s.Contains("UNKNOWN0") {
		t.Error("Contains(UNKNOWN0) = false, oldest symbol was evicted")
	}
}
