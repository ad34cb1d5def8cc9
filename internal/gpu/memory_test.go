//go:build !nogpu

package gpu

import (
	"errors"
	"strings"
	"testing"
)

func TestTextureBytes(t *testing.T) {
	tests := []struct {
		name                 string
		width, height, level int
		bpt                  int
		want                 uint64
	}{
		{"single level", 100, 100, 1, 4, 100 * 100 * 4},
		{"zero levels counts base", 8, 8, 0, 1, 64},
		{"full chain", 4, 4, 3, 1, 16 + 4 + 1},
		{"non square", 4, 2, 3, 8, (8 + 2 + 1) * 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textureBytes(tt.width, tt.height, tt.level, tt.bpt); got != tt.want {
				t.Errorf("textureBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMemoryManagerBudget(t *testing.T) {
	m := newMemoryManager(MinMemoryMB)
	budget := uint64(MinMemoryMB) * 1024 * 1024

	if err := m.reserve(1, budget/2); err != nil {
		t.Fatalf("reserve() = %v", err)
	}
	if err := m.reserve(2, budget/2); err != nil {
		t.Fatalf("reserve() = %v", err)
	}
	err := m.reserve(3, 1)
	if !errors.Is(err, ErrMemoryBudgetExceeded) {
		t.Fatalf("reserve() over budget = %v, want ErrMemoryBudgetExceeded", err)
	}

	m.release(1)
	m.release(1)
	s := m.stats()
	if s.UsedBytes != budget/2 {
		t.Errorf("UsedBytes = %d, want %d", s.UsedBytes, budget/2)
	}
	if s.PeakBytes != budget {
		t.Errorf("PeakBytes = %d, want %d", s.PeakBytes, budget)
	}
	if s.Allocations != 1 {
		t.Errorf("Allocations = %d, want 1", s.Allocations)
	}
	if got := s.Utilization(); got != 0.5 {
		t.Errorf("Utilization() = %v, want 0.5", got)
	}
}

func TestMemoryManagerDefaults(t *testing.T) {
	tests := []struct {
		maxMB int
		want  uint64
	}{
		{0, DefaultMaxMemoryMB * 1024 * 1024},
		{-5, DefaultMaxMemoryMB * 1024 * 1024},
		{1, MinMemoryMB * 1024 * 1024},
		{64, 64 * 1024 * 1024},
	}
	for _, tt := range tests {
		if got := newMemoryManager(tt.maxMB).stats().TotalBytes; got != tt.want {
			t.Errorf("newMemoryManager(%d) budget = %d, want %d", tt.maxMB, got, tt.want)
		}
	}
}

func TestMemoryStatsString(t *testing.T) {
	s := MemoryStats{TotalBytes: 1 << 30, UsedBytes: 1 << 29, Allocations: 3, PeakBytes: 1 << 29}
	got := s.String()
	for _, want := range []string{"50.0% used", "512 MiB/1.0 GiB", "3 allocations"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
	if (MemoryStats{}).Utilization() != 0 {
		t.Error("Utilization() of empty stats should be 0")
	}
}
