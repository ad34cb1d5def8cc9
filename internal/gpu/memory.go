//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
)

// Memory management errors.
var (
	// ErrMemoryBudgetExceeded is returned when allocation would exceed budget.
	ErrMemoryBudgetExceeded = errors.New("gpu: memory budget exceeded")
)

// Default memory limits.
const (
	// DefaultMaxMemoryMB is the default GPU memory budget for textures and
	// render targets.
	DefaultMaxMemoryMB = 1024

	// MinMemoryMB is the minimum allowed memory budget.
	MinMemoryMB = 16
)

// MemoryStats contains GPU memory usage statistics.
type MemoryStats struct {
	// TotalBytes is the total memory budget in bytes.
	TotalBytes uint64

	// UsedBytes is the currently allocated memory in bytes.
	UsedBytes uint64

	// Allocations is the number of live textures and targets.
	Allocations int

	// PeakBytes is the highest UsedBytes seen.
	PeakBytes uint64
}

// Utilization returns the used fraction of the budget.
func (s MemoryStats) Utilization() float64 {
	if s.TotalBytes == 0 {
		return 0
	}
	return float64(s.UsedBytes) / float64(s.TotalBytes)
}

// String returns a human-readable string of memory stats.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%.1f%% used, %s/%s, %d allocations, peak %s]",
		s.Utilization()*100,
		humanize.IBytes(s.UsedBytes),
		humanize.IBytes(s.TotalBytes),
		s.Allocations,
		humanize.IBytes(s.PeakBytes))
}

// memoryManager accounts the bytes held by device textures and targets
// against a budget. It does not evict: every allocation is owned by a
// caller handle and released explicitly.
//
// memoryManager is safe for concurrent use.
type memoryManager struct {
	mu sync.Mutex

	budgetBytes uint64
	usedBytes   uint64
	peakBytes   uint64
	allocs      map[uint64]uint64
}

func newMemoryManager(maxMB int) *memoryManager {
	if maxMB <= 0 {
		maxMB = DefaultMaxMemoryMB
	}
	maxMB = max(maxMB, MinMemoryMB)
	//nolint:gosec // G115: maxMB bounded by MinMemoryMB minimum
	return &memoryManager{
		budgetBytes: uint64(maxMB) * 1024 * 1024,
		allocs:      make(map[uint64]uint64),
	}
}

// reserve records size bytes for id, failing if the budget would be exceeded.
func (m *memoryManager) reserve(id, size uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.usedBytes+size > m.budgetBytes {
		return fmt.Errorf("%w: need %s, have %s available",
			ErrMemoryBudgetExceeded, humanize.IBytes(size), humanize.IBytes(m.budgetBytes-m.usedBytes))
	}
	m.allocs[id] = size
	m.usedBytes += size
	m.peakBytes = max(m.peakBytes, m.usedBytes)
	return nil
}

// release returns the bytes recorded for id.
func (m *memoryManager) release(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if size, ok := m.allocs[id]; ok {
		m.usedBytes -= size
		delete(m.allocs, id)
	}
}

func (m *memoryManager) stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return MemoryStats{
		TotalBytes:  m.budgetBytes,
		UsedBytes:   m.usedBytes,
		Allocations: len(m.allocs),
		PeakBytes:   m.peakBytes,
	}
}

// textureBytes returns the size of a texture with a full or partial mip chain.
func textureBytes(width, height, levels, bytesPerTexel int) uint64 {
	var total uint64
	for i := 0; i < max(levels, 1); i++ {
		//nolint:gosec // G115: dimensions validated against device limits
		total += uint64(width) * uint64(height) * uint64(bytesPerTexel)
		width = max(1, width/2)
		height = max(1, height/2)
	}
	return total
}
