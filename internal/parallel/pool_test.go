package parallel

import (
	"sync/atomic"
	"testing"
)

func TestPoolRun(t *testing.T) {
	for _, workers := range []int{1, 2, 4, 0} {
		p := NewPool(workers)
		var sum atomic.Int64
		jobs := make([]func(), 100)
		for i := range jobs {
			jobs[i] = func() { sum.Add(int64(i)) }
		}
		p.Run(jobs)
		if got := sum.Load(); got != 4950 {
			t.Errorf("workers=%d: sum = %d, want 4950", workers, got)
		}
		p.Close()
		p.Close()
	}
}

func TestPoolRunAfterClose(t *testing.T) {
	p := NewPool(3)
	p.Close()
	ran := 0
	p.Run([]func(){func() { ran++ }, func() { ran++ }})
	if ran != 2 {
		t.Errorf("ran = %d, want 2", ran)
	}
}

func TestPoolWorkers(t *testing.T) {
	p := NewPool(3)
	defer p.Close()
	if p.Workers() != 3 {
		t.Errorf("Workers() = %d, want 3", p.Workers())
	}
	q := NewPool(0)
	defer q.Close()
	if q.Workers() < 1 {
		t.Error("NewPool(0) should use GOMAXPROCS")
	}
}

func TestBands(t *testing.T) {
	tests := []struct {
		name                   string
		height, parts, minRows int
		want                   []Band
	}{
		{"empty", 0, 4, 1, nil},
		{"single", 5, 1, 1, []Band{{0, 5}}},
		{"even", 8, 4, 1, []Band{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
		{"remainder first", 10, 3, 1, []Band{{0, 4}, {4, 7}, {7, 10}}},
		{"min rows limits parts", 10, 8, 4, []Band{{0, 5}, {5, 10}}},
		{"fewer rows than min", 3, 8, 16, []Band{{0, 3}}},
		{"more parts than rows", 2, 8, 0, []Band{{0, 1}, {1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bands(tt.height, tt.parts, tt.minRows)
			if len(got) != len(tt.want) {
				t.Fatalf("Bands() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("band %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
