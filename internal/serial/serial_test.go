package serial_test

import (
	"sync"
	"testing"

	"github.com/abrezinsky/zoolo/internal/serial"
)

func TestNext_UniqueUnderConcurrency(t *testing.T) {
	gen, err := serial.New(1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	const workers, perWorker = 8, 500
	var mu sync.Mutex
	seen := make(map[string]bool, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				s := gen.Next()
				mu.Lock()
				if seen[s] {
					t.Errorf("duplicate serial %s", s)
				}
				seen[s] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d serials, got %d", workers*perWorker, len(seen))
	}
}

func TestNext_DistinctNodes(t *testing.T) {
	a, _ := serial.New(1)
	b, _ := serial.New(2)
	if a.Next() == b.Next() {
		t.Error("expected different nodes to issue different serials")
	}
}

func TestNew_RejectsOutOfRangeNode(t *testing.T) {
	if _, err := serial.New(5000); err == nil {
		t.Error("expected error for node outside 0-1023")
	}
}
