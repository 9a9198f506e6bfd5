package transcribe

import (
	"sync"
	"testing"
)

func TestKeyPoolRoundRobin(t *testing.T) {
	p := NewKeyPool([]string{"a", "b", "c"})

	want := []string{"a", "b", "c", "a", "b", "c", "a"}
	for i, w := range want {
		if got := p.Next(); got != w {
			t.Errorf("Next() call %d = %q, want %q", i, got, w)
		}
	}
}

func TestKeyPoolFiltersEmptyKeys(t *testing.T) {
	p := NewKeyPool([]string{"", "a", "", "b"})
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}
}

func TestKeyPoolEmpty(t *testing.T) {
	p := NewKeyPool(nil)
	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
	if got := p.Next(); got != "" {
		t.Errorf("Next() on empty pool = %q, want empty", got)
	}
}

func TestKeyPoolConcurrentTake(t *testing.T) {
	keys := []string{"a", "b", "c", "d"}
	p := NewKeyPool(keys)

	const takes = 400
	counts := make(map[string]int)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < takes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k := p.Next()
			mu.Lock()
			counts[k]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Rotation is circular, so concurrent takers split the load evenly.
	for _, k := range keys {
		if counts[k] != takes/len(keys) {
			t.Errorf("key %q taken %d times, want %d", k, counts[k], takes/len(keys))
		}
	}
}
