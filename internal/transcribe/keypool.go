package transcribe

import "sync/atomic"

// KeyPool hands out API keys round-robin. The cursor is the only piece of
// shared mutable state on the transcription hot path, so taking the next key
// is a single atomic operation; concurrent chunks never observe the same
// cursor value.
type KeyPool struct {
	keys   []string
	cursor atomic.Uint64
}

func NewKeyPool(keys []string) *KeyPool {
	filtered := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			filtered = append(filtered, k)
		}
	}
	return &KeyPool{keys: filtered}
}

// Len reports how many keys are configured.
func (p *KeyPool) Len() int { return len(p.keys) }

// Next advances the circular cursor and returns the selected key. With an
// empty pool it returns "".
func (p *KeyPool) Next() string {
	if len(p.keys) == 0 {
		return ""
	}
	n := p.cursor.Add(1) - 1
	return p.keys[n%uint64(len(p.keys))]
}
