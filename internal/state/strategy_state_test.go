package state

import (
	"context"
	"sync"
	"testing"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	return val, ok, nil
}

func (m *memoryStore) Set(ctx context.Context, key string, value []byte) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryStore) Close() error { return nil }

func TestStrategyStateRoundTrip(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	in := StrategyState{
		Name:          "grid-eth",
		BasePrice:     3000,
		FilledLevels:  []int{-1, -3, 2},
		InvestedUSD:   300,
		LastBuyUnixMS: 1756400000000,
		UpdatedAtMS:   1756400005000,
	}
	if err := SaveStrategyState(ctx, store, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, ok, err := LoadStrategyState(ctx, store, "grid-eth")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("expected state found")
	}
	if out.BasePrice != in.BasePrice || out.InvestedUSD != in.InvestedUSD || out.LastBuyUnixMS != in.LastBuyUnixMS {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if len(out.FilledLevels) != 3 || out.FilledLevels[0] != -1 {
		t.Fatalf("filled levels mismatch: %v", out.FilledLevels)
	}
}

func TestLoadStrategyStateMissing(t *testing.T) {
	_, ok, err := LoadStrategyState(context.Background(), newMemoryStore(), "nope")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatal("expected not found")
	}
}

func TestSaveStrategyStateNilStore(t *testing.T) {
	if err := SaveStrategyState(context.Background(), nil, StrategyState{Name: "x"}); err != nil {
		t.Fatalf("expected nil store tolerated, got %v", err)
	}
}
