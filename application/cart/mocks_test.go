package cart_test

import (
	"context"
	"sync"

	"github.com/diorder/diorder/model"
)

// fakeLineRepo is an in-memory CartLineRepository that preserves insertion
// order, standing in for the sqlite-backed implementation.
type fakeLineRepo struct {
	mu    sync.Mutex
	order []string
	lines map[string]model.CartLineItem
}

func newFakeLineRepo() *fakeLineRepo {
	return &fakeLineRepo{lines: make(map[string]model.CartLineItem)}
}

func (f *fakeLineRepo) GetAll(ctx context.Context) ([]model.CartLineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.CartLineItem, 0, len(f.order))
	for _, key := range f.order {
		out = append(out, f.lines[key])
	}
	return out, nil
}

func (f *fakeLineRepo) Put(ctx context.Context, line *model.CartLineItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.lines[line.Key]; !ok {
		f.order = append(f.order, line.Key)
	}
	f.lines[line.Key] = *line
	return nil
}

func (f *fakeLineRepo) Delete(ctx context.Context, lineKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drop(lineKey)
	return nil
}

func (f *fakeLineRepo) DeleteByMerchant(ctx context.Context, merchantID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for key, line := range f.lines {
		if line.MerchantID == merchantID {
			f.drop(key)
		}
	}
	return nil
}

func (f *fakeLineRepo) DeleteAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = nil
	f.lines = make(map[string]model.CartLineItem)
	return nil
}

func (f *fakeLineRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

func (f *fakeLineRepo) drop(key string) {
	if _, ok := f.lines[key]; !ok {
		return
	}
	delete(f.lines, key)
	for i, k := range f.order {
		if k == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}
