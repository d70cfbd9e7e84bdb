package checkout_test

import (
	"context"

	"github.com/diorder/diorder/model"
)

// fakeMerchantRepo serves merchant rows from a map, standing in for the
// sqlite-backed cache.
type fakeMerchantRepo struct {
	merchants map[uint64]model.Merchant
}

func (f *fakeMerchantRepo) GetAll(ctx context.Context) ([]model.Merchant, error) {
	out := make([]model.Merchant, 0, len(f.merchants))
	for _, m := range f.merchants {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeMerchantRepo) GetByID(ctx context.Context, id uint64) (*model.Merchant, error) {
	m, ok := f.merchants[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *fakeMerchantRepo) Put(ctx context.Context, merchant *model.Merchant) error {
	f.merchants[merchant.ID] = *merchant
	return nil
}

func (f *fakeMerchantRepo) Delete(ctx context.Context, id uint64) error {
	delete(f.merchants, id)
	return nil
}

// fakeChannel records the hand-off instead of opening a wa.me link.
type fakeChannel struct {
	sendErr     error
	calls       int
	destination string
	message     string
}

func (f *fakeChannel) Send(destination, message string) error {
	f.calls++
	f.destination = destination
	f.message = message
	return f.sendErr
}
