package catalog_test

import (
	"context"
	"testing"

	"github.com/diorder/diorder/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
)

type SourceMock struct {
	mock.Mock
}

func NewSourceMock(t *testing.T) *SourceMock {
	m := &SourceMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *SourceMock) GetMerchant(ctx context.Context, id uint64) (*model.Merchant, error) {
	args := m.Called(ctx, id)
	var merchant *model.Merchant
	if args.Get(0) != nil {
		merchant = args.Get(0).(*model.Merchant)
	}
	return merchant, args.Error(1)
}

func (m *SourceMock) ListMerchants(ctx context.Context) ([]model.Merchant, error) {
	args := m.Called(ctx)
	var merchants []model.Merchant
	if args.Get(0) != nil {
		merchants = args.Get(0).([]model.Merchant)
	}
	return merchants, args.Error(1)
}

func (m *SourceMock) ListMenu(ctx context.Context, merchantID uint64, activeOnly bool) ([]model.MenuItem, error) {
	args := m.Called(ctx, merchantID, activeOnly)
	var items []model.MenuItem
	if args.Get(0) != nil {
		items = args.Get(0).([]model.MenuItem)
	}
	return items, args.Error(1)
}

func (m *SourceMock) GetSettings(ctx context.Context) (*model.Settings, error) {
	args := m.Called(ctx)
	var settings *model.Settings
	if args.Get(0) != nil {
		settings = args.Get(0).(*model.Settings)
	}
	return settings, args.Error(1)
}

type MerchantRepoMock struct {
	mock.Mock
}

func NewMerchantRepoMock(t *testing.T) *MerchantRepoMock {
	m := &MerchantRepoMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MerchantRepoMock) GetAll(ctx context.Context) ([]model.Merchant, error) {
	args := m.Called(ctx)
	var merchants []model.Merchant
	if args.Get(0) != nil {
		merchants = args.Get(0).([]model.Merchant)
	}
	return merchants, args.Error(1)
}

func (m *MerchantRepoMock) GetByID(ctx context.Context, id uint64) (*model.Merchant, error) {
	args := m.Called(ctx, id)
	var merchant *model.Merchant
	if args.Get(0) != nil {
		merchant = args.Get(0).(*model.Merchant)
	}
	return merchant, args.Error(1)
}

func (m *MerchantRepoMock) Put(ctx context.Context, merchant *model.Merchant) error {
	args := m.Called(ctx, merchant)
	return args.Error(0)
}

func (m *MerchantRepoMock) Delete(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MenuRepoMock struct {
	mock.Mock
}

func NewMenuRepoMock(t *testing.T) *MenuRepoMock {
	m := &MenuRepoMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MenuRepoMock) GetAll(ctx context.Context) ([]model.MenuItem, error) {
	args := m.Called(ctx)
	var items []model.MenuItem
	if args.Get(0) != nil {
		items = args.Get(0).([]model.MenuItem)
	}
	return items, args.Error(1)
}

func (m *MenuRepoMock) GetByID(ctx context.Context, id uint64) (*model.MenuItem, error) {
	args := m.Called(ctx, id)
	var item *model.MenuItem
	if args.Get(0) != nil {
		item = args.Get(0).(*model.MenuItem)
	}
	return item, args.Error(1)
}

func (m *MenuRepoMock) ListByMerchant(ctx context.Context, merchantID uint64) ([]model.MenuItem, error) {
	args := m.Called(ctx, merchantID)
	var items []model.MenuItem
	if args.Get(0) != nil {
		items = args.Get(0).([]model.MenuItem)
	}
	return items, args.Error(1)
}

func (m *MenuRepoMock) Put(ctx context.Context, item *model.MenuItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MenuRepoMock) Delete(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MenuRepoMock) ReplaceMerchantMenuTx(ctx context.Context, tx *sqlx.Tx, merchantID uint64, items []model.MenuItem) error {
	args := m.Called(ctx, tx, merchantID, items)
	return args.Error(0)
}

type TxRepoMock struct {
	mock.Mock
}

func NewTxRepoMock(t *testing.T) *TxRepoMock {
	m := &TxRepoMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *TxRepoMock) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	args := m.Called(ctx)
	var tx *sqlx.Tx
	if args.Get(0) != nil {
		tx = args.Get(0).(*sqlx.Tx)
	}
	return tx, args.Error(1)
}

func (m *TxRepoMock) CommitTx(tx *sqlx.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

func (m *TxRepoMock) RollbackTx(tx *sqlx.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}
