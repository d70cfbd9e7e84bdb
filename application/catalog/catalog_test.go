package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/diorder/diorder/application/availability"
	"github.com/diorder/diorder/application/catalog"
	"github.com/diorder/diorder/constant"
	"github.com/diorder/diorder/model"
	kvrepo "github.com/diorder/diorder/repository/kv"
	cerr "github.com/diorder/diorder/utils/errors"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
)

type fixture struct {
	source       *SourceMock
	merchantRepo *MerchantRepoMock
	menuRepo     *MenuRepoMock
	txRepo       *TxRepoMock
	tracker      *catalog.Tracker
	clock        *testClock
	evaluator    *availability.Evaluator
	app          catalog.CatalogApp
}

func newFixture(t *testing.T, start time.Time) *fixture {
	t.Helper()

	f := &fixture{
		source:       NewSourceMock(t),
		merchantRepo: NewMerchantRepoMock(t),
		menuRepo:     NewMenuRepoMock(t),
		txRepo:       NewTxRepoMock(t),
		clock:        &testClock{now: start},
		evaluator:    availability.NewEvaluator(),
	}
	f.tracker = catalog.NewTrackerWithClock(kvrepo.NewMemoryRepository(), 5*time.Minute, f.clock.Now)
	f.app = catalog.NewCatalogApp(f.source, f.tracker, f.txRepo, f.merchantRepo, f.menuRepo, f.evaluator)
	return f
}

var testBase = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testMerchant(lastModified time.Time) model.Merchant {
	return model.Merchant{
		ID:           1,
		Name:         "Warung Bu Sri",
		OpeningHours: model.OpeningHours{Open: "08:00", Close: "21:00"},
		LastModified: lastModified,
	}
}

func TestCatalogApp_Merchants(t *testing.T) {
	remoteTS := testBase.Add(-time.Hour)

	tests := []struct {
		name        string
		mockCall    func(t *testing.T, f *fixture)
		want        []model.Merchant
		wantOffline bool
	}{
		{
			name: "success: fresh cache served without a remote call",
			mockCall: func(t *testing.T, f *fixture) {
				if err := f.tracker.MarkChecked(context.Background(), catalog.PartitionMerchants, remoteTS); err != nil {
					t.Fatalf("MarkChecked() error = %v", err)
				}
				f.merchantRepo.On("GetAll", mock.Anything).Return([]model.Merchant{testMerchant(remoteTS)}, nil).Once()
			},
			want:        []model.Merchant{testMerchant(remoteTS)},
			wantOffline: false,
		},
		{
			name: "success: empty cache forces a fetch and fills the store",
			mockCall: func(t *testing.T, f *fixture) {
				f.merchantRepo.On("GetAll", mock.Anything).Return([]model.Merchant{}, nil).Once()
				f.source.On("ListMerchants", mock.Anything).Return([]model.Merchant{testMerchant(remoteTS)}, nil).Once()
				f.merchantRepo.On("Put", mock.Anything, mock.MatchedBy(func(m *model.Merchant) bool {
					return m.ID == 1
				})).Return(nil).Once()
			},
			want:        []model.Merchant{testMerchant(remoteTS)},
			wantOffline: false,
		},
		{
			name: "offline: remote failure serves the cache",
			mockCall: func(t *testing.T, f *fixture) {
				f.merchantRepo.On("GetAll", mock.Anything).Return([]model.Merchant{testMerchant(remoteTS)}, nil).Once()
				f.source.On("ListMerchants", mock.Anything).Return(nil, errors.New("connection refused")).Once()
			},
			want:        []model.Merchant{testMerchant(remoteTS)},
			wantOffline: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testBase)
			if tt.mockCall != nil {
				tt.mockCall(t, f)
			}

			got, offline, err := f.app.Merchants(context.Background())
			if err != nil {
				t.Fatalf("Merchants() error = %v", err)
			}
			if offline != tt.wantOffline {
				t.Fatalf("offline = %v, want %v", offline, tt.wantOffline)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Merchants() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCatalogApp_Menu(t *testing.T) {
	oldTS := testBase.Add(-24 * time.Hour)
	newTS := testBase.Add(-time.Hour)

	cachedMenu := []model.MenuItem{{ID: 10, MerchantID: 1, Name: "Bakso Urat", Price: 12000, Active: true}}
	remoteMenu := []model.MenuItem{{ID: 10, MerchantID: 1, Name: "Bakso Urat", Price: 13000, Active: true}}

	tests := []struct {
		name        string
		mockCall    func(t *testing.T, f *fixture)
		want        []model.MenuItem
		wantOffline bool
	}{
		{
			name: "success: fresh partition served from the cache",
			mockCall: func(t *testing.T, f *fixture) {
				if err := f.tracker.MarkChecked(context.Background(), catalog.MerchantPartition(1), oldTS); err != nil {
					t.Fatalf("MarkChecked() error = %v", err)
				}
				f.menuRepo.On("ListByMerchant", mock.Anything, uint64(1)).Return(cachedMenu, nil).Once()
			},
			want:        cachedMenu,
			wantOffline: false,
		},
		{
			name: "success: changed merchant timestamp replaces the cached menu",
			mockCall: func(t *testing.T, f *fixture) {
				f.menuRepo.On("ListByMerchant", mock.Anything, uint64(1)).Return(cachedMenu, nil).Once()

				merchant := testMerchant(newTS)
				f.source.On("GetMerchant", mock.Anything, uint64(1)).Return(&merchant, nil).Once()
				f.source.On("ListMenu", mock.Anything, uint64(1), true).Return(remoteMenu, nil).Once()

				tx := &sqlx.Tx{}
				f.txRepo.On("BeginTx", mock.Anything).Return(tx, nil).Once()
				f.menuRepo.On("ReplaceMerchantMenuTx", mock.Anything, tx, uint64(1), remoteMenu).Return(nil).Once()
				f.txRepo.On("CommitTx", tx).Return(nil).Once()

				f.merchantRepo.On("Put", mock.Anything, &merchant).Return(nil).Once()
			},
			want:        remoteMenu,
			wantOffline: false,
		},
		{
			name: "success: unchanged timestamp keeps the cache",
			mockCall: func(t *testing.T, f *fixture) {
				if err := f.tracker.MarkChecked(context.Background(), catalog.MerchantPartition(1), oldTS); err != nil {
					t.Fatalf("MarkChecked() error = %v", err)
				}
				f.clock.Advance(6 * time.Minute)

				f.menuRepo.On("ListByMerchant", mock.Anything, uint64(1)).Return(cachedMenu, nil).Once()

				merchant := testMerchant(oldTS)
				f.source.On("GetMerchant", mock.Anything, uint64(1)).Return(&merchant, nil).Once()
			},
			want:        cachedMenu,
			wantOffline: false,
		},
		{
			name: "offline: remote failure serves the cache",
			mockCall: func(t *testing.T, f *fixture) {
				f.menuRepo.On("ListByMerchant", mock.Anything, uint64(1)).Return(cachedMenu, nil).Once()
				f.source.On("GetMerchant", mock.Anything, uint64(1)).Return(nil, errors.New("connection refused")).Once()
			},
			want:        cachedMenu,
			wantOffline: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testBase)
			if tt.mockCall != nil {
				tt.mockCall(t, f)
			}

			got, offline, err := f.app.Menu(context.Background(), 1)
			if err != nil {
				t.Fatalf("Menu() error = %v", err)
			}
			if offline != tt.wantOffline {
				t.Fatalf("offline = %v, want %v", offline, tt.wantOffline)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Menu() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCatalogApp_MenuItem(t *testing.T) {
	item := &model.MenuItem{ID: 10, MerchantID: 1, Name: "Bakso Urat", Price: 12000, Active: true}

	tests := []struct {
		name       string
		merchantID uint64
		itemID     uint64
		mockCall   func(f *fixture)
		want       *model.MenuItem
		wantErr    bool
		errCode    constant.ErrorType
	}{
		{
			name:       "success: item found",
			merchantID: 1,
			itemID:     10,
			mockCall: func(f *fixture) {
				f.menuRepo.On("GetByID", mock.Anything, uint64(10)).Return(item, nil).Once()
			},
			want: item,
		},
		{
			name:       "error: item belongs to a different merchant",
			merchantID: 2,
			itemID:     10,
			mockCall: func(f *fixture) {
				f.menuRepo.On("GetByID", mock.Anything, uint64(10)).Return(item, nil).Once()
			},
			wantErr: true,
			errCode: constant.ErrNotFound,
		},
		{
			name:       "error: item not cached",
			merchantID: 1,
			itemID:     99,
			mockCall: func(f *fixture) {
				f.menuRepo.On("GetByID", mock.Anything, uint64(99)).Return(nil, nil).Once()
			},
			wantErr: true,
			errCode: constant.ErrNotFound,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testBase)
			if tt.mockCall != nil {
				tt.mockCall(f)
			}

			got, err := f.app.MenuItem(context.Background(), tt.merchantID, tt.itemID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MenuItem() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var ce cerr.CustomError
				if !errors.As(err, &ce) {
					t.Fatalf("error type = %T, want CustomError", err)
				}
				if ce.ErrorCode() != constant.ErrorTypeCode[tt.errCode] {
					t.Fatalf("error code = %s, want %s", ce.ErrorCode(), constant.ErrorTypeCode[tt.errCode])
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("MenuItem() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// A settings change must flip the service flag and cascade the staleness
// invalidation into every merchant partition.
func TestCatalogApp_RefreshSettings(t *testing.T) {
	f := newFixture(t, testBase)
	ctx := context.Background()

	oldTS := testBase.Add(-24 * time.Hour)
	for _, p := range []string{catalog.PartitionMerchants, catalog.MerchantPartition(1), catalog.MerchantPartition(2)} {
		if err := f.tracker.MarkChecked(ctx, p, oldTS); err != nil {
			t.Fatalf("MarkChecked(%s) error = %v", p, err)
		}
	}

	settings := &model.Settings{IsOpen: false, LastModified: testBase.Add(-time.Minute)}
	f.source.On("GetSettings", mock.Anything).Return(settings, nil).Once()

	if err := f.app.RefreshSettings(ctx); err != nil {
		t.Fatalf("RefreshSettings() error = %v", err)
	}

	if f.evaluator.ServiceOpen() {
		t.Fatalf("ServiceOpen() = true after a closed settings push, want false")
	}
	for _, p := range []string{catalog.PartitionMerchants, catalog.MerchantPartition(1), catalog.MerchantPartition(2)} {
		if !f.tracker.IsStale(ctx, p, oldTS) {
			t.Fatalf("IsStale(%s) = false after settings change, want true", p)
		}
	}
}

func TestCatalogApp_RefreshSettings_RemoteFailure(t *testing.T) {
	f := newFixture(t, testBase)
	f.source.On("GetSettings", mock.Anything).Return(nil, errors.New("connection refused")).Once()

	err := f.app.RefreshSettings(context.Background())
	if err == nil {
		t.Fatalf("RefreshSettings() error = nil, want remote fetch error")
	}
	var ce cerr.CustomError
	if !errors.As(err, &ce) {
		t.Fatalf("error type = %T, want CustomError", err)
	}
	if ce.ErrorCode() != constant.ErrorTypeCode[constant.ErrRemoteFetch] {
		t.Fatalf("error code = %s, want %s", ce.ErrorCode(), constant.ErrorTypeCode[constant.ErrRemoteFetch])
	}
	if !f.evaluator.ServiceOpen() {
		t.Fatalf("ServiceOpen() = false after a failed refresh, want the previous value")
	}
}

func TestCatalogApp_ApplyChange(t *testing.T) {
	mustRaw := func(t *testing.T, v interface{}) json.RawMessage {
		t.Helper()
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal fixture: %v", err)
		}
		return raw
	}

	t.Run("settings record flips the service flag", func(t *testing.T) {
		f := newFixture(t, testBase)
		event := model.ChangeEvent{
			Table:  constant.ChangeTableSettings,
			Record: mustRaw(t, model.Settings{IsOpen: false, LastModified: testBase}),
		}

		f.app.ApplyChange(context.Background(), event)

		if f.evaluator.ServiceOpen() {
			t.Fatalf("ServiceOpen() = true, want false")
		}
	})

	t.Run("merchant record overwrites the cache row", func(t *testing.T) {
		f := newFixture(t, testBase)
		merchant := testMerchant(testBase)
		f.merchantRepo.On("Put", mock.Anything, &merchant).Return(nil).Once()

		f.app.ApplyChange(context.Background(), model.ChangeEvent{
			Table:  constant.ChangeTableMerchants,
			Record: mustRaw(t, merchant),
		})
	})

	t.Run("menu record overwrites the cache row", func(t *testing.T) {
		f := newFixture(t, testBase)
		item := model.MenuItem{ID: 10, MerchantID: 1, Name: "Bakso Urat", Price: 12000, Active: true}
		f.menuRepo.On("Put", mock.Anything, &item).Return(nil).Once()

		f.app.ApplyChange(context.Background(), model.ChangeEvent{
			Table:  constant.ChangeTableMenu,
			Record: mustRaw(t, item),
		})
	})

	t.Run("malformed record is dropped", func(t *testing.T) {
		f := newFixture(t, testBase)

		f.app.ApplyChange(context.Background(), model.ChangeEvent{
			Table:  constant.ChangeTableMerchants,
			Record: json.RawMessage(`{"id":`),
		})
	})

	t.Run("unknown table is ignored", func(t *testing.T) {
		f := newFixture(t, testBase)

		f.app.ApplyChange(context.Background(), model.ChangeEvent{
			Table:  "payments",
			Record: mustRaw(t, map[string]int{"id": 1}),
		})
	})
}
