package merchantcache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/diorder/diorder/model"
	"github.com/jmoiron/sqlx"
)

type MerchantCacheRepository interface {
	GetAll(ctx context.Context) ([]model.Merchant, error)
	// GetByID returns (nil, nil) on a cache miss.
	GetByID(ctx context.Context, id uint64) (*model.Merchant, error)
	Put(ctx context.Context, merchant *model.Merchant) error
	Delete(ctx context.Context, id uint64) error
}

type SQL struct {
	conn *sqlx.DB
}

func NewMerchantCacheRepository(conn *sqlx.DB) MerchantCacheRepository {
	return &SQL{conn: conn}
}

const (
	getAllMerchants = `SELECT id, name, address, logo, open_time, close_time, last_modified
FROM merchant_cache ORDER BY id`

	getMerchantByID = `SELECT id, name, address, logo, open_time, close_time, last_modified
FROM merchant_cache WHERE id = ?`

	upsertMerchant = `INSERT INTO merchant_cache (id, name, address, logo, open_time, close_time, last_modified)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, address = excluded.address, logo = excluded.logo,
open_time = excluded.open_time, close_time = excluded.close_time, last_modified = excluded.last_modified`

	deleteMerchant = `DELETE FROM merchant_cache WHERE id = ?`
)

type merchantRow struct {
	ID           uint64       `db:"id"`
	Name         string       `db:"name"`
	Address      string       `db:"address"`
	Logo         string       `db:"logo"`
	OpenTime     string       `db:"open_time"`
	CloseTime    string       `db:"close_time"`
	LastModified sql.NullTime `db:"last_modified"`
}

func (r merchantRow) toModel() model.Merchant {
	m := model.Merchant{
		ID:      r.ID,
		Name:    r.Name,
		Address: r.Address,
		Logo:    r.Logo,
		OpeningHours: model.OpeningHours{
			Open:  r.OpenTime,
			Close: r.CloseTime,
		},
	}
	if r.LastModified.Valid {
		m.LastModified = r.LastModified.Time
	}
	return m
}

func (s *SQL) GetAll(ctx context.Context) ([]model.Merchant, error) {
	rows, err := s.conn.QueryxContext(ctx, getAllMerchants)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	merchants := make([]model.Merchant, 0)
	for rows.Next() {
		var r merchantRow
		if err := rows.StructScan(&r); err != nil {
			return nil, err
		}
		merchants = append(merchants, r.toModel())
	}
	return merchants, rows.Err()
}

func (s *SQL) GetByID(ctx context.Context, id uint64) (*model.Merchant, error) {
	var r merchantRow
	if err := s.conn.QueryRowxContext(ctx, getMerchantByID, id).StructScan(&r); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m := r.toModel()
	return &m, nil
}

func (s *SQL) Put(ctx context.Context, merchant *model.Merchant) error {
	_, err := s.conn.ExecContext(ctx, upsertMerchant,
		merchant.ID, merchant.Name, merchant.Address, merchant.Logo,
		merchant.OpeningHours.Open, merchant.OpeningHours.Close, timeValue(merchant.LastModified),
	)
	return err
}

func (s *SQL) Delete(ctx context.Context, id uint64) error {
	_, err := s.conn.ExecContext(ctx, deleteMerchant, id)
	return err
}

func timeValue(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
