package menucache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/diorder/diorder/model"
	"github.com/jmoiron/sqlx"
)

type MenuCacheRepository interface {
	GetAll(ctx context.Context) ([]model.MenuItem, error)
	GetByID(ctx context.Context, id uint64) (*model.MenuItem, error)
	ListByMerchant(ctx context.Context, merchantID uint64) ([]model.MenuItem, error)
	Put(ctx context.Context, item *model.MenuItem) error
	Delete(ctx context.Context, id uint64) error
	// ReplaceMerchantMenuTx swaps a merchant's whole cached menu inside the
	// given transaction, so readers never observe the half-replaced state.
	ReplaceMerchantMenuTx(ctx context.Context, tx *sqlx.Tx, merchantID uint64, items []model.MenuItem) error
}

type SQL struct {
	conn *sqlx.DB
}

func NewMenuCacheRepository(conn *sqlx.DB) MenuCacheRepository {
	return &SQL{conn: conn}
}

const (
	getAllMenu = `SELECT id, merchant_id, name, price, image, category, options, active, last_modified
FROM menu_cache ORDER BY id`

	getMenuByID = `SELECT id, merchant_id, name, price, image, category, options, active, last_modified
FROM menu_cache WHERE id = ?`

	listMenuByMerchant = `SELECT id, merchant_id, name, price, image, category, options, active, last_modified
FROM menu_cache WHERE merchant_id = ? ORDER BY id`

	upsertMenu = `INSERT INTO menu_cache (id, merchant_id, name, price, image, category, options, active, last_modified)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET merchant_id = excluded.merchant_id, name = excluded.name, price = excluded.price,
image = excluded.image, category = excluded.category, options = excluded.options, active = excluded.active,
last_modified = excluded.last_modified`

	deleteMenu           = `DELETE FROM menu_cache WHERE id = ?`
	deleteMenuByMerchant = `DELETE FROM menu_cache WHERE merchant_id = ?`
)

type menuRow struct {
	ID           uint64         `db:"id"`
	MerchantID   uint64         `db:"merchant_id"`
	Name         string         `db:"name"`
	Price        int64          `db:"price"`
	Image        string         `db:"image"`
	Category     string         `db:"category"`
	Options      sql.NullString `db:"options"`
	Active       bool           `db:"active"`
	LastModified sql.NullTime   `db:"last_modified"`
}

func (r menuRow) toModel() (model.MenuItem, error) {
	item := model.MenuItem{
		ID:         r.ID,
		MerchantID: r.MerchantID,
		Name:       r.Name,
		Price:      r.Price,
		Image:      r.Image,
		Category:   r.Category,
		Active:     r.Active,
	}
	if r.LastModified.Valid {
		item.LastModified = r.LastModified.Time
	}
	if r.Options.Valid && r.Options.String != "" {
		if err := json.Unmarshal([]byte(r.Options.String), &item.Options); err != nil {
			return item, err
		}
	}
	return item, nil
}

func optionsValue(item *model.MenuItem) (sql.NullString, error) {
	if len(item.Options) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(item.Options)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func (s *SQL) GetAll(ctx context.Context) ([]model.MenuItem, error) {
	return s.scanMany(ctx, getAllMenu)
}

func (s *SQL) GetByID(ctx context.Context, id uint64) (*model.MenuItem, error) {
	var r menuRow
	if err := s.conn.QueryRowxContext(ctx, getMenuByID, id).StructScan(&r); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	item, err := r.toModel()
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *SQL) ListByMerchant(ctx context.Context, merchantID uint64) ([]model.MenuItem, error) {
	return s.scanMany(ctx, listMenuByMerchant, merchantID)
}

func (s *SQL) Put(ctx context.Context, item *model.MenuItem) error {
	options, err := optionsValue(item)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, upsertMenu,
		item.ID, item.MerchantID, item.Name, item.Price, item.Image,
		item.Category, options, item.Active, timeValue(item.LastModified),
	)
	return err
}

func (s *SQL) Delete(ctx context.Context, id uint64) error {
	_, err := s.conn.ExecContext(ctx, deleteMenu, id)
	return err
}

func (s *SQL) ReplaceMerchantMenuTx(ctx context.Context, tx *sqlx.Tx, merchantID uint64, items []model.MenuItem) error {
	if _, err := tx.ExecContext(ctx, deleteMenuByMerchant, merchantID); err != nil {
		return err
	}
	for i := range items {
		item := items[i]
		item.MerchantID = merchantID
		options, err := optionsValue(&item)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, upsertMenu,
			item.ID, item.MerchantID, item.Name, item.Price, item.Image,
			item.Category, options, item.Active, timeValue(item.LastModified),
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQL) scanMany(ctx context.Context, query string, args ...interface{}) ([]model.MenuItem, error) {
	rows, err := s.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.MenuItem, 0)
	for rows.Next() {
		var r menuRow
		if err := rows.StructScan(&r); err != nil {
			return nil, err
		}
		item, err := r.toModel()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func timeValue(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
