package cartline

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/diorder/diorder/model"
	"github.com/jmoiron/sqlx"
)

type CartLineRepository interface {
	GetAll(ctx context.Context) ([]model.CartLineItem, error)
	Put(ctx context.Context, line *model.CartLineItem) error
	Delete(ctx context.Context, lineKey string) error
	DeleteByMerchant(ctx context.Context, merchantID uint64) error
	DeleteAll(ctx context.Context) error
}

type SQL struct {
	conn *sqlx.DB
}

func NewCartLineRepository(conn *sqlx.DB) CartLineRepository {
	return &SQL{conn: conn}
}

const (
	getAllLines = `SELECT line_key, merchant_id, menu_item_id, name, price, image, category, quantity, notes, selected
FROM cart_line ORDER BY rowid`

	upsertLine = `INSERT INTO cart_line (line_key, merchant_id, menu_item_id, name, price, image, category, quantity, notes, selected)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(line_key) DO UPDATE SET quantity = excluded.quantity, notes = excluded.notes, selected = excluded.selected`

	deleteLine          = `DELETE FROM cart_line WHERE line_key = ?`
	deleteLinesMerchant = `DELETE FROM cart_line WHERE merchant_id = ?`
	deleteAllLines      = `DELETE FROM cart_line`
)

type lineRow struct {
	LineKey    string         `db:"line_key"`
	MerchantID uint64         `db:"merchant_id"`
	MenuItemID uint64         `db:"menu_item_id"`
	Name       string         `db:"name"`
	Price      int64          `db:"price"`
	Image      string         `db:"image"`
	Category   string         `db:"category"`
	Quantity   int            `db:"quantity"`
	Notes      string         `db:"notes"`
	Selected   sql.NullString `db:"selected"`
}

func (s *SQL) GetAll(ctx context.Context) ([]model.CartLineItem, error) {
	rows, err := s.conn.QueryxContext(ctx, getAllLines)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]model.CartLineItem, 0)
	for rows.Next() {
		var r lineRow
		if err := rows.StructScan(&r); err != nil {
			return nil, err
		}
		line := model.CartLineItem{
			Key:        r.LineKey,
			MerchantID: r.MerchantID,
			MenuItemID: r.MenuItemID,
			Name:       r.Name,
			Price:      r.Price,
			Image:      r.Image,
			Category:   r.Category,
			Quantity:   r.Quantity,
			Notes:      r.Notes,
		}
		if r.Selected.Valid && r.Selected.String != "" {
			var sel model.SelectedOptions
			if err := json.Unmarshal([]byte(r.Selected.String), &sel); err != nil {
				return nil, err
			}
			line.Selected = &sel
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (s *SQL) Put(ctx context.Context, line *model.CartLineItem) error {
	var selected sql.NullString
	if line.Selected != nil {
		raw, err := json.Marshal(line.Selected)
		if err != nil {
			return err
		}
		selected = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.conn.ExecContext(ctx, upsertLine,
		line.Key, line.MerchantID, line.MenuItemID, line.Name, line.Price,
		line.Image, line.Category, line.Quantity, line.Notes, selected,
	)
	return err
}

func (s *SQL) Delete(ctx context.Context, lineKey string) error {
	_, err := s.conn.ExecContext(ctx, deleteLine, lineKey)
	return err
}

func (s *SQL) DeleteByMerchant(ctx context.Context, merchantID uint64) error {
	_, err := s.conn.ExecContext(ctx, deleteLinesMerchant, merchantID)
	return err
}

func (s *SQL) DeleteAll(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, deleteAllLines)
	return err
}
