package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/profilebot/internal/common"
	"github.com/dmitrijs2005/profilebot/internal/dbx"
)

// SQLiteRepository writes every change immediately; Save is a no-op.
type SQLiteRepository struct {
	db *sql.DB
	q  dbx.DBTX
}

func (r *SQLiteRepository) Add(ctx context.Context, it Item) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO items (name, url, model_id, visited) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			url = excluded.url,
			model_id = excluded.model_id,
			visited = excluded.visited
	`, it.Name, it.URL, it.ModelID, it.Visited)
	if err != nil {
		return fmt.Errorf("failed to add item[%s]: %w", it.Name, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkVisited(ctx context.Context, name string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `UPDATE items SET visited = 1 WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("failed to mark item[%s] visited: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark item[%s] visited: %w", name, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, name string) (Item, error) {
	var it Item
	err := r.q.QueryRowContext(ctx,
		`SELECT name, url, model_id, visited FROM items WHERE name = ?`, name,
	).Scan(&it.Name, &it.URL, &it.ModelID, &it.Visited)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, fmt.Errorf("item %q: %w", name, common.ErrNotFound)
	}
	if err != nil {
		return Item{}, fmt.Errorf("failed to get item[%s]: %w", name, err)
	}
	return it, nil
}

func (r *SQLiteRepository) Unvisited(ctx context.Context) ([]Item, error) {
	return r.query(ctx, `SELECT name, url, model_id, visited FROM items WHERE visited = 0 ORDER BY name`)
}

func (r *SQLiteRepository) All(ctx context.Context) ([]Item, error) {
	return r.query(ctx, `SELECT name, url, model_id, visited FROM items ORDER BY name`)
}

func (r *SQLiteRepository) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(visited), 0) FROM items`,
	).Scan(&c.Total, &c.Visited)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count items: %w", err)
	}
	c.Unvisited = c.Total - c.Visited
	return c, nil
}

func (r *SQLiteRepository) Save(context.Context) error { return nil }

func (r *SQLiteRepository) Close() error { return r.db.Close() }

func (r *SQLiteRepository) query(ctx context.Context, q string) ([]Item, error) {
	rows, err := r.q.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Name, &it.URL, &it.ModelID, &it.Visited); err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item rows: %w", err)
	}
	return out, nil
}
