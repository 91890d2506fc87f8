package collections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lexora-app/lexora-sync/internal/client/models"
	"github.com/lexora-app/lexora-sync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Collection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at FROM collections ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	result := make([]models.Collection, 0)
	for rows.Next() {
		var c models.Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection row: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collection rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Collection, error) {
	var c models.Collection
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM collections WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection[%s]: %w", id, err)
	}
	return &c, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, c *models.Collection) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO collections (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert collection[%s]: %w", c.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, c *models.Collection) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE collections SET name = ?, created_at = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.CreatedAt, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update collection[%s]: %w", c.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete collection[%s]: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, tx dbx.DBTX, items []models.Collection) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections`); err != nil {
		return fmt.Errorf("failed to clear collections: %w", err)
	}
	for _, c := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO collections (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, c.CreatedAt, c.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert collection[%s]: %w", c.ID, err)
		}
	}
	return nil
}
