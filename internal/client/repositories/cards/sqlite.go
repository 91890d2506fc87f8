package cards

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

const cardColumns = `id, collection_id, front, back, ease_factor, interval_days,
	repetitions, due_date, last_reviewed_at, created_at, updated_at`

func scanCard(scan func(dest ...any) error) (models.Card, error) {
	var c models.Card
	err := scan(&c.ID, &c.CollectionID, &c.Front, &c.Back, &c.EaseFactor,
		&c.IntervalDays, &c.Repetitions, &c.DueDate, &c.LastReviewedAt,
		&c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Card, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	result := make([]models.Card, 0)
	for rows.Next() {
		c, err := scanCard(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate card rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Card, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card[%s]: %w", id, err)
	}
	return &c, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, card *models.Card) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.CollectionID, card.Front, card.Back, card.EaseFactor,
		card.IntervalDays, card.Repetitions, card.DueDate, card.LastReviewedAt,
		card.CreatedAt, card.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert card[%s]: %w", card.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, card *models.Card) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE cards SET collection_id = ?, front = ?, back = ?, ease_factor = ?,
			interval_days = ?, repetitions = ?, due_date = ?, last_reviewed_at = ?,
			created_at = ?, updated_at = ?
		WHERE id = ?`,
		card.CollectionID, card.Front, card.Back, card.EaseFactor,
		card.IntervalDays, card.Repetitions, card.DueDate, card.LastReviewedAt,
		card.CreatedAt, card.UpdatedAt, card.ID)
	if err != nil {
		return fmt.Errorf("failed to update card[%s]: %w", card.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card[%s]: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByCollectionID(ctx context.Context, collectionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE collection_id = ?`, collectionID)
	if err != nil {
		return fmt.Errorf("failed to delete cards of collection[%s]: %w", collectionID, err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, tx dbx.DBTX, items []models.Card) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cards`); err != nil {
		return fmt.Errorf("failed to clear cards: %w", err)
	}
	for _, card := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cards (`+cardColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			card.ID, card.CollectionID, card.Front, card.Back, card.EaseFactor,
			card.IntervalDays, card.Repetitions, card.DueDate, card.LastReviewedAt,
			card.CreatedAt, card.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert card[%s]: %w", card.ID, err)
		}
	}
	return nil
}
