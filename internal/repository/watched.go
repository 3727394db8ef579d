package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/popcorn/internal/domain"
)

// WatchedRepository stores each session's watched list as an ordered set of
// rows keyed by owner.
type WatchedRepository struct {
	pool *pgxpool.Pool
}

const watchedColumns = `
    movie_id,
    detail,
    user_rating,
    added_at
`

// Save replaces owner's stored list with entries, preserving their order.
func (r *WatchedRepository) Save(ctx context.Context, owner string, entries []domain.WatchedEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin watched save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM watched_entries WHERE owner_id = $1`, owner); err != nil {
		return fmt.Errorf("clear watched entries: %w", err)
	}

	batch := &pgx.Batch{}
	for i, entry := range entries {
		detailJSON, err := json.Marshal(entry.MovieDetail)
		if err != nil {
			return fmt.Errorf("marshal detail %s: %w", entry.ID, err)
		}
		addedAt := entry.AddedAt
		if addedAt.IsZero() {
			addedAt = time.Now().UTC()
		}
		batch.Queue(`
            INSERT INTO watched_entries (owner_id, movie_id, position, detail, user_rating, added_at)
            VALUES ($1,$2,$3,$4,$5,$6)
            ON CONFLICT (owner_id, movie_id) DO NOTHING
        `, owner, entry.ID, i, detailJSON, entry.UserRating, addedAt)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert watched entries: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit watched save: %w", err)
	}
	return nil
}

// Load returns owner's stored list in its saved order.
func (r *WatchedRepository) Load(ctx context.Context, owner string) ([]domain.WatchedEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM watched_entries WHERE owner_id = $1 ORDER BY position`, watchedColumns)
	rows, err := r.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.WatchedEntry, 0)
	for rows.Next() {
		entry, err := scanWatched(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes everything stored for owner.
func (r *WatchedRepository) Delete(ctx context.Context, owner string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM watched_entries WHERE owner_id = $1`, owner)
	return err
}

func scanWatched(row pgx.Row) (domain.WatchedEntry, error) {
	var (
		entry      domain.WatchedEntry
		movieID    string
		detailJSON []byte
		userRating int16
		addedAt    time.Time
	)
	if err := row.Scan(&movieID, &detailJSON, &userRating, &addedAt); err != nil {
		return domain.WatchedEntry{}, err
	}
	if err := json.Unmarshal(detailJSON, &entry.MovieDetail); err != nil {
		return domain.WatchedEntry{}, fmt.Errorf("decode detail %s: %w", movieID, err)
	}
	entry.ID = movieID
	entry.UserRating = int(userRating)
	entry.AddedAt = addedAt.UTC()
	return entry, nil
}
