// Package sqlite is the embedded relational history backend, built on bun.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/MrSnakeDoc/clipflow/internal/domain"
	"github.com/MrSnakeDoc/clipflow/internal/history"
)

type entryRow struct {
	bun.BaseModel `bun:"table:clipboard_entries,alias:e"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Content     string    `bun:"content,notnull"`
	ContentType string    `bun:"content_type,type:varchar(20),notnull"`
	CopiedAt    time.Time `bun:"copied_at,notnull"`
	Preview     string    `bun:"preview,type:varchar(200)"`
	ColorHex    string    `bun:"color_hex,type:varchar(9),nullzero"`
	ImagePath   string    `bun:"image_path,nullzero"`
	IsPinned    bool      `bun:"is_pinned,notnull,default:false"`
	ContentHash string    `bun:"content_hash,type:varchar(64),nullzero"`
}

func fromDomain(e *domain.Entry) *entryRow {
	return &entryRow{
		ID:          e.ID,
		Content:     e.Content,
		ContentType: e.ContentType.String(),
		CopiedAt:    e.CopiedAt.UTC(),
		Preview:     e.Preview,
		ColorHex:    e.ColorHex,
		ImagePath:   e.ImagePath,
		IsPinned:    e.IsPinned,
		ContentHash: e.ContentHash,
	}
}

func (r *entryRow) toDomain() *domain.Entry {
	return &domain.Entry{
		ID:          r.ID,
		Content:     r.Content,
		ContentType: domain.ContentType(r.ContentType),
		CopiedAt:    r.CopiedAt.UTC(),
		Preview:     r.Preview,
		ColorHex:    r.ColorHex,
		ImagePath:   r.ImagePath,
		IsPinned:    r.IsPinned,
		ContentHash: r.ContentHash,
	}
}

func toDomain(rows []*entryRow) []*domain.Entry {
	out := make([]*domain.Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

// Backend stores entries in a single SQLite file.
type Backend struct {
	db *bun.DB
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(ctx context.Context, path string) (*Backend, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer avoids SQLITE_BUSY between pipeline and API requests
	sqldb.SetMaxOpenConns(1)

	b := &Backend{db: bun.NewDB(sqldb, sqlitedialect.New())}
	if err := b.migrate(ctx); err != nil {
		_ = b.db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return b, nil
}

func (b *Backend) migrate(ctx context.Context) error {
	if _, err := b.db.NewCreateTable().Model((*entryRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create clipboard_entries: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_clipboard_entries_copied_at ON clipboard_entries(copied_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_clipboard_entries_is_pinned ON clipboard_entries(is_pinned)",
		"CREATE INDEX IF NOT EXISTS idx_clipboard_entries_content_hash ON clipboard_entries(content_hash)",
	}
	for _, idx := range indexes {
		if _, err := b.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Ping checks the database connection.
func (b *Backend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *Backend) Insert(ctx context.Context, e *domain.Entry) (*domain.Entry, error) {
	row := fromDomain(e)
	row.ID = 0
	if _, err := b.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to insert clipboard entry: %w", err)
	}
	return row.toDomain(), nil
}

func (b *Backend) Get(ctx context.Context, id int64) (*domain.Entry, error) {
	return b.getWith(ctx, b.db, id)
}

func (b *Backend) getWith(ctx context.Context, db bun.IDB, id int64) (*domain.Entry, error) {
	var row entryRow
	err := db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry %d: %w", id, err)
	}
	return row.toDomain(), nil
}

func (b *Backend) List(ctx context.Context, limit int) ([]*domain.Entry, error) {
	var rows []*entryRow
	q := b.db.NewSelect().
		Model(&rows).
		Order("is_pinned DESC", "copied_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return toDomain(rows), nil
}

func (b *Backend) FindByHash(ctx context.Context, hash string) (*domain.Entry, error) {
	var row entryRow
	err := b.db.NewSelect().
		Model(&row).
		Where("content_hash = ?", hash).
		Order("copied_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find entry by hash: %w", err)
	}
	return row.toDomain(), nil
}

func (b *Backend) Touch(ctx context.Context, id int64, at time.Time) error {
	res, err := b.db.NewUpdate().
		Model((*entryRow)(nil)).
		Set("copied_at = ?", at.UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to touch entry %d: %w", id, err)
	}
	return requireAffected(res)
}

func (b *Backend) TogglePin(ctx context.Context, id int64) (bool, error) {
	var pinned bool
	err := b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*entryRow)(nil)).
			Set("is_pinned = NOT is_pinned").
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to toggle pin: %w", err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		e, err := b.getWith(ctx, tx, id)
		if err != nil {
			return err
		}
		pinned = e.IsPinned
		return nil
	})
	return pinned, err
}

func (b *Backend) Delete(ctx context.Context, id int64) (*domain.Entry, error) {
	var removed *domain.Entry
	err := b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		e, err := b.getWith(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*entryRow)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete entry %d: %w", id, err)
		}
		removed = e
		return nil
	})
	return removed, err
}

func (b *Backend) DeleteUnpinned(ctx context.Context) ([]*domain.Entry, error) {
	return b.deleteUnpinned(ctx, 0)
}

func (b *Backend) DeleteUnpinnedBeyond(ctx context.Context, keep int) ([]*domain.Entry, error) {
	return b.deleteUnpinned(ctx, keep)
}

// deleteUnpinned removes unpinned rows past the first keep in recency order.
func (b *Backend) deleteUnpinned(ctx context.Context, keep int) ([]*domain.Entry, error) {
	var removed []*domain.Entry
	err := b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var rows []*entryRow
		err := tx.NewSelect().
			Model(&rows).
			Where("is_pinned = ?", false).
			Order("copied_at DESC", "id DESC").
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("failed to select unpinned entries: %w", err)
		}
		if len(rows) <= keep {
			return nil
		}

		victims := rows[keep:]
		ids := make([]int64, 0, len(victims))
		for _, r := range victims {
			ids = append(ids, r.ID)
		}

		if _, err := tx.NewDelete().
			Model((*entryRow)(nil)).
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete unpinned entries: %w", err)
		}
		removed = toDomain(victims)
		return nil
	})
	return removed, err
}

func (b *Backend) Count(ctx context.Context) (int, error) {
	n, err := b.db.NewSelect().Model((*entryRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return history.ErrNotFound
	}
	return nil
}

var _ history.Backend = (*Backend)(nil)
