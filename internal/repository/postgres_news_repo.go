package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/sigmatch/internal/model"
)

// PostgresNewsRepo はPostgreSQLを使用したニュース記事リポジトリ。
type PostgresNewsRepo struct {
	db *sql.DB
}

// NewPostgresNewsRepo はPostgresNewsRepoを生成する。
func NewPostgresNewsRepo(db *sql.DB) *PostgresNewsRepo {
	return &PostgresNewsRepo{db: db}
}

// Upsert は(feed_url, guid)をキーに記事を保存する。
// xmax = 0 の判定で新規挿入と更新を区別する。
func (r *PostgresNewsRepo) Upsert(ctx context.Context, item *model.NewsItem) (bool, error) {
	var inserted bool
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO news_items (id, feed_url, guid, title, link, summary, sdg_ids, published_at, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (feed_url, guid) DO UPDATE SET
		   title = EXCLUDED.title,
		   link = EXCLUDED.link,
		   summary = EXCLUDED.summary,
		   sdg_ids = EXCLUDED.sdg_ids,
		   published_at = COALESCE(EXCLUDED.published_at, news_items.published_at),
		   fetched_at = EXCLUDED.fetched_at
		 RETURNING id, (xmax = 0)`,
		item.ID, item.FeedURL, item.GUID, item.Title, item.Link, item.Summary,
		pq.Array(toInt64s(item.SDGIDs)), item.PublishedAt, item.FetchedAt,
	).Scan(&item.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert news item: %w", err)
	}
	return inserted, nil
}

// ListBySDG は指定SDGに関連付けられた記事を公開日時の降順で返す。
func (r *PostgresNewsRepo) ListBySDG(ctx context.Context, sdgID int, limit int) ([]model.NewsItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, feed_url, guid, title, link, summary, sdg_ids, published_at, fetched_at
		 FROM news_items
		 WHERE sdg_ids @> ARRAY[$1::integer]
		 ORDER BY COALESCE(published_at, fetched_at) DESC
		 LIMIT $2`,
		sdgID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list news items: %w", err)
	}
	defer rows.Close()

	var items []model.NewsItem
	for rows.Next() {
		var it model.NewsItem
		var sdgIDs pq.Int64Array
		var publishedAt sql.NullTime
		if err := rows.Scan(
			&it.ID, &it.FeedURL, &it.GUID, &it.Title, &it.Link, &it.Summary,
			&sdgIDs, &publishedAt, &it.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan news item: %w", err)
		}
		it.SDGIDs = make([]int, len(sdgIDs))
		for i, v := range sdgIDs {
			it.SDGIDs[i] = int(v)
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			it.PublishedAt = &t
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate news items: %w", err)
	}
	return items, nil
}

func toInt64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, v := range ids {
		out[i] = int64(v)
	}
	return out
}

// compile-time interface check
var _ NewsRepository = (*PostgresNewsRepo)(nil)
