// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 保持期間（デフォルト90日）を超過したニュース記事と、有効期限切れのセッションを
// 日次バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetentionDays はニュース記事の既定の保持日数。
const DefaultRetentionDays = 90

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は期限切れデータの自動削除ジョブ。
// 削除処理は冪等で、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // ニュース記事の保持日数
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		RetentionDays: DefaultRetentionDays,
	}
}

// Run はニュース記事と期限切れセッションを削除する。
// 一方の削除に失敗しても他方は実行し、発生したエラーをまとめて返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	newsErr := j.deleteOldNews(ctx)
	sessionErr := j.deleteExpiredSessions(ctx)
	return errors.Join(newsErr, sessionErr)
}

// deleteOldNews はfetched_atがRetentionDays日前より古い記事を削除する。
func (j *CleanupJob) deleteOldNews(ctx context.Context) error {
	start := time.Now()
	interval := fmt.Sprintf("%d days", j.RetentionDays)

	deleted, err := j.exec(ctx, `DELETE FROM news_items WHERE fetched_at < now() - $1::interval`, interval)
	if err != nil {
		j.logger.Error("ニュース記事のクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("ニュース記事のクリーンアップに失敗: %w", err)
	}

	j.logger.Info("ニュース記事のクリーンアップが完了しました",
		slog.String("target", "news_items"),
		slog.Int64("deleted_count", deleted),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// deleteExpiredSessions はexpires_atを過ぎたセッションを削除する。
func (j *CleanupJob) deleteExpiredSessions(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		j.logger.Error("期限切れセッションのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れセッションのクリーンアップに失敗: %w", err)
	}

	j.logger.Info("期限切れセッションのクリーンアップが完了しました",
		slog.String("target", "sessions"),
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

func (j *CleanupJob) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return n, nil
}

// Start はinterval間隔でRunを実行する。起動直後にも1回実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
