package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/sigmatch/internal/model"
)

// PostgresApplicationRepo はPostgreSQLを使用した応募リポジトリ。
type PostgresApplicationRepo struct {
	db *sql.DB
}

// NewPostgresApplicationRepo はPostgresApplicationRepoを生成する。
func NewPostgresApplicationRepo(db *sql.DB) *PostgresApplicationRepo {
	return &PostgresApplicationRepo{db: db}
}

const applicationColumns = `id, user_id, goal_type, goal_id, status, applied_at, updated_at`

// CreateWithinLimit は上限と重複を検証したうえで応募を作成する。
// 同一ユーザーの同時応募はusers行のFOR UPDATEロックで直列化される。
func (r *PostgresApplicationRepo) CreateWithinLimit(ctx context.Context, app *model.Application, maxPending int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // コミット後のRollbackは無視される

	var locked string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE id = $1 FOR UPDATE`,
		app.UserID,
	).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to lock user %s: %w", app.UserID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock user: %w", err)
	}

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM applications WHERE user_id = $1 AND goal_type = $2 AND goal_id = $3
		 )`,
		app.UserID, string(app.Goal.Type), app.Goal.ID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check existing application: %w", err)
	}
	if exists {
		return fmt.Errorf("application for %s: %w", app.Goal, ErrDuplicate)
	}

	var pending int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applications WHERE user_id = $1 AND status = $2`,
		app.UserID, string(model.ApplicationStatusPending),
	).Scan(&pending)
	if err != nil {
		return fmt.Errorf("failed to count pending applications: %w", err)
	}
	if pending >= maxPending {
		return fmt.Errorf("user has %d pending applications: %w", pending, ErrApplicationLimit)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO applications (id, user_id, goal_type, goal_id, status, applied_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		app.ID, app.UserID, string(app.Goal.Type), app.Goal.ID, string(app.Status), app.AppliedAt, app.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("failed to insert application for %s: %w", app.Goal, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert application: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit application: %w", err)
	}
	return nil
}

// FindByID は指定IDの応募を取得する。見つからない場合はnilを返す。
func (r *PostgresApplicationRepo) FindByID(ctx context.Context, id string) (*model.Application, error) {
	app, err := scanApplication(r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id::text = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	return app, nil
}

// FindByUserAndGoal はユーザーと応募先で応募を検索する。見つからない場合はnilを返す。
func (r *PostgresApplicationRepo) FindByUserAndGoal(ctx context.Context, userID string, goal model.GoalRef) (*model.Application, error) {
	app, err := scanApplication(r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE user_id = $1 AND goal_type = $2 AND goal_id = $3`,
		userID, string(goal.Type), goal.ID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find application by goal: %w", err)
	}
	return app, nil
}

// CountPendingByUserID はユーザーの審査待ち応募数を返す。
func (r *PostgresApplicationRepo) CountPendingByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applications WHERE user_id = $1 AND status = $2`,
		userID, string(model.ApplicationStatusPending),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending applications: %w", err)
	}
	return count, nil
}

// ListByUserID はユーザーの応募一覧を応募日時の降順で返す。
func (r *PostgresApplicationRepo) ListByUserID(ctx context.Context, userID string) ([]model.ApplicationWithGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.user_id, a.goal_type, a.goal_id, a.status, a.applied_at, a.updated_at,
		        COALESCE(s.name, '')
		 FROM applications a
		 LEFT JOIN sigs s ON a.goal_type = 'sig' AND s.id::text = a.goal_id
		 WHERE a.user_id = $1
		 ORDER BY a.applied_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []model.ApplicationWithGoal
	for rows.Next() {
		var a model.ApplicationWithGoal
		var goalType, status string
		if err := rows.Scan(
			&a.ID, &a.UserID, &goalType, &a.Goal.ID, &status, &a.AppliedAt, &a.UpdatedAt,
			&a.GoalTitle,
		); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		a.Goal.Type = model.GoalType(goalType)
		a.Status = model.ApplicationStatus(status)
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applications: %w", err)
	}
	return apps, nil
}

// UpdateStatus は現在のステータスがfromの場合に限りtoへ更新する。
func (r *PostgresApplicationRepo) UpdateStatus(ctx context.Context, id string, from, to model.ApplicationStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE applications SET status = $3, updated_at = now()
		 WHERE id::text = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("failed to update application status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("application %s is no longer %s: %w", id, from, ErrStatusConflict)
	}
	return nil
}

func scanApplication(row rowScanner) (*model.Application, error) {
	app := &model.Application{}
	var goalType, status string
	err := row.Scan(&app.ID, &app.UserID, &goalType, &app.Goal.ID, &status, &app.AppliedAt, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}
	app.Goal.Type = model.GoalType(goalType)
	app.Status = model.ApplicationStatus(status)
	return app, nil
}

// compile-time interface check
var _ ApplicationRepository = (*PostgresApplicationRepo)(nil)
