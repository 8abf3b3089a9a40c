package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/sigmatch/internal/model"
)

// PostgresSIGRepo はPostgreSQLを使用したSIGカタログリポジトリ。
// focus_areas等の配列カラムはtext[]としてpq.StringArrayで読み書きする。
type PostgresSIGRepo struct {
	db *sql.DB
}

// NewPostgresSIGRepo はPostgresSIGRepoを生成する。
func NewPostgresSIGRepo(db *sql.DB) *PostgresSIGRepo {
	return &PostgresSIGRepo{db: db}
}

const sigColumns = `id, name, acronym, description, focus_areas, objectives, requirements, benefits,
	image_url, color, created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// List は全SIGを名前順で返す。
func (r *PostgresSIGRepo) List(ctx context.Context) ([]*model.SIG, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sigColumns+` FROM sigs ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sigs: %w", err)
	}
	defer rows.Close()

	var sigs []*model.SIG
	for rows.Next() {
		sig, err := scanSIG(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sig: %w", err)
		}
		sigs = append(sigs, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sigs: %w", err)
	}
	return sigs, nil
}

// FindByID は指定IDのSIGを取得する。見つからない場合はnilを返す。
// idをtextとして比較するため、UUID形式でない値でもエラーにならない。
func (r *PostgresSIGRepo) FindByID(ctx context.Context, id string) (*model.SIG, error) {
	sig, err := scanSIG(r.db.QueryRowContext(ctx,
		`SELECT `+sigColumns+` FROM sigs WHERE id::text = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sig: %w", err)
	}
	return sig, nil
}

// Create はSIGを作成する。acronymの一意制約違反はErrDuplicateとして返す。
func (r *PostgresSIGRepo) Create(ctx context.Context, sig *model.SIG) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sigs (id, name, acronym, description, focus_areas, objectives, requirements, benefits,
		                   image_url, color, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sig.ID, sig.Name, sig.Acronym, sig.Description,
		pq.StringArray(sig.FocusAreas), pq.StringArray(sig.Objectives),
		pq.StringArray(sig.Requirements), pq.StringArray(sig.Benefits),
		sig.ImageURL, sig.Color, sig.CreatedAt, sig.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("failed to insert sig %s: %w", sig.Acronym, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert sig: %w", err)
	}
	return nil
}

func scanSIG(row rowScanner) (*model.SIG, error) {
	sig := &model.SIG{}
	var focusAreas, objectives, requirements, benefits pq.StringArray
	err := row.Scan(
		&sig.ID, &sig.Name, &sig.Acronym, &sig.Description,
		&focusAreas, &objectives, &requirements, &benefits,
		&sig.ImageURL, &sig.Color, &sig.CreatedAt, &sig.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sig.FocusAreas = []string(focusAreas)
	sig.Objectives = []string(objectives)
	sig.Requirements = []string(requirements)
	sig.Benefits = []string(benefits)
	return sig, nil
}

// compile-time interface check
var _ SIGRepository = (*PostgresSIGRepo)(nil)
