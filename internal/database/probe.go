package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// プローブの各ステップ結果。
const (
	ProbeOK     = "OK"
	ProbeFailed = "FAILED"
)

// ProbeStep はプローブの1ステップの結果を表す。
type ProbeStep struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ProbeReport はデータベースプローブ全体の結果を表す。
type ProbeReport struct {
	Success bool        `json:"success"`
	Steps   []ProbeStep `json:"steps"`
}

// Probe はusersテーブルへの接続・挿入・読み戻しを検証する。
// 全操作は単一トランザクション内で行い、最後に必ずロールバックするため、データは残らない。
func Probe(ctx context.Context, db *sql.DB) ProbeReport {
	report := ProbeReport{Success: true}
	record := func(name string, err error) bool {
		step := ProbeStep{Name: name, Status: ProbeOK}
		if err != nil {
			step.Status = ProbeFailed
			step.Error = err.Error()
			report.Success = false
		}
		report.Steps = append(report.Steps, step)
		return err == nil
	}

	if !record("connection", db.PingContext(ctx)) {
		return report
	}

	tx, err := db.BeginTx(ctx, nil)
	if !record("begin", err) {
		return report
	}
	defer tx.Rollback() //nolint:errcheck // プローブは常にロールバックする

	var count int
	err = tx.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&count)
	if !record("select", err) {
		return report
	}

	token := uuid.NewString()
	email := fmt.Sprintf("probe-%s@example.com", token)
	var id string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (email, name, google_id) VALUES ($1, 'Probe User', $2) RETURNING id`,
		email, "probe-"+token,
	).Scan(&id)
	if !record("insert", err) {
		return report
	}

	var readEmail string
	err = tx.QueryRowContext(ctx, `SELECT email FROM users WHERE id = $1`, id).Scan(&readEmail)
	if err == nil && readEmail != email {
		err = fmt.Errorf("read back email %q, want %q", readEmail, email)
	}
	if !record("read", err) {
		return report
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	record("delete", err)

	return report
}
