package repository

import (
	"errors"

	"github.com/lib/pq"
)

// リポジトリ層の番兵エラー。サービス層でAPIErrorに変換される。
var (
	// ErrNotFound は操作対象のレコードが存在しないことを示す。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate は一意制約違反を示す。
	ErrDuplicate = errors.New("duplicate record")
	// ErrApplicationLimit は審査待ち応募数が上限に達していることを示す。
	ErrApplicationLimit = errors.New("pending application limit reached")
	// ErrStatusConflict は期待したステータスと現在のステータスが一致しないことを示す。
	ErrStatusConflict = errors.New("application status changed concurrently")
)

// pgUniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const pgUniqueViolation = pq.ErrorCode("23505")

// IsUniqueViolation はエラーがPostgreSQLの一意制約違反かどうかを判定する。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	return false
}
