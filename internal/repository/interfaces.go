// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/sigmatch/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByGoogleID はGoogleのsubでユーザーを取得する。見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// Create はユーザーを作成する。
	// emailまたはgoogle_idが既に存在する場合はErrDuplicateをラップしたエラーを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile はemail、name、image、google_idを更新する。
	UpdateProfile(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、applicationsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// SIGRepository はSIGカタログの永続化インターフェース。
type SIGRepository interface {
	// List は全SIGを名前順で返す。
	List(ctx context.Context) ([]*model.SIG, error)

	// FindByID は指定IDのSIGを取得する。見つからない場合はnilを返す。
	// IDがUUID形式でない場合も見つからないものとして扱う。
	FindByID(ctx context.Context, id string) (*model.SIG, error)

	// Create はSIGを作成する。acronymが重複する場合はErrDuplicateをラップしたエラーを返す。
	Create(ctx context.Context, sig *model.SIG) error
}

// ApplicationRepository は応募データの永続化インターフェース。
type ApplicationRepository interface {
	// CreateWithinLimit は審査待ち応募数の上限と重複を同一トランザクション内で検証し、応募を作成する。
	// usersレコードを行ロックするため、同一ユーザーからの同時応募は直列化される。
	// 上限到達時はErrApplicationLimit、重複時はErrDuplicate、ユーザー不在時はErrNotFoundを返す。
	CreateWithinLimit(ctx context.Context, app *model.Application, maxPending int) error

	// FindByID は指定IDの応募を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Application, error)

	// FindByUserAndGoal はユーザーと応募先で応募を検索する。見つからない場合はnilを返す。
	FindByUserAndGoal(ctx context.Context, userID string, goal model.GoalRef) (*model.Application, error)

	// CountPendingByUserID はユーザーの審査待ち応募数を返す。
	CountPendingByUserID(ctx context.Context, userID string) (int, error)

	// ListByUserID はユーザーの応募一覧を応募日時の降順で返す。
	// SIGへの応募にはSIG名を付与する。SDGの表示名は呼び出し側で補完する。
	ListByUserID(ctx context.Context, userID string) ([]model.ApplicationWithGoal, error)

	// UpdateStatus は現在のステータスがfromである場合に限りtoへ更新する。
	// 条件に一致しない場合はErrStatusConflictを返す。
	UpdateStatus(ctx context.Context, id string, from, to model.ApplicationStatus) error
}

// NewsRepository はSDGニュース記事の永続化インターフェース。
type NewsRepository interface {
	// Upsert は(feed_url, guid)をキーに記事を冪等に保存する。新規作成の場合はtrueを返す。
	Upsert(ctx context.Context, item *model.NewsItem) (bool, error)

	// ListBySDG は指定SDGに関連付けられた記事を公開日時の降順で返す。
	ListBySDG(ctx context.Context, sdgID int, limit int) ([]model.NewsItem, error)
}
