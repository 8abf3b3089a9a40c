// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// emailは一意であり、初回サインイン時に自動作成される。
type User struct {
	ID        string
	Email     string
	Name      string
	Image     string
	GoogleID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity はIdPから受け取ったサインイン済みユーザーの情報を表す。
// usersレコードの作成・更新の入力として使用する。
type Identity struct {
	Email    string
	Name     string
	Image    string
	GoogleID string
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
