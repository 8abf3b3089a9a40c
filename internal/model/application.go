package model

import "time"

// ApplicationStatus は応募の状態を表す。
type ApplicationStatus string

const (
	// ApplicationStatusPending は審査待ち。ユーザーあたりの上限の対象となる。
	ApplicationStatusPending ApplicationStatus = "pending"
	// ApplicationStatusApproved は承認済み。
	ApplicationStatusApproved ApplicationStatus = "approved"
	// ApplicationStatusRejected は却下。
	ApplicationStatusRejected ApplicationStatus = "rejected"
	// ApplicationStatusWithdrawn はユーザーによる取り下げ。
	ApplicationStatusWithdrawn ApplicationStatus = "withdrawn"
)

// Valid は既知のステータスかどうかを返す。
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusApproved,
		ApplicationStatusRejected, ApplicationStatusWithdrawn:
		return true
	}
	return false
}

// CanTransitionTo は現在の状態からnextへの遷移が許可されるかを返す。
// pendingからのみ遷移でき、終端状態からは変更できない。
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	if s != ApplicationStatusPending {
		return false
	}
	switch next {
	case ApplicationStatusApproved, ApplicationStatusRejected, ApplicationStatusWithdrawn:
		return true
	}
	return false
}

// Application はユーザーのSIG/SDGへの応募を表す。
// (user_id, goal_type, goal_id) は一意。
type Application struct {
	ID        string
	UserID    string
	Goal      GoalRef
	Status    ApplicationStatus
	AppliedAt time.Time
	UpdatedAt time.Time
}

// ApplicationWithGoal は応募と応募先の表示名を結合したモデル。
type ApplicationWithGoal struct {
	Application
	GoalTitle string
}
