// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, application, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized            = "UNAUTHORIZED"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeValidationFailed        = "VALIDATION_FAILED"
	ErrCodeInvalidGoal             = "INVALID_GOAL"
	ErrCodeGoalNotFound            = "GOAL_NOT_FOUND"
	ErrCodeSIGNotFound             = "SIG_NOT_FOUND"
	ErrCodeApplicationLimit        = "APPLICATION_LIMIT"
	ErrCodeDuplicateApplication    = "DUPLICATE_APPLICATION"
	ErrCodeApplicationNotFound     = "APPLICATION_NOT_FOUND"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeUserNotFound            = "USER_NOT_FOUND"
	ErrCodeUserSyncFailed          = "USER_SYNC_FAILED"
	ErrCodeDuplicateSIG            = "DUPLICATE_SIG"
	ErrCodeEmailNotVerified        = "EMAIL_NOT_VERIFIED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication is required.",
		Category: "auth",
		Action:   "Please sign in first.",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "You do not have permission to perform this action.",
		Category: "auth",
		Action:   "Sign in with an administrator account.",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "Failed to parse the request body.",
		Category: "validation",
		Action:   "Send a well-formed JSON request.",
	}
}

// NewValidationError は入力値の検証エラーを生成する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("Invalid value for %s: %s", field, reason),
		Category: "validation",
		Action:   "Correct the highlighted field and try again.",
	}
}

// NewInvalidGoalError は応募先の指定が不正な場合のエラーを生成する。
func NewInvalidGoalError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidGoal,
		Message:  fmt.Sprintf("Invalid goal: %s", reason),
		Category: "validation",
		Action:   "Specify goal_type as \"sig\" or \"sdg\" together with a goal_id.",
	}
}

// NewGoalNotFoundError は応募先が存在しない場合のエラーを生成する。
func NewGoalNotFoundError(goal GoalRef) *APIError {
	return &APIError{
		Code:     ErrCodeGoalNotFound,
		Message:  fmt.Sprintf("The requested goal was not found: %s", goal),
		Category: "catalog",
		Action:   "SDG ids range from 1 to 17. Check the id and try again.",
	}
}

// NewSIGNotFoundError はSIGが存在しない場合のエラーを生成する。
func NewSIGNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeSIGNotFound,
		Message:  fmt.Sprintf("The requested SIG was not found: %s", id),
		Category: "catalog",
		Action:   "Browse the SIG list and pick an existing group.",
	}
}

// NewDuplicateSIGError は略称が重複するSIGを登録しようとした場合のエラーを生成する。
func NewDuplicateSIGError(acronym string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSIG,
		Message:  fmt.Sprintf("A SIG with acronym %q already exists.", acronym),
		Category: "catalog",
		Action:   "Choose a different acronym.",
	}
}

// NewApplicationLimitError は審査待ち応募数が上限に達している場合のエラーを生成する。
func NewApplicationLimitError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeApplicationLimit,
		Message:  fmt.Sprintf("You have reached the maximum limit of %d active applications.", limit),
		Category: "application",
		Action:   "Please wait for some applications to be processed before applying to more goals.",
	}
}

// NewDuplicateApplicationError は同一の応募先へ再度応募しようとした場合のエラーを生成する。
func NewDuplicateApplicationError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateApplication,
		Message:  "You have already volunteered for this initiative.",
		Category: "application",
		Action:   "Track your existing application in your profile.",
	}
}

// NewApplicationNotFoundError は応募が見つからない場合のエラーを生成する。
func NewApplicationNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeApplicationNotFound,
		Message:  fmt.Sprintf("The requested application was not found: %s", id),
		Category: "application",
		Action:   "Check the application id in your profile.",
	}
}

// NewInvalidStatusTransitionError は許可されない状態遷移のエラーを生成する。
func NewInvalidStatusTransitionError(from, to ApplicationStatus) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatusTransition,
		Message:  fmt.Sprintf("An application cannot move from %s to %s.", from, to),
		Category: "application",
		Action:   "Only pending applications can be reviewed or withdrawn.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found.",
		Category: "auth",
		Action:   "Please sign in again.",
	}
}

// NewUserSyncFailedError はユーザーレコードの作成・取得に失敗した場合のエラーを生成する。
func NewUserSyncFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeUserSyncFailed,
		Message:  "Failed to sync user data.",
		Category: "auth",
		Action:   "Please try again.",
	}
}

// NewEmailNotVerifiedError はGoogleアカウントのメールアドレスが未検証の場合のエラーを生成する。
func NewEmailNotVerifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailNotVerified,
		Message:  "Your Google account email address has not been verified.",
		Category: "auth",
		Action:   "Verify your email address with Google and sign in again.",
	}
}
