package fetch

import (
	"fmt"
	"time"
)

// FetchResult はHTTPステータスコードに基づくフェッチ結果の分類。
type FetchResult int

const (
	// FetchResultOK はフェッチ成功（200）。
	FetchResultOK FetchResult = iota
	// FetchResultNotModified はコンテンツ未変更（304）。
	FetchResultNotModified
	// FetchResultStop はフェッチ停止が必要なステータス（404/410/401/403）。
	FetchResultStop
	// FetchResultBackoff はバックオフが必要なステータス（429/5xx）。
	FetchResultBackoff
	// FetchResultUnknown は未知のステータスコード。
	FetchResultUnknown
)

const (
	// initialBackoff は指数バックオフの初回遅延（30分）。
	initialBackoff = 30 * time.Minute
	// maxBackoff は指数バックオフの最大遅延（12時間）。
	maxBackoff = 12 * time.Hour
	// parseFailureThreshold はパース失敗によるフェッチ停止の閾値。
	parseFailureThreshold = 10
)

// FeedState はニュースフィード1件分のフェッチ状態。
// フィードは設定値で与えられるため、状態はワーカープロセスのメモリ上でのみ保持する。
type FeedState struct {
	URL               string
	FeedURL           string // URLがHTMLページだった場合に検出したフィードURL
	Title             string
	ETag              string
	LastModified      string
	ConsecutiveErrors int
	NextFetchAt       time.Time
	Stopped           bool
	ErrorMessage      string
	LastSuccessAt     time.Time
}

// NewFeedState は即時フェッチ対象となる初期状態を生成する。
func NewFeedState(url string) *FeedState {
	return &FeedState{URL: url}
}

// RequestURL は実際にリクエストするURLを返す。
func (s *FeedState) RequestURL() string {
	if s.FeedURL != "" {
		return s.FeedURL
	}
	return s.URL
}

// IsDue はフィードが指定時刻の時点でフェッチ対象かを返す。
func (s *FeedState) IsDue(now time.Time) bool {
	return !s.Stopped && !now.Before(s.NextFetchAt)
}

// ClassifyHTTPStatus はHTTPステータスコードをフェッチ結果に分類する。
func ClassifyHTTPStatus(statusCode int) FetchResult {
	switch {
	case statusCode == 200:
		return FetchResultOK
	case statusCode == 304:
		return FetchResultNotModified
	case statusCode == 404 || statusCode == 410:
		return FetchResultStop
	case statusCode == 401 || statusCode == 403:
		return FetchResultStop
	case statusCode == 429:
		return FetchResultBackoff
	case statusCode >= 500:
		return FetchResultBackoff
	default:
		return FetchResultUnknown
	}
}

// CalculateBackoff は連続エラー回数に基づいて指数バックオフ遅延を計算する。
// 初回30分、2倍ずつ増加、最大12時間。
func CalculateBackoff(consecutiveErrors int) time.Duration {
	delay := initialBackoff
	for i := 0; i < consecutiveErrors; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// ApplyStopFeed はフィードのフェッチを停止する。
// 停止したフィードはワーカーを再起動するまでフェッチされない。
func ApplyStopFeed(state *FeedState, reason string) {
	state.Stopped = true
	state.ErrorMessage = reason
}

// ApplyBackoff は連続エラー回数をインクリメントし、指数バックオフで次回フェッチ時刻を設定する。
func ApplyBackoff(state *FeedState, reason string) {
	state.ConsecutiveErrors++
	state.ErrorMessage = reason
	state.NextFetchAt = time.Now().Add(CalculateBackoff(state.ConsecutiveErrors - 1))
}

// ApplySuccess はフェッチ成功時に状態をリセットし、interval後を次回フェッチ時刻とする。
func ApplySuccess(state *FeedState, interval time.Duration) {
	now := time.Now()
	state.ConsecutiveErrors = 0
	state.ErrorMessage = ""
	state.LastSuccessAt = now
	state.NextFetchAt = now.Add(interval)
}

// CheckParseFailureThreshold はパース失敗回数が閾値に達しているかを確認する。
func CheckParseFailureThreshold(state *FeedState) bool {
	return state.ConsecutiveErrors >= parseFailureThreshold
}

// ApplyParseFailure はパース失敗時に連続エラー回数をインクリメントし、次回フェッチ時刻を設定する。
// 閾値に達した場合はフェッチを停止する。
func ApplyParseFailure(state *FeedState, reason string, interval time.Duration) {
	state.ConsecutiveErrors++
	state.ErrorMessage = fmt.Sprintf("パース失敗 (%d回連続): %s", state.ConsecutiveErrors, reason)
	state.NextFetchAt = time.Now().Add(interval)

	if CheckParseFailureThreshold(state) {
		state.Stopped = true
		state.ErrorMessage = fmt.Sprintf("パース失敗が%d回連続したためフェッチを停止しました: %s", state.ConsecutiveErrors, reason)
	}
}
