package model

import "time"

// NewsItem はSDG関連のニュースフィードから取得した記事を表す。
type NewsItem struct {
	ID          string
	FeedURL     string
	GUID        string
	Title       string
	Link        string
	Summary     string // サニタイズ済み
	SDGIDs      []int
	PublishedAt *time.Time
	FetchedAt   time.Time
}

// ParsedNewsItem はフィードパーサーから取得した未保存の記事データを表す。
type ParsedNewsItem struct {
	GUID        string
	Title       string
	Link        string
	Summary     string // 未サニタイズ
	PublishedAt *time.Time
}
