package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/sigmatch/internal/metrics"
	"github.com/hitoshi/sigmatch/internal/model"
	"github.com/hitoshi/sigmatch/internal/news"
)

// NewsUpserter は記事の冪等保存のインターフェース。
type NewsUpserter interface {
	Upsert(ctx context.Context, item *model.NewsItem) (bool, error)
}

// Sanitizer はフィード由来のHTMLを無害化するインターフェース。
type Sanitizer interface {
	Sanitize(rawHTML string) string
	PlainText(raw string) string
}

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Fetcher は個別ニュースフィードのHTTPフェッチとパースを行う。
// ETag/Last-Modifiedを使用した条件付きGET、SSRF検証、HTMLページからのフィード検出、gofeedによるパース、
// 要約のサニタイズ、SDGタグ付け、記事の保存を実行する。
type Fetcher struct {
	repo        NewsUpserter
	sanitizer   Sanitizer
	ssrfGuard   SSRFValidator
	metrics     metrics.NewsMetrics
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
	interval    time.Duration
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
// intervalは成功時の次回フェッチまでの間隔。
func NewFetcher(
	repo NewsUpserter,
	sanitizer Sanitizer,
	ssrfGuard SSRFValidator,
	m metrics.NewsMetrics,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
	interval time.Duration,
) *Fetcher {
	return &Fetcher{
		repo:        repo,
		sanitizer:   sanitizer,
		ssrfGuard:   ssrfGuard,
		metrics:     m,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		interval:    interval,
	}
}

// Fetch はフィードをフェッチし、結果に応じてフィード状態を更新する。
func (f *Fetcher) Fetch(ctx context.Context, state *FeedState) error {
	start := time.Now()

	requestURL := state.RequestURL()
	if err := f.ssrfGuard.ValidateURL(requestURL); err != nil {
		f.logger.Error("SSRF検証に失敗しました",
			slog.String("feed_url", requestURL),
			slog.String("error", err.Error()),
		)
		f.metrics.RecordFetchFailure(state.URL, "ssrf")
		ApplyStopFeed(state, fmt.Sprintf("SSRF検証失敗: %s", err.Error()))
		return fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	client := f.ssrfGuard.NewSafeClient(f.timeout, f.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("リクエスト作成に失敗: %w", err)
	}

	req.Header.Set("User-Agent", "Sigmatch/1.0 News Fetcher")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.5, */*")
	if state.ETag != "" {
		req.Header.Set("If-None-Match", state.ETag)
	}
	if state.LastModified != "" {
		req.Header.Set("If-Modified-Since", state.LastModified)
	}

	resp, err := client.Do(req)
	if err != nil {
		f.logger.Error("HTTPリクエストに失敗しました",
			slog.String("feed_url", state.URL),
			slog.String("error", err.Error()),
		)
		f.metrics.RecordFetchFailure(state.URL, "network")
		ApplyBackoff(state, fmt.Sprintf("HTTPリクエスト失敗: %s", err.Error()))
		return fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	f.metrics.RecordFetchLatency(duration)
	f.metrics.RecordHTTPStatus(resp.StatusCode)

	switch ClassifyHTTPStatus(resp.StatusCode) {
	case FetchResultNotModified:
		f.logger.Info("フィードは未変更です（304）",
			slog.String("feed_url", state.URL),
			slog.Int("http_status", resp.StatusCode),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
		f.metrics.RecordFetchSuccess(state.URL)
		ApplySuccess(state, f.interval)
		return nil

	case FetchResultStop:
		reason := fmt.Sprintf("HTTPステータス %d によりフェッチを停止しました", resp.StatusCode)
		f.logger.Warn("フィードフェッチを停止します",
			slog.String("feed_url", state.URL),
			slog.Int("http_status", resp.StatusCode),
			slog.String("reason", reason),
		)
		f.metrics.RecordFetchFailure(state.URL, "stopped")
		ApplyStopFeed(state, reason)
		return nil

	case FetchResultBackoff:
		f.logger.Warn("フィードフェッチにバックオフを適用します",
			slog.String("feed_url", state.URL),
			slog.Int("http_status", resp.StatusCode),
			slog.Int("consecutive_errors", state.ConsecutiveErrors+1),
		)
		f.metrics.RecordFetchFailure(state.URL, "backoff")
		ApplyBackoff(state, fmt.Sprintf("HTTPステータス %d によりバックオフを適用しました", resp.StatusCode))
		return nil

	case FetchResultOK:
		// 200: 以下で処理を続行
	default:
		f.logger.Warn("予期しないHTTPステータスコード",
			slog.String("feed_url", state.URL),
			slog.Int("http_status", resp.StatusCode),
		)
		f.metrics.RecordFetchFailure(state.URL, "unexpected_status")
		ApplyBackoff(state, fmt.Sprintf("予期しないHTTPステータス: %d", resp.StatusCode))
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		f.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("feed_url", state.URL),
			slog.String("error", err.Error()),
		)
		f.metrics.RecordFetchFailure(state.URL, "read")
		ApplyBackoff(state, fmt.Sprintf("レスポンス読み取り失敗: %s", err.Error()))
		return nil
	}

	// 設定URLがHTMLページの場合は一度だけフィードを検出して取得し直す
	if state.FeedURL == "" && isHTMLContentType(resp.Header.Get("Content-Type")) {
		if discovered := DiscoverFeedURL(body, state.URL); discovered != "" {
			f.logger.Info("HTMLページからフィードを検出しました",
				slog.String("feed_url", state.URL),
				slog.String("discovered_url", discovered),
			)
			state.FeedURL = discovered
			state.ETag, state.LastModified = "", ""
			return f.Fetch(ctx, state)
		}
	}

	if etag := resp.Header.Get("ETag"); etag != "" {
		state.ETag = etag
	}
	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		state.LastModified = lastMod
	}

	parsedFeed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		f.logger.Error("フィードのパースに失敗しました",
			slog.String("feed_url", state.URL),
			slog.String("error", err.Error()),
		)
		f.metrics.RecordParseFailure(state.URL)
		ApplyParseFailure(state, err.Error(), f.interval)
		return nil // パース失敗はフェッチエラーとしない（カウントして継続）
	}
	if parsedFeed.Title != "" {
		state.Title = parsedFeed.Title
	}

	parsedItems := convertGofeedItems(parsedFeed.Items)

	inserted, updated, skipped := 0, 0, 0
	fetchedAt := time.Now()
	for _, parsed := range parsedItems {
		item := f.buildNewsItem(state.URL, parsed, fetchedAt)
		if item == nil {
			skipped++
			continue
		}
		created, err := f.repo.Upsert(ctx, item)
		if err != nil {
			f.logger.Error("ニュース記事の保存に失敗しました",
				slog.String("feed_url", state.URL),
				slog.String("guid", item.GUID),
				slog.String("error", err.Error()),
			)
			f.metrics.RecordFetchFailure(state.URL, "store")
			ApplyBackoff(state, fmt.Sprintf("記事保存失敗: %s", err.Error()))
			return fmt.Errorf("ニュース記事の保存に失敗: %w", err)
		}
		if created {
			inserted++
		} else {
			updated++
		}
	}

	f.metrics.RecordItemsUpserted(inserted + updated)
	f.metrics.RecordFetchSuccess(state.URL)
	ApplySuccess(state, f.interval)

	f.logger.Info("フィードフェッチが完了しました",
		slog.String("feed_url", state.URL),
		slog.Int("http_status", resp.StatusCode),
		slog.Int("items_inserted", inserted),
		slog.Int("items_updated", updated),
		slog.Int("items_skipped", skipped),
		slog.Int("items_total", len(parsedItems)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// buildNewsItem はパース済み記事を保存用の記事に変換する。
// SDGへの言及がない記事と、識別子を持たない記事はnilを返す。
func (f *Fetcher) buildNewsItem(feedURL string, parsed model.ParsedNewsItem, fetchedAt time.Time) *model.NewsItem {
	if parsed.GUID == "" {
		return nil
	}

	title := f.sanitizer.PlainText(parsed.Title)
	summary := f.sanitizer.Sanitize(parsed.Summary)
	sdgIDs := news.TagSDGs(title, f.sanitizer.PlainText(summary))
	if len(sdgIDs) == 0 {
		return nil
	}

	return &model.NewsItem{
		FeedURL:     feedURL,
		GUID:        parsed.GUID,
		Title:       title,
		Link:        parsed.Link,
		Summary:     summary,
		SDGIDs:      sdgIDs,
		PublishedAt: parsed.PublishedAt,
		FetchedAt:   fetchedAt,
	}
}

// convertGofeedItems はgofeedの記事をmodel.ParsedNewsItemに変換する。
func convertGofeedItems(items []*gofeed.Item) []model.ParsedNewsItem {
	parsedItems := make([]model.ParsedNewsItem, 0, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}

		parsed := model.ParsedNewsItem{
			GUID:    item.GUID,
			Title:   item.Title,
			Link:    item.Link,
			Summary: item.Description,
		}

		// Descriptionが空の場合は本文を要約として使用
		if parsed.Summary == "" {
			parsed.Summary = item.Content
		}

		if item.PublishedParsed != nil {
			t := *item.PublishedParsed
			parsed.PublishedAt = &t
		} else if item.UpdatedParsed != nil {
			t := *item.UpdatedParsed
			parsed.PublishedAt = &t
		}

		// LinkがなくGUIDがURL形式の場合はGUIDをLinkとして使用
		if parsed.Link == "" && isHTTPURL(parsed.GUID) {
			parsed.Link = parsed.GUID
		}
		// GUIDがない場合はLinkを識別子として使用
		if parsed.GUID == "" {
			parsed.GUID = parsed.Link
		}

		parsedItems = append(parsedItems, parsed)
	}

	return parsedItems
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
