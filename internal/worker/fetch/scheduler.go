// Package fetch はSDGニュースフィードのバックグラウンドフェッチ処理を提供する。
// スケジューラ、フェッチャー、リトライ/バックオフ戦略を含む。
package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// FeedFetcherService はフィードフェッチの実行インターフェース。
type FeedFetcherService interface {
	// Fetch は指定フィードをフェッチし、結果に応じてフィード状態を更新する。
	Fetch(ctx context.Context, state *FeedState) error
}

// Scheduler はニュースフィードフェッチのスケジューリングと並列制御を行う。
// 設定されたフィードURLごとにFeedStateを保持し、ティッカーごとにフェッチ対象を選んで
// semaphoreパターンで最大並列数を制御しながらフェッチを実行する。
type Scheduler struct {
	feeds          []*FeedState
	fetcher        FeedFetcherService
	logger         *slog.Logger
	maxConcurrency int
	now            func() time.Time

	mu sync.Mutex // RunOnceの同時実行を防ぐ
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// 重複したURLと空のURLは除外する。maxConcurrencyが0以下の場合はデフォルト値10を使用する。
func NewScheduler(
	feedURLs []string,
	fetcher FeedFetcherService,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}

	seen := make(map[string]struct{}, len(feedURLs))
	feeds := make([]*FeedState, 0, len(feedURLs))
	for _, u := range feedURLs {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		feeds = append(feeds, NewFeedState(u))
	}

	return &Scheduler{
		feeds:          feeds,
		fetcher:        fetcher,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		now:            time.Now,
	}
}

// Feeds は保持しているフィード状態のスナップショットを返す。
func (s *Scheduler) Feeds() []FeedState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]FeedState, len(s.feeds))
	for i, f := range s.feeds {
		out[i] = *f
	}
	return out
}

// Start はinterval間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("ニュースフェッチスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("feed_count", len(s.feeds)),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ニュースフェッチスケジューラを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce はフェッチ対象のフィードを選び、並列でフェッチを実行する。
// フェッチ対象の件数を返す。
func (s *Scheduler) RunOnce(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()

	due := make([]*FeedState, 0, len(s.feeds))
	for _, f := range s.feeds {
		if f.IsDue(start) {
			due = append(due, f)
		}
	}

	if len(due) == 0 {
		s.logger.Info("フェッチ対象のフィードはありません")
		return 0
	}

	s.logger.Info("フェッチサイクルを開始します",
		slog.Int("feed_count", len(due)),
	)

	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, feed := range due {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}

		go func(f *FeedState) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.fetcher.Fetch(ctx, f); err != nil {
				s.logger.Error("フィードフェッチに失敗しました",
					slog.String("feed_url", f.URL),
					slog.String("error", err.Error()),
				)
			}
		}(feed)
	}

	wg.Wait()

	s.logger.Info("フェッチサイクルが完了しました",
		slog.Int("feed_count", len(due)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return len(due)
}
