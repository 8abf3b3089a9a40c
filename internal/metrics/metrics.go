// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 応募結果のラベル値。
const (
	OutcomeCreated   = "created"
	OutcomeLimit     = "limit"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

// ApplicationMetrics は応募サービスから利用するメトリクスのインターフェース。
type ApplicationMetrics interface {
	RecordApplication(goalType, outcome string)
	RecordStatusChange(status string)
}

// NewsMetrics はニュース取得ワーカーから利用するメトリクスのインターフェース。
type NewsMetrics interface {
	RecordFetchSuccess(feedURL string)
	RecordFetchFailure(feedURL string, reason string)
	RecordParseFailure(feedURL string)
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
	RecordItemsUpserted(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	applications  *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
	fetchSuccess  prometheus.Counter
	fetchFail     *prometheus.CounterVec
	parseFail     prometheus.Counter
	httpStatus    *prometheus.CounterVec
	fetchLatency  prometheus.Histogram
	itemsUpserted prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		applications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigmatch_applications_total",
			Help: "応募リクエストの結果別合計数",
		}, []string{"goal_type", "outcome"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigmatch_application_status_changes_total",
			Help: "応募ステータス変更の遷移先別合計数",
		}, []string{"status"}),
		fetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigmatch_news_fetch_success_total",
			Help: "ニュースフィード取得成功の合計数",
		}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigmatch_news_fetch_fail_total",
			Help: "ニュースフィード取得失敗の理由別合計数",
		}, []string{"reason"}),
		parseFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigmatch_news_parse_fail_total",
			Help: "ニュースフィードパース失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigmatch_news_http_status_total",
			Help: "ニュースフィード取得時のHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigmatch_news_fetch_latency_seconds",
			Help:    "ニュースフィード取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		itemsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigmatch_news_items_upserted_total",
			Help: "アップサートされたニュース記事の合計数",
		}),
	}

	reg.MustRegister(
		c.applications,
		c.statusChanges,
		c.fetchSuccess,
		c.fetchFail,
		c.parseFail,
		c.httpStatus,
		c.fetchLatency,
		c.itemsUpserted,
	)

	return c
}

// RecordApplication は応募リクエストの結果を記録する。
func (c *Collector) RecordApplication(goalType, outcome string) {
	c.applications.WithLabelValues(goalType, outcome).Inc()
}

// RecordStatusChange は応募ステータスの変更を記録する。
func (c *Collector) RecordStatusChange(status string) {
	c.statusChanges.WithLabelValues(status).Inc()
}

// RecordFetchSuccess はフェッチ成功を記録する。
func (c *Collector) RecordFetchSuccess(feedURL string) {
	c.fetchSuccess.Inc()
}

// RecordFetchFailure はフェッチ失敗を記録する。
func (c *Collector) RecordFetchFailure(feedURL string, reason string) {
	c.fetchFail.WithLabelValues(reason).Inc()
}

// RecordParseFailure はパース失敗を記録する。
func (c *Collector) RecordParseFailure(feedURL string) {
	c.parseFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFetchLatency はフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordItemsUpserted はアップサートされた記事数を記録する。
func (c *Collector) RecordItemsUpserted(count int) {
	c.itemsUpserted.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

var (
	_ ApplicationMetrics = (*Collector)(nil)
	_ NewsMetrics        = (*Collector)(nil)
)
