package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeResult struct {
	rowsAffected int64
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

type execCall struct {
	query string
	args  []interface{}
}

// mockExecutor はExecutorのテスト用モック。
// クエリごとに結果を切り替えられるよう、クエリ中の文字列で応答を選ぶ。
type mockExecutor struct {
	mu      sync.Mutex
	calls   []execCall
	results map[string]int64 // テーブル名 → 削除件数
	errs    map[string]error // テーブル名 → エラー
}

func (m *mockExecutor) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, execCall{query: query, args: args})
	for table, err := range m.errs {
		if strings.Contains(query, table) {
			return nil, err
		}
	}
	for table, n := range m.results {
		if strings.Contains(query, table) {
			return &fakeResult{rowsAffected: n}, nil
		}
	}
	return &fakeResult{}, nil
}

func (m *mockExecutor) callFor(table string) *execCall {
	for i := range m.calls {
		if strings.Contains(m.calls[i].query, table) {
			return &m.calls[i]
		}
	}
	return nil
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// logEntries はJSONログを行ごとにデコードする。
func logEntries(buf *bytes.Buffer) []map[string]interface{} {
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err == nil {
			entries = append(entries, entry)
		}
	}
	return entries
}

func TestNewCleanupJob_DefaultRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockExecutor{}, newTestLogger(&buf))

	if job.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", job.RetentionDays)
	}
}

func TestCleanupJob_Run_DeletesOldNews(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	call := mock.callFor("news_items")
	if call == nil {
		t.Fatal("news_itemsへのDELETEが実行されなかった")
	}
	if !strings.Contains(call.query, "DELETE FROM news_items") || !strings.Contains(call.query, "fetched_at") {
		t.Errorf("クエリが期待と異なる: %s", call.query)
	}
	if len(call.args) != 1 || call.args[0] != "90 days" {
		t.Errorf("interval引数 = %v, want [90 days]", call.args)
	}
}

func TestCleanupJob_Run_DeletesExpiredSessions(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	_ = job.Run(context.Background())

	call := mock.callFor("sessions")
	if call == nil {
		t.Fatal("sessionsへのDELETEが実行されなかった")
	}
	if !strings.Contains(call.query, "expires_at < now()") {
		t.Errorf("クエリが期待と異なる: %s", call.query)
	}
}

func TestCleanupJob_CustomRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{}
	job := NewCleanupJob(mock, newTestLogger(&buf))
	job.RetentionDays = 30

	_ = job.Run(context.Background())

	if call := mock.callFor("news_items"); call == nil || call.args[0] != "30 days" {
		t.Errorf("interval引数が30日になっていない: %+v", call)
	}
}

func TestCleanupJob_Run_LogsDeletedCounts(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{results: map[string]int64{"news_items": 42, "sessions": 7}}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	_ = job.Run(context.Background())

	got := make(map[string]float64)
	for _, entry := range logEntries(&buf) {
		target, _ := entry["target"].(string)
		if count, ok := entry["deleted_count"].(float64); ok {
			got[target] = count
		}
		if target == "news_items" {
			if _, ok := entry["duration_ms"]; !ok {
				t.Error("ログに duration_ms が記録されていない")
			}
		}
	}
	if got["news_items"] != 42 || got["sessions"] != 7 {
		t.Errorf("deleted_count = %v, want news_items=42 sessions=7。ログ出力: %s", got, buf.String())
	}
}

func TestCleanupJob_Run_NewsFailureStillCleansSessions(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{errs: map[string]error{"news_items": sql.ErrConnDone}}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("DBエラー時に Run() は nil でないエラーを返すべき")
	}
	if !strings.Contains(err.Error(), "sql: connection is already closed") {
		t.Errorf("エラーメッセージが期待と異なる: %v", err)
	}
	if mock.callFor("sessions") == nil {
		t.Error("ニュース削除の失敗後もセッション削除は実行されるべき")
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_Idempotent_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockExecutor{}, newTestLogger(&buf))

	for i := 0; i < 2; i++ {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("%d回目の Run() がエラーを返した: %v", i+1, err)
		}
	}
}

func TestCleanupJob_Start_StopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// キャンセル済みでも起動直後の1回は実行してから終了する
	job.Start(ctx, 24*time.Hour)

	if mock.callFor("news_items") == nil {
		t.Error("起動直後にRunが実行されるべき")
	}
}
