package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/hitoshi/sigmatch/internal/database"
	"github.com/hitoshi/sigmatch/internal/model"
)

// setupApplicationDB はマイグレーション済みのテスト用データベースを返す。
// TEST_DATABASE_URL が未設定または接続できない場合はスキップする。
func setupApplicationDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("データベースへの接続に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Ping(); err != nil {
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}
	if err := database.RunMigrations(dbURL); err != nil {
		t.Fatalf("マイグレーションに失敗: %v", err)
	}
	return db
}

// insertTestUser はテスト用ユーザーを作成し、終了時に削除する。応募はCASCADEで消える。
func insertTestUser(t *testing.T, db *sql.DB) string {
	t.Helper()

	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO users (id, email, name) VALUES ($1, $2, $3)`,
		id, fmt.Sprintf("repo-test-%s@example.com", id), "Repo Test",
	)
	if err != nil {
		t.Fatalf("ユーザー作成に失敗: %v", err)
	}
	t.Cleanup(func() {
		if _, err := db.Exec(`DELETE FROM users WHERE id = $1`, id); err != nil {
			t.Errorf("ユーザー削除に失敗: %v", err)
		}
	})
	return id
}

func newTestApplication(userID, goalID string) *model.Application {
	now := time.Now().UTC()
	return &model.Application{
		ID:        uuid.NewString(),
		UserID:    userID,
		Goal:      model.GoalRef{Type: model.GoalTypeSDG, ID: goalID},
		Status:    model.ApplicationStatusPending,
		AppliedAt: now,
		UpdatedAt: now,
	}
}

// 同一ユーザーの同時応募でも審査待ち件数が上限を超えないことを検証
func TestPostgresApplicationRepo_CreateWithinLimit_Concurrent(t *testing.T) {
	db := setupApplicationDB(t)
	repo := NewPostgresApplicationRepo(db)
	userID := insertTestUser(t, db)
	ctx := context.Background()

	const (
		maxPending = 3
		attempts   = 10
	)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		limited    int
		unexpected []error
	)
	for i := 1; i <= attempts; i++ {
		wg.Add(1)
		go func(goalID string) {
			defer wg.Done()
			err := repo.CreateWithinLimit(ctx, newTestApplication(userID, goalID), maxPending)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrApplicationLimit):
				limited++
			default:
				unexpected = append(unexpected, err)
			}
		}(fmt.Sprintf("%d", i))
	}
	wg.Wait()

	if len(unexpected) > 0 {
		t.Fatalf("unexpected errors: %v", unexpected)
	}
	if created != maxPending {
		t.Errorf("created = %d, want %d", created, maxPending)
	}
	if limited != attempts-maxPending {
		t.Errorf("limited = %d, want %d", limited, attempts-maxPending)
	}

	count, err := repo.CountPendingByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("CountPendingByUserID failed: %v", err)
	}
	if count != maxPending {
		t.Errorf("CountPendingByUserID = %d, want %d", count, maxPending)
	}
}

// 同じ目標への二重応募がErrDuplicateになることを検証
func TestPostgresApplicationRepo_CreateWithinLimit_DuplicateGoal(t *testing.T) {
	db := setupApplicationDB(t)
	repo := NewPostgresApplicationRepo(db)
	userID := insertTestUser(t, db)
	ctx := context.Background()

	if err := repo.CreateWithinLimit(ctx, newTestApplication(userID, "7"), 3); err != nil {
		t.Fatalf("first CreateWithinLimit failed: %v", err)
	}

	err := repo.CreateWithinLimit(ctx, newTestApplication(userID, "7"), 3)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	count, err := repo.CountPendingByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("CountPendingByUserID failed: %v", err)
	}
	if count != 1 {
		t.Errorf("CountPendingByUserID = %d, want 1", count)
	}
}

// 存在しないユーザーへの応募がErrNotFoundになることを検証
func TestPostgresApplicationRepo_CreateWithinLimit_UnknownUser(t *testing.T) {
	db := setupApplicationDB(t)
	repo := NewPostgresApplicationRepo(db)

	err := repo.CreateWithinLimit(context.Background(), newTestApplication(uuid.NewString(), "1"), 3)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
