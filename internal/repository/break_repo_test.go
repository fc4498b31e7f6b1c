package repository

import (
	"errors"
	"sync"
	"testing"
	"time"

	"calldesk/internal/domain"
	"calldesk/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// :memory: is a distinct database per connection, so the pool must
	// stay at one.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Agent{}, &models.BreakRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedAgent(t *testing.T, db *gorm.DB, number, name string, admin bool) {
	t.Helper()
	err := db.Create(&models.Agent{
		AgentNumber: number,
		Name:        name,
		Email:       name + "@calldesk.local",
		IsAdmin:     admin,
		Status:      domain.AgentActive,
	}).Error
	if err != nil {
		t.Fatalf("seed agent %s: %v", number, err)
	}
}

func startBreak(t *testing.T, repo *BreakRepository, agent string, at time.Time, remark string) {
	t.Helper()
	err := repo.Create(&models.BreakRecord{
		AgentNumber: agent,
		Status:      domain.StatusBreak,
		BreakStart:  &at,
		Remark:      remark,
	})
	if err != nil {
		t.Fatalf("start break: %v", err)
	}
}

func TestCreateRejectsSecondOpenBreak(t *testing.T) {
	db := testDB(t)
	repo := NewBreakRepository(db)
	seedAgent(t, db, "2001", "alice", false)

	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	startBreak(t, repo, "2001", t0, "tea")

	err := repo.Create(&models.BreakRecord{
		AgentNumber: "2001",
		Status:      domain.StatusBreak,
		BreakStart:  &t0,
		Remark:      "again",
	})
	if !errors.Is(err, ErrBreakAlreadyOpen) {
		t.Fatalf("second open break: err = %v, want ErrBreakAlreadyOpen", err)
	}

	var open int64
	db.Model(&models.BreakRecord{}).Where("break_end IS NULL").Count(&open)
	if open != 1 {
		t.Errorf("open rows = %d, want exactly 1", open)
	}

	// A different agent is unaffected.
	seedAgent(t, db, "2002", "bob", false)
	startBreak(t, repo, "2002", t0, "lunch")
}

func TestCreateConcurrentStartsLeaveOneOpen(t *testing.T) {
	db := testDB(t)
	repo := NewBreakRepository(db)
	seedAgent(t, db, "2001", "alice", false)

	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Create(&models.BreakRecord{
				AgentNumber: "2001",
				Status:      domain.StatusBreak,
				BreakStart:  &t0,
				Remark:      "rush",
			})
		}()
	}
	wg.Wait()
	close(errs)

	var started, rejected int
	for err := range errs {
		switch {
		case err == nil:
			started++
		case errors.Is(err, ErrBreakAlreadyOpen):
			rejected++
		default:
			t.Fatalf("concurrent start: %v", err)
		}
	}
	if started != 1 {
		t.Errorf("successful starts = %d, want exactly 1", started)
	}
	if rejected != workers-1 {
		t.Errorf("rejected starts = %d, want %d", rejected, workers-1)
	}
	var open int64
	db.Model(&models.BreakRecord{}).
		Where("agent_number = ? AND break_end IS NULL", "2001").
		Count(&open)
	if open != 1 {
		t.Errorf("open rows = %d, want exactly 1", open)
	}
}

func TestCloseLatestOpenComputesDuration(t *testing.T) {
	db := testDB(t)
	repo := NewBreakRepository(db)
	seedAgent(t, db, "2001", "alice", false)

	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	startBreak(t, repo, "2001", t0, "tea")

	rec, err := repo.CloseLatestOpen("2001", t0.Add(125*time.Second))
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if rec.DurationSeconds == nil || *rec.DurationSeconds != 125 {
		t.Errorf("duration = %v, want 125", rec.DurationSeconds)
	}
	if rec.BreakEnd == nil {
		t.Error("break_end not set")
	}

	var open int64
	db.Model(&models.BreakRecord{}).Where("break_end IS NULL").Count(&open)
	if open != 0 {
		t.Errorf("open rows after close = %d, want 0", open)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	db := testDB(t)
	repo := NewBreakRepository(db)
	seedAgent(t, db, "2001", "alice", false)

	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// Nothing open at all: no-op, nothing created.
	if _, err := repo.CloseLatestOpen("2001", t0); !errors.Is(err, ErrNoOpenBreak) {
		t.Fatalf("close with nothing open: err = %v, want ErrNoOpenBreak", err)
	}
	var total int64
	db.Model(&models.BreakRecord{}).Count(&total)
	if total != 0 {
		t.Errorf("rows created by no-op close = %d, want 0", total)
	}

	startBreak(t, repo, "2001", t0, "tea")
	if _, err := repo.CloseLatestOpen("2001", t0.Add(time.Minute)); err != nil {
		t.Fatalf("first close: %v", err)
	}
	// Second close finds nothing open and mutates nothing.
	if _, err := repo.CloseLatestOpen("2001", t0.Add(2*time.Minute)); !errors.Is(err, ErrNoOpenBreak) {
		t.Fatalf("second close: err = %v, want ErrNoOpenBreak", err)
	}
	var rec models.BreakRecord
	db.First(&rec)
	if *rec.DurationSeconds != 60 {
		t.Errorf("duration changed by second close: %d, want 60", *rec.DurationSeconds)
	}
}

func TestCloseTargetsLatestOpen(t *testing.T) {
	db := testDB(t)
	repo := NewBreakRepository(db)
	seedAgent(t, db, "2001", "alice", false)

	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	startBreak(t, repo, "2001", t0, "tea")
	if _, err := repo.CloseLatestOpen("2001", t0.Add(time.Minute)); err != nil {
		t.Fatalf("close first: %v", err)
	}
	t1 := t0.Add(time.Hour)
	startBreak(t, repo, "2001", t1, "lunch")

	rec, err := repo.CloseLatestOpen("2001", t1.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("close second: %v", err)
	}
	if !rec.BreakStart.Equal(t1) {
		t.Errorf("closed break started at %v, want %v", rec.BreakStart, t1)
	}
}

func TestCurrentStatusDerivation(t *testing.T) {
	db := testDB(t)
	repo := NewBreakRepository(db)
	agentRepo := NewAgentRepository(db)
	seedAgent(t, db, "2001", "alice", false)
	seedAgent(t, db, "2002", "bob", false)
	seedAgent(t, db, "2003", "carol", false)
	seedAgent(t, db, "2004", "dave", false)
	seedAgent(t, db, "1000", "admin", true)

	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	// alice: open break -> Break.
	startBreak(t, repo, "2001", t0, "tea")
	// bob: closed break, then a plain Working row -> Working.
	startBreak(t, repo, "2002", t0, "lunch")
	if _, err := repo.CloseLatestOpen("2002", t0.Add(time.Minute)); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := repo.Create(&models.BreakRecord{AgentNumber: "2002", Status: domain.StatusWorking}); err != nil {
		t.Fatalf("working row: %v", err)
	}
	// carol: no rows at all -> Working by default.
	// dave: an earlier closed break, then a fresh open one -> Break.
	startBreak(t, repo, "2004", t0, "coffee")
	if _, err := repo.CloseLatestOpen("2004", t0.Add(time.Minute)); err != nil {
		t.Fatalf("close: %v", err)
	}
	startBreak(t, repo, "2004", t0.Add(time.Hour), "lunch")

	agents, err := agentRepo.ListActiveAgents()
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	if len(agents) != 4 {
		t.Fatalf("active non-admin agents = %d, want 4", len(agents))
	}

	snapshot, rows, err := repo.CurrentStatus(agents)
	if err != nil {
		t.Fatalf("current status: %v", err)
	}
	want := map[string]string{"2001": "Break", "2002": "Working", "2003": "Working", "2004": "Break"}
	for agent, status := range want {
		if snapshot[agent] != status {
			t.Errorf("snapshot[%s] = %s, want %s", agent, snapshot[agent], status)
		}
	}
	if _, ok := snapshot["1000"]; ok {
		t.Error("admin account must not appear in the snapshot")
	}
	if len(rows) != 4 {
		t.Errorf("rows = %d, want 4", len(rows))
	}
	for _, row := range rows {
		if row.AgentNumber == "2004" {
			if row.BreakStart == nil || !row.BreakStart.Equal(t0.Add(time.Hour)) {
				t.Errorf("dave's row carries break_start %v, want the latest break's start", row.BreakStart)
			}
		}
	}
}

func TestListRecordsSearch(t *testing.T) {
	db := testDB(t)
	repo := NewBreakRepository(db)
	seedAgent(t, db, "2001", "alice", false)
	seedAgent(t, db, "2002", "bob", false)

	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	startBreak(t, repo, "2001", t0, "tea")
	startBreak(t, repo, "2002", t0.Add(time.Minute), "lunch")

	all, err := repo.ListRecords("")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all records = %d, want 2", len(all))
	}
	if all[0].AgentNumber != "2002" {
		t.Errorf("newest break first: got %s, want 2002", all[0].AgentNumber)
	}
	if all[0].Name != "bob" {
		t.Errorf("agent name not joined: got %q", all[0].Name)
	}

	tests := []struct {
		search string
		want   int
	}{
		{"2001", 1},
		{"ali", 1},
		{"bo", 1},
		{"nobody", 0},
	}
	for _, tt := range tests {
		got, err := repo.ListRecords(tt.search)
		if err != nil {
			t.Fatalf("search %q: %v", tt.search, err)
		}
		if len(got) != tt.want {
			t.Errorf("search %q: %d records, want %d", tt.search, len(got), tt.want)
		}
	}
}
