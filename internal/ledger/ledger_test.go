package ledger

import (
	"testing"
	"time"

	"calldesk/internal/domain"
)

func closedBreak(agent string, start time.Time, durationSec int64) Record {
	end := start.Add(time.Duration(durationSec) * time.Second)
	return Record{
		AgentNumber:     agent,
		Status:          domain.StatusBreak,
		BreakStart:      &start,
		BreakEnd:        &end,
		DurationSeconds: &durationSec,
	}
}

func openBreak(agent string, start time.Time) Record {
	return Record{
		AgentNumber: agent,
		Status:      domain.StatusBreak,
		BreakStart:  &start,
	}
}

func workingRow(agent string, created time.Time) Record {
	return Record{
		AgentNumber: agent,
		Status:      domain.StatusWorking,
		CreatedAt:   created,
	}
}

func TestRoundMinutes(t *testing.T) {
	tests := []struct {
		seconds int64
		want    int
	}{
		{0, 0},
		{29, 0},
		{30, 1},
		{60, 1},
		{90, 2},
		{95, 2},
		{125, 2},
		{185, 3},
	}
	for _, tt := range tests {
		if got := RoundMinutes(tt.seconds); got != tt.want {
			t.Errorf("RoundMinutes(%d) = %d, want %d", tt.seconds, got, tt.want)
		}
	}
}

func TestDayTotalRoundThenSum(t *testing.T) {
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	// 90s and 95s round to 2 minutes each: the day total must be 4, not the
	// 3 that summing 185s first would give.
	records := []Record{
		closedBreak("2001", day, 90),
		closedBreak("2001", day.Add(time.Hour), 95),
	}
	for _, r := range records {
		m, ok := r.Minutes()
		if !ok || m != 2 {
			t.Fatalf("Minutes() = %d, %v, want 2, true", m, ok)
		}
	}
	if got := DayTotalMinutes(records); got != 4 {
		t.Errorf("DayTotalMinutes = %d, want 4", got)
	}
}

func TestDayTotalExcludesOngoing(t *testing.T) {
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	records := []Record{
		closedBreak("2001", day, 60),
		openBreak("2001", day.Add(2*time.Hour)),
	}
	if got := DayTotalMinutes(records); got != 1 {
		t.Errorf("DayTotalMinutes = %d, want 1 (ongoing must contribute 0)", got)
	}
	if !records[1].Ongoing() {
		t.Error("open break should report Ongoing")
	}
	if _, ok := records[1].Minutes(); ok {
		t.Error("ongoing break must not report numeric minutes")
	}
}

func TestDayTotalExcludesPlainStatusRows(t *testing.T) {
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	records := []Record{
		closedBreak("2001", day, 120),
		workingRow("2001", day.Add(time.Hour)),
	}
	if got := DayTotalMinutes(records); got != 2 {
		t.Errorf("DayTotalMinutes = %d, want 2", got)
	}
}

func TestGroupByDay(t *testing.T) {
	monday := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tuesday := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	records := []Record{
		closedBreak("2001", monday, 300),
		closedBreak("2002", tuesday, 600),
		closedBreak("2001", monday.Add(4*time.Hour), 90),
		workingRow("2001", tuesday.Add(time.Hour)),
	}
	days := GroupByDay(records)
	if len(days) != 2 {
		t.Fatalf("got %d day groups, want 2", len(days))
	}
	// Most recent day first.
	if days[0].Date != "2026-03-03" || days[1].Date != "2026-03-02" {
		t.Errorf("day order = [%s, %s], want [2026-03-03, 2026-03-02]", days[0].Date, days[1].Date)
	}
	if days[0].TotalMinutes != 10 {
		t.Errorf("tuesday total = %d, want 10", days[0].TotalMinutes)
	}
	if days[1].TotalMinutes != 5+2 {
		t.Errorf("monday total = %d, want 7", days[1].TotalMinutes)
	}
	// Within a day, most recent break first.
	monRecs := days[1].Records
	if len(monRecs) != 2 {
		t.Fatalf("monday has %d records, want 2", len(monRecs))
	}
	if !monRecs[0].BreakStart.After(*monRecs[1].BreakStart) {
		t.Error("records within a day should be ordered most recent first")
	}
	// Plain status rows are listed under their created_at day.
	if len(days[0].Records) != 2 {
		t.Errorf("tuesday has %d records, want 2 (working row listed)", len(days[0].Records))
	}
}

func TestGroupByDayEmpty(t *testing.T) {
	if days := GroupByDay(nil); len(days) != 0 {
		t.Errorf("GroupByDay(nil) = %d groups, want 0", len(days))
	}
}

func TestGroupByDayStableOnEqualTimestamps(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	a := closedBreak("2001", at, 60)
	a.ID = 1
	b := closedBreak("2002", at, 60)
	b.ID = 2
	days := GroupByDay([]Record{a, b})
	if len(days) != 1 {
		t.Fatalf("got %d day groups, want 1", len(days))
	}
	if days[0].Records[0].ID != 1 || days[0].Records[1].ID != 2 {
		t.Error("equal timestamps should keep insertion order")
	}
}
